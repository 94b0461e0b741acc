package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// User は登録済みのアカウントです。Password はハッシュ値のみを保持します。
type User struct {
	ID          int64   `db:"id"`
	Login       string  `db:"login"`
	Email       string  `db:"email"`
	Password    string  `db:"password"`
	CountryCode string  `db:"country_code"`
	IsPublic    bool    `db:"is_public"`
	Phone       *string `db:"phone"`
	Image       *string `db:"image"`
}

// UserStore はユーザーの永続化を行います。
type UserStore struct {
	db *sqlx.DB
}

// NewUserStore は UserStore を作成します。
func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, login, email, password, country_code, is_public, phone, image`

// FindByLogin はログイン名でユーザーを探します。
func (s *UserStore) FindByLogin(ctx context.Context, login string) (*User, error) {
	var user User
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE login = ?`)
	if err := s.db.GetContext(ctx, &user, query, login); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", login, err)
	}
	return &user, nil
}

// Exists は login / email / phone のいずれかが既存ユーザーと重複するかを返します。
// phone が nil の場合は電話番号を比較しません。
func (s *UserStore) Exists(ctx context.Context, login, email string, phone *string) (bool, error) {
	query := `SELECT COUNT(1) FROM users WHERE login = ? OR email = ?`
	args := []any{login, email}
	if phone != nil {
		query += ` OR phone = ?`
		args = append(args, *phone)
	}

	var count int
	if err := s.db.GetContext(ctx, &count, s.db.Rebind(query), args...); err != nil {
		return false, fmt.Errorf("check user uniqueness: %w", err)
	}
	return count > 0, nil
}

// Create はユーザーを1件追加し、採番されたIDを user.ID に設定します。
// 失敗時はトランザクションをロールバックし、制約違反は ErrConflict / ErrUnknownCountry に分類します。
func (s *UserStore) Create(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("user is nil")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin user insert: %w", err)
	}
	defer tx.Rollback()

	query := tx.Rebind(`INSERT INTO users (login, email, password, country_code, is_public, phone, image)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err = tx.QueryRowxContext(ctx, query,
		user.Login, user.Email, user.Password, user.CountryCode, user.IsPublic, user.Phone, user.Image,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", user.Login, classify(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user %s: %w", user.Login, classify(err))
	}
	return nil
}
