// Package storage は国マスタとユーザーを保存するリレーショナルストアを提供します。
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql 用 PostgreSQL ドライバー
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/yourusername/geo-accounts/internal/config"
)

// 永続化層のエラー分類
var (
	ErrNotFound       = errors.New("record not found")
	ErrConflict       = errors.New("unique constraint violated")
	ErrUnknownCountry = errors.New("country code does not exist")
)

func init() {
	// modernc の "sqlite" は sqlx の既定の対応表に無いため明示する
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open は設定に従ってデータベースへ接続します。
func Open(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	driverName, dsn := driverAndDSN(cfg.DatabaseDriver, cfg.DatabaseURL)
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DatabaseDriver, err)
	}
	if driverName == "sqlite" {
		// SQLite は書き込みが直列化されるうえ、:memory: は接続ごとに別DBになる
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.DatabaseDriver, err)
	}
	return db, nil
}

func driverAndDSN(driver, url string) (string, string) {
	if driver == config.DriverPostgres {
		return "pgx", url
	}
	if strings.Contains(url, "foreign_keys") {
		return "sqlite", url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return "sqlite", url + sep + "_pragma=foreign_keys(1)"
}

// classify はドライバー固有の制約違反を分類済みエラーに変換します。
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrUnknownCountry, pgErr.ConstraintName)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrConflict, liteErr)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", ErrUnknownCountry, liteErr)
		case sqlite3.SQLITE_CONSTRAINT:
			// 拡張コードが無効な接続では本文で判定する
			msg := liteErr.Error()
			switch {
			case strings.Contains(msg, "UNIQUE constraint failed"):
				return fmt.Errorf("%w: %v", ErrConflict, liteErr)
			case strings.Contains(msg, "FOREIGN KEY constraint failed"):
				return fmt.Errorf("%w: %v", ErrUnknownCountry, liteErr)
			}
		}
	}
	return err
}
