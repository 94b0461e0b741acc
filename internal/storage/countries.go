package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Country は国マスタの1行です。
type Country struct {
	Name   string `json:"name" db:"name" yaml:"name"`
	Alpha2 string `json:"alpha2" db:"alpha2" yaml:"alpha2"`
	Alpha3 string `json:"alpha3" db:"alpha3" yaml:"alpha3"`
	Region string `json:"region" db:"region" yaml:"region"`
}

// CountryStore は国マスタの読み取りと投入を行います。
type CountryStore struct {
	db *sqlx.DB
}

// NewCountryStore は CountryStore を作成します。
func NewCountryStore(db *sqlx.DB) *CountryStore {
	return &CountryStore{db: db}
}

// List は alpha2 の昇順で国を返します。regions が空でなければその地域に絞り込みます。
func (s *CountryStore) List(ctx context.Context, regions []string) ([]Country, error) {
	query := `SELECT name, alpha2, alpha3, region FROM countries`
	var args []any
	if len(regions) > 0 {
		var err error
		query, args, err = sqlx.In(query+` WHERE region IN (?)`, regions)
		if err != nil {
			return nil, fmt.Errorf("build country filter: %w", err)
		}
	}
	query = s.db.Rebind(query + ` ORDER BY alpha2`)

	countries := []Country{}
	if err := s.db.SelectContext(ctx, &countries, query, args...); err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	return countries, nil
}

// Get は alpha2 コードに一致する国を返します。
func (s *CountryStore) Get(ctx context.Context, alpha2 string) (*Country, error) {
	var country Country
	query := s.db.Rebind(`SELECT name, alpha2, alpha3, region FROM countries WHERE alpha2 = ?`)
	if err := s.db.GetContext(ctx, &country, query, alpha2); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get country %s: %w", alpha2, err)
	}
	return &country, nil
}

// Seed は国を投入します。既存の行はそのまま残します。
func (s *CountryStore) Seed(ctx context.Context, countries []Country) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO countries (name, alpha2, alpha3, region)
		VALUES (:name, :alpha2, :alpha3, :region)
		ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare country seed: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range countries {
		res, err := stmt.ExecContext(ctx, c)
		if err != nil {
			return 0, fmt.Errorf("seed country %s: %w", c.Alpha2, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}
