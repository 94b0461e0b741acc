package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const countriesTable = `CREATE TABLE IF NOT EXISTS countries (
	id %[1]s,
	name TEXT NOT NULL,
	alpha2 VARCHAR(2) NOT NULL UNIQUE,
	alpha3 VARCHAR(3) NOT NULL UNIQUE,
	region TEXT NOT NULL
)`

const usersTable = `CREATE TABLE IF NOT EXISTS users (
	id %[1]s,
	login VARCHAR(80) NOT NULL UNIQUE,
	email VARCHAR(120) NOT NULL UNIQUE,
	password VARCHAR(128) NOT NULL,
	country_code VARCHAR(2) NOT NULL REFERENCES countries (alpha2),
	is_public BOOLEAN NOT NULL,
	phone VARCHAR(15) UNIQUE,
	image VARCHAR(255)
)`

const regionIndex = `CREATE INDEX IF NOT EXISTS countries_region_idx ON countries (region)`

// EnsureSchema はテーブルが無ければ作成します。
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "pgx" {
		idColumn = "SERIAL PRIMARY KEY"
	}

	statements := []string{
		fmt.Sprintf(countriesTable, idColumn),
		regionIndex,
		fmt.Sprintf(usersTable, idColumn),
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
