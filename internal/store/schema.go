package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// schema is applied at startup; every statement is idempotent.
//
// The partial unique index on alumni enforces email uniqueness across
// non-rejected records only, so a rejected alumnus can register again.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS alumni (
		id                 TEXT PRIMARY KEY,
		first_name         TEXT NOT NULL,
		last_name          TEXT NOT NULL,
		email              TEXT NOT NULL,
		mobile             TEXT NOT NULL,
		year_of_joining    INT NOT NULL,
		year_of_leaving    INT NOT NULL,
		class_of_joining   TEXT NOT NULL,
		last_class_studied TEXT NOT NULL,
		last_house         TEXT NOT NULL,
		full_address       TEXT NOT NULL,
		city               TEXT NOT NULL,
		pincode            TEXT NOT NULL,
		state              TEXT NOT NULL,
		country            TEXT NOT NULL,
		profession         TEXT NOT NULL DEFAULT '',
		organization       TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL DEFAULT 'pending',
		ehsas_id           TEXT UNIQUE,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		approved_at        TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS alumni_active_email
		ON alumni (LOWER(email)) WHERE status <> 'rejected'`,
	`CREATE INDEX IF NOT EXISTS alumni_status_idx ON alumni (status)`,
	`CREATE TABLE IF NOT EXISTS ehsas_counters (
		batch INT PRIMARY KEY,
		next  INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'admin',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		type       TEXT NOT NULL,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		alumni_id  TEXT,
		is_read    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		description TEXT NOT NULL,
		event_type TEXT NOT NULL,
		date       TEXT NOT NULL,
		time       TEXT NOT NULL,
		location   TEXT NOT NULL,
		image_url  TEXT NOT NULL DEFAULT '',
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS spotlight (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		batch       TEXT NOT NULL,
		profession  TEXT NOT NULL,
		achievement TEXT NOT NULL,
		category    TEXT NOT NULL,
		image_url   TEXT NOT NULL DEFAULT '',
		is_featured BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}

// EnsureSchema creates all tables and indexes required by the service.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "unable to apply schema")
		}
	}
	return nil
}
