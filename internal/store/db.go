package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps the Postgres connection shared by the alumni directory, the
// notification log and the admin account store.
type DB struct {
	Client *sql.DB
}

// NewDB opens a Postgres connection through pgx and verifies it with a ping.
// Pool bounds come from configuration; non-positive values fall back to
// defaults sized for the directory's request-driven load.
func NewDB(connString string, maxOpen, maxIdle int, maxLifetime time.Duration) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	configurePool(db, maxOpen, maxIdle, maxLifetime)
	return &DB{Client: db}, db.PingContext(context.Background())
}

func configurePool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) {
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	if maxLifetime <= 0 {
		maxLifetime = time.Hour
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
