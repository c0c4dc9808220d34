package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Admin is a stored administrator account.
type Admin struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// AdminStore persists administrator accounts in Postgres.
type AdminStore struct {
	db *sql.DB
}

// NewAdminStore creates a store.
func NewAdminStore(db *sql.DB) *AdminStore {
	return &AdminStore{db: db}
}

// GetByEmail returns the admin account for the given email, or sql.ErrNoRows.
func (s *AdminStore) GetByEmail(ctx context.Context, email string) (Admin, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM admins WHERE LOWER(email) = LOWER($1)
	`, email)
	var a Admin
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Admin{}, err
		}
		return Admin{}, errors.Wrap(err, "unable to look up admin")
	}
	return a, nil
}

// Seed creates the configured admin account when it does not exist yet.
// The password is stored as a bcrypt hash, never in plaintext.
func (s *AdminStore) Seed(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "unable to hash admin password")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO admins (id, email, password_hash, role)
		VALUES ($1, $2, $3, 'admin')
		ON CONFLICT (email) DO NOTHING
	`, uuid.NewString(), email, string(hash))
	return errors.Wrap(err, "unable to seed admin account")
}
