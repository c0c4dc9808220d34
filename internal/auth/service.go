package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when the email or password is wrong.
// Both cases produce the same error so login never reveals which one failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is the result of a successful admin login.
type Session struct {
	AdminID   string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"-"`
}

// Manager authenticates administrators and issues bearer tokens.
type Manager struct {
	store      *AdminStore
	issuer     string
	signingKey string
	ttl        time.Duration
}

// NewManager creates a session manager.
func NewManager(store *AdminStore, issuer, signingKey string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{store: store, issuer: issuer, signingKey: signingKey, ttl: ttl}
}

// Login checks the stored bcrypt hash and issues a token on success.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	admin, err := m.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, exp, err := Issue(admin.Email, admin.Role, m.issuer, m.signingKey, m.ttl)
	if err != nil {
		return Session{}, err
	}

	return Session{
		AdminID:   admin.ID,
		Email:     admin.Email,
		Role:      admin.Role,
		Token:     token,
		ExpiresAt: exp,
	}, nil
}
