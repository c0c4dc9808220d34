// Package notify keeps the append-only admin notification log. There is a
// single shared inbox; read state is per entry, not per admin.
package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when no entry exists for the given id.
var ErrNotFound = errors.New("notification not found")

// Entry is one admin-facing notification.
type Entry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	AlumniID  *string   `json:"alumni_id"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists notification entries in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Append writes a new unread entry.
func (r *Repository) Append(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, type, title, message, alumni_id)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, e.Type, e.Title, e.Message, e.AlumniID)
	return errors.Wrap(err, "unable to append notification")
}

// List returns the newest entries first, capped at limit.
func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, title, message, alumni_id, is_read, created_at
		FROM notifications
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list notifications")
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		var e Entry
		var alumniID sql.NullString
		if err := rows.Scan(&e.ID, &e.Type, &e.Title, &e.Message, &alumniID, &e.IsRead, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "unable to scan notification")
		}
		if alumniID.Valid {
			e.AlumniID = &alumniID.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// UnreadCount counts entries not yet marked read.
func (r *Repository) UnreadCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE NOT is_read`).Scan(&n)
	return n, errors.Wrap(err, "unable to count unread notifications")
}

// MarkRead flags a single entry as read.
func (r *Repository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "unable to mark notification read")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "unable to mark notification read")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
