// Package events stores the society's event listings. Events are owned by
// the admin; the public site reads active events only.
package events

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when no event exists for the given id.
var ErrNotFound = errors.New("event not found")

// Event is one society event (reunion, webinar, campus, meetup).
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventType   string    `json:"event_type"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	ImageURL    string    `json:"image_url"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Input is the create/update payload.
type Input struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	EventType   string `json:"event_type" binding:"required"`
	Date        string `json:"date" binding:"required"`
	Time        string `json:"time" binding:"required"`
	Location    string `json:"location" binding:"required"`
	ImageURL    string `json:"image_url"`
}

// Repository persists events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns events, optionally restricted to active ones, newest first.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]Event, error) {
	query := `SELECT id, title, description, event_type, date, time, location, image_url, is_active, created_at FROM events`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list events")
	}
	defer rows.Close()

	var res []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.EventType, &e.Date, &e.Time,
			&e.Location, &e.ImageURL, &e.IsActive, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "unable to scan event")
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Create inserts a new active event.
func (r *Repository) Create(ctx context.Context, in Input) (Event, error) {
	e := Event{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		EventType:   in.EventType,
		Date:        in.Date,
		Time:        in.Time,
		Location:    in.Location,
		ImageURL:    in.ImageURL,
		IsActive:    true,
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO events (id, title, description, event_type, date, time, location, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		RETURNING created_at
	`, e.ID, e.Title, e.Description, e.EventType, e.Date, e.Time, e.Location, e.ImageURL)
	if err := row.Scan(&e.CreatedAt); err != nil {
		return Event{}, errors.Wrap(err, "unable to create event")
	}
	return e, nil
}

// Update replaces an event's editable fields.
func (r *Repository) Update(ctx context.Context, id string, in Input) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET title = $2, description = $3, event_type = $4, date = $5, time = $6, location = $7, image_url = $8
		WHERE id = $1
	`, id, in.Title, in.Description, in.EventType, in.Date, in.Time, in.Location, in.ImageURL)
	if err != nil {
		return errors.Wrap(err, "unable to update event")
	}
	return requireAffected(result)
}

// Delete removes an event.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "unable to delete event")
	}
	return requireAffected(result)
}

// CountActive counts active events for the admin dashboard.
func (r *Repository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE is_active`).Scan(&n)
	return n, errors.Wrap(err, "unable to count events")
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "unable to check affected rows")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
