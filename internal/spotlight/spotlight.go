// Package spotlight stores the curated featured-alumni entries shown on the
// public landing page.
package spotlight

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when no entry exists for the given id.
var ErrNotFound = errors.New("spotlight entry not found")

// Entry is one featured alumnus.
type Entry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Batch       string `json:"batch"`
	Profession  string `json:"profession"`
	Achievement string `json:"achievement"`
	Category    string `json:"category"` // founder, doctor, civil_servant, creator, corporate
	ImageURL    string `json:"image_url"`
	IsFeatured  bool   `json:"is_featured"`
}

// Input is the create/update payload.
type Input struct {
	Name        string `json:"name" binding:"required"`
	Batch       string `json:"batch" binding:"required"`
	Profession  string `json:"profession" binding:"required"`
	Achievement string `json:"achievement" binding:"required"`
	Category    string `json:"category" binding:"required"`
	ImageURL    string `json:"image_url"`
}

// Repository persists spotlight entries in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns featured entries for public display, capped at 20.
func (r *Repository) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, batch, profession, achievement, category, image_url, is_featured
		FROM spotlight
		WHERE is_featured
		LIMIT 20
	`)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list spotlight entries")
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Batch, &e.Profession, &e.Achievement,
			&e.Category, &e.ImageURL, &e.IsFeatured); err != nil {
			return nil, errors.Wrap(err, "unable to scan spotlight entry")
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Create inserts a new featured entry.
func (r *Repository) Create(ctx context.Context, in Input) (Entry, error) {
	e := Entry{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Batch:       in.Batch,
		Profession:  in.Profession,
		Achievement: in.Achievement,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		IsFeatured:  true,
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO spotlight (id, name, batch, profession, achievement, category, image_url, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
	`, e.ID, e.Name, e.Batch, e.Profession, e.Achievement, e.Category, e.ImageURL)
	if err != nil {
		return Entry{}, errors.Wrap(err, "unable to create spotlight entry")
	}
	return e, nil
}

// Update replaces an entry's editable fields.
func (r *Repository) Update(ctx context.Context, id string, in Input) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE spotlight
		SET name = $2, batch = $3, profession = $4, achievement = $5, category = $6, image_url = $7
		WHERE id = $1
	`, id, in.Name, in.Batch, in.Profession, in.Achievement, in.Category, in.ImageURL)
	if err != nil {
		return errors.Wrap(err, "unable to update spotlight entry")
	}
	return requireAffected(result)
}

// Delete removes an entry.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM spotlight WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "unable to delete spotlight entry")
	}
	return requireAffected(result)
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
