package alumni

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

const recordColumns = `id, first_name, last_name, email, mobile, year_of_joining, year_of_leaving, class_of_joining, last_class_studied, last_house, full_address, city, pincode, state, country, profession, organization, status, ehsas_id, created_at, approved_at`

// Repository persists alumni records in Postgres and implements Store.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new pending record. The insert is guarded so that no row
// is written when a non-rejected record already holds the email; the partial
// unique index on LOWER(email) closes the remaining race.
func (r *Repository) Create(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Status = StatusPending
	rec.EhsasID = nil

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO alumni (id, first_name, last_name, email, mobile, year_of_joining, year_of_leaving,
			class_of_joining, last_class_studied, last_house, full_address, city, pincode, state, country,
			profession, organization, status)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 'pending'
		WHERE NOT EXISTS (
			SELECT 1 FROM alumni WHERE LOWER(email) = LOWER($4) AND status <> 'rejected'
		)
		RETURNING created_at
	`, rec.ID, rec.FirstName, rec.LastName, rec.Email, rec.Mobile, rec.YearOfJoining, rec.YearOfLeaving,
		rec.ClassOfJoining, rec.LastClassStudied, rec.LastHouse, rec.FullAddress, rec.City, rec.Pincode,
		rec.State, rec.Country, rec.Profession, rec.Organization)

	if err := row.Scan(&rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return Record{}, ErrDuplicateEmail
		}
		return Record{}, errors.Wrap(err, "unable to create alumni record")
	}
	return rec, nil
}

// Get returns a single record by id.
func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM alumni WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, errors.Wrap(err, "unable to fetch alumni record")
	}
	return rec, nil
}

// List returns records matching the filter, ordered by creation time so
// listings stay stable between requests.
func (r *Repository) List(ctx context.Context, f Filter) ([]Record, error) {
	builder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(recordColumns).
		From("alumni").
		OrderBy("created_at ASC")
	if f.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.Batch != 0 {
		builder = builder.Where(sq.Eq{"year_of_leaving": f.Batch})
	}
	if f.Profession != "" {
		builder = builder.Where(sq.ILike{"profession": "%" + f.Profession + "%"})
	}
	if f.City != "" {
		builder = builder.Where(sq.ILike{"city": "%" + f.City + "%"})
	}

	statement, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "unable to build alumni listing")
	}

	rows, err := r.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list alumni records")
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan alumni record")
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// Approve transitions a pending record to approved and assigns the issued
// membership id in the same statement, so no half-approved state is ever
// visible. The WHERE status = 'pending' clause serializes concurrent calls:
// exactly one caller updates the row, the rest get ErrInvalidTransition.
func (r *Repository) Approve(ctx context.Context, id, ehsasID string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE alumni
		SET status = 'approved', ehsas_id = $2, approved_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+recordColumns, id, ehsasID)
	return r.transitionResult(ctx, id, row, "approve")
}

// Reject transitions a pending record to rejected. No membership id is
// issued and the email becomes free for re-registration.
func (r *Repository) Reject(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE alumni
		SET status = 'rejected'
		WHERE id = $1 AND status = 'pending'
		RETURNING `+recordColumns, id)
	return r.transitionResult(ctx, id, row, "reject")
}

// transitionResult distinguishes a missing record from a lost compare-and-set.
func (r *Repository) transitionResult(ctx context.Context, id string, row *sql.Row, op string) (Record, error) {
	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Record{}, errors.Wrapf(err, "unable to %s alumni record", op)
	}
	if _, err := r.Get(ctx, id); err != nil {
		return Record{}, err
	}
	return Record{}, ErrInvalidTransition
}

// CountByStatus counts records in the given status.
func (r *Repository) CountByStatus(ctx context.Context, status Status) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alumni WHERE status = $1`, string(status)).Scan(&n)
	return n, errors.Wrap(err, "unable to count alumni records")
}

// BatchDistribution returns the largest batches by approved-alumni count.
func (r *Repository) BatchDistribution(ctx context.Context, limit int) ([]BatchCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT year_of_leaving, COUNT(*) AS n
		FROM alumni
		WHERE status = 'approved'
		GROUP BY year_of_leaving
		ORDER BY year_of_leaving DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load batch distribution")
	}
	defer rows.Close()

	var res []BatchCount
	for rows.Next() {
		var b BatchCount
		if err := rows.Scan(&b.Batch, &b.Count); err != nil {
			return nil, errors.Wrap(err, "unable to scan batch distribution")
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var ehsasID sql.NullString
	var approvedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.FirstName, &rec.LastName, &rec.Email, &rec.Mobile,
		&rec.YearOfJoining, &rec.YearOfLeaving, &rec.ClassOfJoining, &rec.LastClassStudied,
		&rec.LastHouse, &rec.FullAddress, &rec.City, &rec.Pincode, &rec.State, &rec.Country,
		&rec.Profession, &rec.Organization, &rec.Status, &ehsasID, &rec.CreatedAt, &approvedAt)
	if err != nil {
		return Record{}, err
	}
	if ehsasID.Valid {
		rec.EhsasID = &ehsasID.String
	}
	if approvedAt.Valid {
		t := approvedAt.Time.UTC()
		rec.ApprovedAt = &t
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
