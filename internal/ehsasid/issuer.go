// Package ehsasid allocates EHSAS membership identifiers.
//
// An EHSAS id is EH + the last two digits of the batch year + a four digit
// per-batch counter, e.g. EH190042. Counters come from a Postgres upsert that
// increments and returns atomically, so ids stay unique under concurrent
// approvals and are never reused.
package ehsasid

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

// Issuer hands out membership ids backed by the ehsas_counters table.
type Issuer struct {
	db *sql.DB
}

// New creates an issuer.
func New(db *sql.DB) *Issuer {
	return &Issuer{db: db}
}

// Issue allocates the next id for the given batch year.
func (i *Issuer) Issue(ctx context.Context, batch int) (string, error) {
	var n int
	err := i.db.QueryRowContext(ctx, `
		INSERT INTO ehsas_counters (batch, next) VALUES ($1, 1)
		ON CONFLICT (batch) DO UPDATE SET next = ehsas_counters.next + 1
		RETURNING next
	`, batch).Scan(&n)
	if err != nil {
		return "", errors.Wrap(err, "unable to allocate membership id")
	}
	return Format(batch, n), nil
}

// Format renders an id for a batch year and sequence number.
func Format(batch, seq int) string {
	return fmt.Sprintf("EH%02d%04d", batch%100, seq)
}
