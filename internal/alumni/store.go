package alumni

import "context"

// Store is the persistence contract for alumni records. Approve and Reject
// must be per-record compare-and-set operations: they only take effect when
// the record is still pending, and a losing concurrent caller observes
// ErrInvalidTransition rather than a partial update.
type Store interface {
	Create(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, f Filter) ([]Record, error)
	Approve(ctx context.Context, id, ehsasID string) (Record, error)
	Reject(ctx context.Context, id string) (Record, error)
	CountByStatus(ctx context.Context, status Status) (int, error)
	BatchDistribution(ctx context.Context, limit int) ([]BatchCount, error)
}

// Issuer allocates membership identifiers. Issued ids are globally unique
// and never reused, even across concurrent approvals.
type Issuer interface {
	Issue(ctx context.Context, batch int) (string, error)
}
