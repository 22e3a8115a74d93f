package results

import (
	"context"
	"time"
)

// Repository port (interface for persistence)
type Repository interface {
	// Create persists a new result. An empty ID is assigned by the store.
	Create(ctx context.Context, r *Result) error

	// List returns one page ordered by detectedAt descending.
	List(ctx context.Context, f Filter, page, limit int) (Page, error)

	// Critical returns unreviewed HIGH/CRITICAL results, newest first,
	// optionally scoped to one session.
	Critical(ctx context.Context, sessionID string) ([]*Result, error)

	// MarkReviewed sets reviewed=true and reviewedAt. Returns
	// common.ErrNotFound for unknown ids.
	MarkReviewed(ctx context.Context, id string, at time.Time) error
}
