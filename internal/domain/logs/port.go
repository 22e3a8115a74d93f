package logs

import (
	"context"
)

// Repository port (interface for persistence)
type Repository interface {
	// Create appends a log line. An empty ID is assigned by the store.
	Create(ctx context.Context, l *Log) error

	// List returns one page ordered by timestamp descending.
	List(ctx context.Context, f Filter, page, limit int) (Page, error)
}
