package sessions

import (
	"context"
	"time"
)

// Repository port (interface for persistence)
type Repository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Latest(ctx context.Context, limit int) ([]*Session, error)

	// Finish applies a terminal transition: status, finishedAt and the three
	// counters in one statement. Last write wins; there is no guard against a
	// repeated terminal event. Returns common.ErrNotFound for unknown ids.
	Finish(ctx context.Context, id string, status Status, finishedAt time.Time, sum Summary) error
}
