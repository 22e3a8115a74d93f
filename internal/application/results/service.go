package results

import (
	"context"
	"fmt"

	"github.com/bryanwahyu/exewatch/internal/application"
	"github.com/bryanwahyu/exewatch/internal/common"
	domain "github.com/bryanwahyu/exewatch/internal/domain/results"
)

// Service implements the read/acknowledge use-cases over scan results.
type Service struct {
	repo  domain.Repository
	clock application.Clock
}

func NewService(repo domain.Repository, clock application.Clock) *Service {
	return &Service{repo: repo, clock: clock}
}

func (s *Service) List(ctx context.Context, f domain.Filter, page, limit int) (domain.Page, error) {
	return s.repo.List(ctx, f, page, limit)
}

func (s *Service) Critical(ctx context.Context, sessionID string) ([]*domain.Result, error) {
	return s.repo.Critical(ctx, sessionID)
}

// Acknowledge marks a result reviewed, stamping reviewedAt with the current
// time. The pair is the only mutation results ever receive.
func (s *Service) Acknowledge(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: result id is required", common.ErrValidation)
	}
	return s.repo.MarkReviewed(ctx, id, s.clock.Now())
}
