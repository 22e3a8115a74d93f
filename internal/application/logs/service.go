package logs

import (
	"context"

	domain "github.com/bryanwahyu/exewatch/internal/domain/logs"
)

// Service exposes the paginated log listing.
type Service struct {
	repo domain.Repository
}

func NewService(repo domain.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, f domain.Filter, page, limit int) (domain.Page, error) {
	return s.repo.List(ctx, f, page, limit)
}
