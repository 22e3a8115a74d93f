package sessions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/exewatch/internal/application"
	"github.com/bryanwahyu/exewatch/internal/common"
	logsdomain "github.com/bryanwahyu/exewatch/internal/domain/logs"
	domain "github.com/bryanwahyu/exewatch/internal/domain/sessions"
)

// Latest session listings are capped the way the dashboard expects.
const latestLimit = 50

// Service implements the session use-cases, including the terminal
// aggregate update applied by done/error events.
type Service struct {
	repo  domain.Repository
	logs  logsdomain.Repository
	clock application.Clock
}

func NewService(repo domain.Repository, logs logsdomain.Repository, clock application.Clock) *Service {
	return &Service{repo: repo, logs: logs, clock: clock}
}

// Create opens a new ACTIVE session and appends its initial audit line.
func (s *Service) Create(ctx context.Context, clientLabel string) (*domain.Session, error) {
	if strings.TrimSpace(clientLabel) == "" {
		return nil, fmt.Errorf("%w: clientLabel is required", common.ErrValidation)
	}

	sess := &domain.Session{
		ID:          uuid.New().String(),
		ClientLabel: clientLabel,
		Status:      domain.StatusActive,
		StartedAt:   s.clock.Now(),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}

	if err := s.logs.Create(ctx, &logsdomain.Log{
		SessionID: sess.ID,
		Level:     logsdomain.LevelInfo,
		Message:   fmt.Sprintf("Session created for client: %s", clientLabel),
		Timestamp: s.clock.Now(),
	}); err != nil {
		return nil, err
	}

	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Session, error) {
	return s.repo.Get(ctx, id)
}

// Latest returns the most recent sessions by start time, descending.
func (s *Service) Latest(ctx context.Context) ([]*domain.Session, error) {
	return s.repo.Latest(ctx, latestLimit)
}

// Finish applies the terminal transition. A nil summary zeroes the counters,
// which means an errored session always records zeros even if files were
// already processed; the agent never reports partial counts. Calling Finish
// twice overwrites counters and finishedAt: last write wins.
func (s *Service) Finish(ctx context.Context, id string, status domain.Status, sum *domain.Summary) error {
	if sum == nil {
		sum = &domain.Summary{}
	}
	return s.repo.Finish(ctx, id, status, s.clock.Now(), *sum)
}
