package ai

import (
	"context"
	"fmt"

	"github.com/bryanwahyu/exewatch/internal/application"
	domain "github.com/bryanwahyu/exewatch/internal/domain/ai"
	logsdomain "github.com/bryanwahyu/exewatch/internal/domain/logs"
	resultsdomain "github.com/bryanwahyu/exewatch/internal/domain/results"
	sessionsdomain "github.com/bryanwahyu/exewatch/internal/domain/sessions"
)

// Service produces an analyst-style natural-language summary for one
// session. A nil client means the feature is unconfigured.
type Service struct {
	client   domain.Client
	sessions sessionsdomain.Repository
	results  resultsdomain.Repository
	logs     logsdomain.Repository
	clock    application.Clock
}

func NewService(
	client domain.Client,
	sessions sessionsdomain.Repository,
	results resultsdomain.Repository,
	logs logsdomain.Repository,
	clock application.Clock,
) *Service {
	return &Service{client: client, sessions: sessions, results: results, logs: logs, clock: clock}
}

// Summarize fetches the session and its unreviewed elevated findings, asks
// the provider for a summary, and records an audit line.
func (s *Service) Summarize(ctx context.Context, sessionID string) (string, error) {
	if s.client == nil {
		return "", domain.ErrNotConfigured
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	findings, err := s.results.Critical(ctx, sessionID)
	if err != nil {
		return "", err
	}

	text, err := s.client.Summarize(ctx, domain.SummaryRequest{Session: sess, Findings: findings})
	if err != nil {
		return "", fmt.Errorf("ai summarize: %w", err)
	}

	if err := s.logs.Create(ctx, &logsdomain.Log{
		SessionID: sessionID,
		Level:     logsdomain.LevelInfo,
		Message:   "AI summary generated",
		Timestamp: s.clock.Now(),
		Context:   map[string]any{"findings": len(findings)},
	}); err != nil {
		return "", err
	}

	return text, nil
}
