package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bryanwahyu/exewatch/internal/application"
	appsessions "github.com/bryanwahyu/exewatch/internal/application/sessions"
	"github.com/bryanwahyu/exewatch/internal/common"
	"github.com/bryanwahyu/exewatch/internal/domain/events"
	logsdomain "github.com/bryanwahyu/exewatch/internal/domain/logs"
	resultsdomain "github.com/bryanwahyu/exewatch/internal/domain/results"
	sessionsdomain "github.com/bryanwahyu/exewatch/internal/domain/sessions"
)

// Service is the event classifier: it validates the inbound envelope,
// applies the kind-specific side effects, and re-publishes the canonical
// payload to the session's subscribers. Re-submitting the same event is not
// deduplicated; a repeated finding creates a second row and a repeated
// terminal event re-applies, last write wins.
type Service struct {
	sessions *appsessions.Service
	results  resultsdomain.Repository
	logs     logsdomain.Repository
	notifier events.Notifier
	clock    application.Clock
}

// NewService wires the classifier. The notifier is injected here, at
// construction time; there is no settable slot.
func NewService(
	sessions *appsessions.Service,
	results resultsdomain.Repository,
	logs logsdomain.Repository,
	notifier events.Notifier,
	clock application.Clock,
) *Service {
	return &Service{
		sessions: sessions,
		results:  results,
		logs:     logs,
		notifier: notifier,
		clock:    clock,
	}
}

// Handle classifies one envelope and runs it to completion. Validation and
// unknown-kind failures produce no side effects and no fan-out.
func (s *Service) Handle(ctx context.Context, env events.Envelope) error {
	if env.Type == "" || len(env.Payload) == 0 {
		return fmt.Errorf("%w: event type and payload required", common.ErrValidation)
	}

	var ref struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(env.Payload, &ref); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", common.ErrValidation, err)
	}
	if ref.SessionID == "" {
		return fmt.Errorf("%w: sessionId is required in payload", common.ErrValidation)
	}

	switch events.Kind(env.Type) {
	case events.KindProgress:
		return s.handleProgress(ctx, env.Payload)
	case events.KindFinding:
		return s.handleFinding(ctx, env.Payload)
	case events.KindError:
		return s.handleError(ctx, env.Payload)
	case events.KindDone:
		return s.handleDone(ctx, env.Payload)
	default:
		return fmt.Errorf("%w: %q", common.ErrUnknownEventKind, env.Type)
	}
}

// handleProgress is log-only: progress is transient state, no dedicated row.
func (s *Service) handleProgress(ctx context.Context, payload json.RawMessage) error {
	var ev events.Progress
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("%w: malformed progress payload: %v", common.ErrValidation, err)
	}

	if err := s.logs.Create(ctx, &logsdomain.Log{
		SessionID: ev.SessionID,
		Level:     logsdomain.LevelInfo,
		Message:   fmt.Sprintf("Progress: %v%% - %s", ev.Percent, ev.Module),
		Timestamp: s.clock.Now(),
		Context:   map[string]any{"module": ev.Module, "elapsedMs": ev.ElapsedMs},
	}); err != nil {
		return err
	}

	s.notifier.Publish(ev.SessionID, string(events.KindProgress), ev)
	return nil
}

// handleFinding persists the result row, then fans out the persisted row so
// subscribers see the store-assigned identifier.
func (s *Service) handleFinding(ctx context.Context, payload json.RawMessage) error {
	var ev events.Finding
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("%w: malformed finding payload: %v", common.ErrValidation, err)
	}

	detectedAt := ev.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = s.clock.Now()
	}
	res := &resultsdomain.Result{
		SessionID:  ev.SessionID,
		Filename:   ev.Filename,
		Path:       ev.Path,
		Status:     ev.Status,
		Severity:   ev.Severity,
		DetectedAt: detectedAt,
		Type:       ev.Type,
		Hash:       ev.Hash,
		Notes:      ev.Notes,
	}
	if err := s.results.Create(ctx, res); err != nil {
		return err
	}

	level := logsdomain.LevelInfo
	if ev.Severity.Elevated() {
		level = logsdomain.LevelWarn
	}
	if err := s.logs.Create(ctx, &logsdomain.Log{
		SessionID: ev.SessionID,
		Level:     level,
		Message:   fmt.Sprintf("Finding: %s (%s)", ev.Filename, ev.Severity),
		Timestamp: s.clock.Now(),
		Context:   map[string]any{"filename": ev.Filename, "severity": string(ev.Severity)},
	}); err != nil {
		return err
	}

	s.notifier.Publish(ev.SessionID, string(events.KindFinding), res)
	return nil
}

// handleError logs, then applies the ERROR transition with no summary, so an
// errored session records zero counters.
func (s *Service) handleError(ctx context.Context, payload json.RawMessage) error {
	var ev events.Error
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("%w: malformed error payload: %v", common.ErrValidation, err)
	}

	logCtx := map[string]any{}
	if ev.Code != "" {
		logCtx["code"] = ev.Code
	}
	if err := s.logs.Create(ctx, &logsdomain.Log{
		SessionID: ev.SessionID,
		Level:     logsdomain.LevelError,
		Message:   ev.Message,
		Timestamp: s.clock.Now(),
		Context:   logCtx,
	}); err != nil {
		return err
	}

	if err := s.finish(ctx, ev.SessionID, sessionsdomain.StatusError, nil); err != nil {
		return err
	}

	s.notifier.Publish(ev.SessionID, string(events.KindError), ev)
	return nil
}

// handleDone applies the DONE transition with the reported summary (or
// zeros), then logs the summary.
func (s *Service) handleDone(ctx context.Context, payload json.RawMessage) error {
	var ev events.Done
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("%w: malformed done payload: %v", common.ErrValidation, err)
	}

	if err := s.finish(ctx, ev.SessionID, sessionsdomain.StatusDone, ev.Summary); err != nil {
		return err
	}

	summaryJSON, _ := json.Marshal(ev.Summary)
	var logCtx map[string]any
	if ev.Summary != nil {
		logCtx = map[string]any{
			"totalFiles":    ev.Summary.TotalFiles,
			"suspectCount":  ev.Summary.SuspectCount,
			"criticalCount": ev.Summary.CriticalCount,
			"duration":      ev.Summary.Duration,
		}
	}
	if err := s.logs.Create(ctx, &logsdomain.Log{
		SessionID: ev.SessionID,
		Level:     logsdomain.LevelInfo,
		Message:   fmt.Sprintf("Scan completed. Summary: %s", summaryJSON),
		Timestamp: s.clock.Now(),
		Context:   logCtx,
	}); err != nil {
		return err
	}

	s.notifier.Publish(ev.SessionID, string(events.KindDone), ev)
	return nil
}

// finish treats an unknown session as non-fatal: the agent may retry a
// terminal event after an earlier success, and the relay still fans out.
func (s *Service) finish(ctx context.Context, sessionID string, status sessionsdomain.Status, sum *sessionsdomain.Summary) error {
	err := s.sessions.Finish(ctx, sessionID, status, sum)
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrNotFound) {
		slog.Warn("terminal event for unknown session", "sessionId", sessionID, "status", string(status))
		return nil
	}
	return err
}
