package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/exewatch/internal/application"
	appsessions "github.com/bryanwahyu/exewatch/internal/application/sessions"
	"github.com/bryanwahyu/exewatch/internal/common"
	"github.com/bryanwahyu/exewatch/internal/domain/events"
	logsdomain "github.com/bryanwahyu/exewatch/internal/domain/logs"
	resultsdomain "github.com/bryanwahyu/exewatch/internal/domain/results"
	sessionsdomain "github.com/bryanwahyu/exewatch/internal/domain/sessions"
)

// stepClock hands out strictly increasing timestamps, one second apart.
type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

var _ application.Clock = (*stepClock)(nil)

type fakeSessionRepo struct {
	sessions map[string]*sessionsdomain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*sessionsdomain.Session{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *sessionsdomain.Session) error {
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) Get(_ context.Context, id string) (*sessionsdomain.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", common.ErrNotFound, id)
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) Latest(_ context.Context, limit int) ([]*sessionsdomain.Session, error) {
	out := []*sessionsdomain.Session{}
	for _, s := range r.sessions {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeSessionRepo) Finish(_ context.Context, id string, status sessionsdomain.Status, finishedAt time.Time, sum sessionsdomain.Summary) error {
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: session %s", common.ErrNotFound, id)
	}
	s.Status = status
	s.FinishedAt = &finishedAt
	s.TotalFiles = sum.TotalFiles
	s.SuspectCount = sum.SuspectCount
	s.CriticalCount = sum.CriticalCount
	return nil
}

type fakeResultRepo struct {
	created []*resultsdomain.Result
}

func (r *fakeResultRepo) Create(_ context.Context, res *resultsdomain.Result) error {
	if res.ID == "" {
		res.ID = fmt.Sprintf("result-%d", len(r.created)+1)
	}
	cp := *res
	r.created = append(r.created, &cp)
	return nil
}

func (r *fakeResultRepo) List(_ context.Context, _ resultsdomain.Filter, _, _ int) (resultsdomain.Page, error) {
	return resultsdomain.Page{}, nil
}

func (r *fakeResultRepo) Critical(_ context.Context, _ string) ([]*resultsdomain.Result, error) {
	return nil, nil
}

func (r *fakeResultRepo) MarkReviewed(_ context.Context, _ string, _ time.Time) error {
	return nil
}

type fakeLogRepo struct {
	created []*logsdomain.Log
}

func (r *fakeLogRepo) Create(_ context.Context, l *logsdomain.Log) error {
	cp := *l
	r.created = append(r.created, &cp)
	return nil
}

func (r *fakeLogRepo) List(_ context.Context, _ logsdomain.Filter, _, _ int) (logsdomain.Page, error) {
	return logsdomain.Page{}, nil
}

type published struct {
	sessionID string
	topic     string
	payload   any
}

type fakeNotifier struct {
	published []published
}

func (n *fakeNotifier) Publish(sessionID, topic string, payload any) {
	n.published = append(n.published, published{sessionID, topic, payload})
}

type fixture struct {
	svc      *Service
	sessions *fakeSessionRepo
	results  *fakeResultRepo
	logs     *fakeLogRepo
	notifier *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sessions: newFakeSessionRepo(),
		results:  &fakeResultRepo{},
		logs:     &fakeLogRepo{},
		notifier: &fakeNotifier{},
	}
	clock := &stepClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	sessionSvc := appsessions.NewService(f.sessions, f.logs, clock)
	f.svc = NewService(sessionSvc, f.results, f.logs, f.notifier, clock)
	return f
}

func (f *fixture) addSession(t *testing.T) *sessionsdomain.Session {
	t.Helper()
	s := &sessionsdomain.Session{
		ID:          "sess-1",
		ClientLabel: "host-a",
		Status:      sessionsdomain.StatusActive,
		StartedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.sessions.Create(context.Background(), s))
	return s
}

func envelope(t *testing.T, kind string, payload any) events.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return events.Envelope{Type: kind, Payload: data}
}

func TestHandle_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.Handle(ctx, events.Envelope{Type: "", Payload: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, common.ErrValidation)

	err = f.svc.Handle(ctx, events.Envelope{Type: "progress"})
	assert.ErrorIs(t, err, common.ErrValidation)

	err = f.svc.Handle(ctx, events.Envelope{Type: "progress", Payload: json.RawMessage(`{not json`)})
	assert.ErrorIs(t, err, common.ErrValidation)

	// sessionId missing from payload
	err = f.svc.Handle(ctx, events.Envelope{Type: "progress", Payload: json.RawMessage(`{"percent":10}`)})
	assert.ErrorIs(t, err, common.ErrValidation)

	// none of the rejects reached the store or the fan-out
	assert.Empty(t, f.logs.created)
	assert.Empty(t, f.notifier.published)
}

func TestHandle_UnknownKind(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Handle(context.Background(), envelope(t, "heartbeat", map[string]any{"sessionId": "sess-1"}))
	assert.ErrorIs(t, err, common.ErrUnknownEventKind)
	assert.Empty(t, f.notifier.published)
}

func TestHandleProgress(t *testing.T) {
	f := newFixture(t)
	f.addSession(t)

	ev := events.Progress{SessionID: "sess-1", Percent: 42.5, Module: "heuristics", ElapsedMs: 1500}
	require.NoError(t, f.svc.Handle(context.Background(), envelope(t, "progress", ev)))

	require.Len(t, f.logs.created, 1)
	l := f.logs.created[0]
	assert.Equal(t, "sess-1", l.SessionID)
	assert.Equal(t, logsdomain.LevelInfo, l.Level)
	assert.Equal(t, "Progress: 42.5% - heuristics", l.Message)
	assert.Equal(t, map[string]any{"module": "heuristics", "elapsedMs": int64(1500)}, l.Context)

	require.Len(t, f.notifier.published, 1)
	assert.Equal(t, "sess-1", f.notifier.published[0].sessionID)
	assert.Equal(t, "progress", f.notifier.published[0].topic)
	assert.Equal(t, ev, f.notifier.published[0].payload)

	// progress never creates a result row
	assert.Empty(t, f.results.created)
}

func TestHandleFinding_ElevatedSeverity(t *testing.T) {
	f := newFixture(t)
	f.addSession(t)
	detectedAt := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	ev := events.Finding{
		SessionID:  "sess-1",
		Filename:   "dropper.exe",
		Path:       "C:/tmp/dropper.exe",
		Status:     resultsdomain.StatusSuspect,
		Severity:   resultsdomain.SeverityCritical,
		DetectedAt: detectedAt,
		Hash:       "abc123",
	}
	require.NoError(t, f.svc.Handle(context.Background(), envelope(t, "finding", ev)))

	require.Len(t, f.results.created, 1)
	res := f.results.created[0]
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, detectedAt, res.DetectedAt)
	assert.Equal(t, "abc123", res.Hash)
	assert.False(t, res.Reviewed)

	require.Len(t, f.logs.created, 1)
	assert.Equal(t, logsdomain.LevelWarn, f.logs.created[0].Level)
	assert.Equal(t, "Finding: dropper.exe (CRITICAL)", f.logs.created[0].Message)

	// the fan-out carries the persisted row, identifier included
	require.Len(t, f.notifier.published, 1)
	assert.Equal(t, "finding", f.notifier.published[0].topic)
	got, ok := f.notifier.published[0].payload.(*resultsdomain.Result)
	require.True(t, ok)
	assert.Equal(t, res.ID, got.ID)
}

func TestHandleFinding_LowSeverityLogsInfoAndDefaultsDetectedAt(t *testing.T) {
	f := newFixture(t)
	f.addSession(t)

	ev := events.Finding{
		SessionID: "sess-1",
		Filename:  "readme.txt",
		Path:      "C:/tmp/readme.txt",
		Status:    resultsdomain.StatusOK,
		Severity:  resultsdomain.SeverityLow,
	}
	require.NoError(t, f.svc.Handle(context.Background(), envelope(t, "finding", ev)))

	require.Len(t, f.results.created, 1)
	assert.False(t, f.results.created[0].DetectedAt.IsZero())

	require.Len(t, f.logs.created, 1)
	assert.Equal(t, logsdomain.LevelInfo, f.logs.created[0].Level)
}

// Re-submitting the same finding is not deduplicated.
func TestHandleFinding_DuplicateCreatesSecondRow(t *testing.T) {
	f := newFixture(t)
	f.addSession(t)

	ev := envelope(t, "finding", events.Finding{
		SessionID: "sess-1",
		Filename:  "dropper.exe",
		Path:      "C:/tmp/dropper.exe",
		Status:    resultsdomain.StatusSuspect,
		Severity:  resultsdomain.SeverityHigh,
	})
	require.NoError(t, f.svc.Handle(context.Background(), ev))
	require.NoError(t, f.svc.Handle(context.Background(), ev))

	require.Len(t, f.results.created, 2)
	assert.NotEqual(t, f.results.created[0].ID, f.results.created[1].ID)
}

func TestHandleError(t *testing.T) {
	f := newFixture(t)
	f.addSession(t)

	ev := events.Error{SessionID: "sess-1", Message: "disk read failed", Code: "E_IO"}
	require.NoError(t, f.svc.Handle(context.Background(), envelope(t, "error", ev)))

	require.Len(t, f.logs.created, 1)
	l := f.logs.created[0]
	assert.Equal(t, logsdomain.LevelError, l.Level)
	assert.Equal(t, "disk read failed", l.Message)
	assert.Equal(t, map[string]any{"code": "E_IO"}, l.Context)

	s := f.sessions.sessions["sess-1"]
	assert.Equal(t, sessionsdomain.StatusError, s.Status)
	require.NotNil(t, s.FinishedAt)
	// an errored session records zero counters
	assert.Zero(t, s.TotalFiles)
	assert.Zero(t, s.SuspectCount)
	assert.Zero(t, s.CriticalCount)

	require.Len(t, f.notifier.published, 1)
	assert.Equal(t, "error", f.notifier.published[0].topic)
}

func TestHandleDone(t *testing.T) {
	f := newFixture(t)
	f.addSession(t)

	sum := &sessionsdomain.Summary{TotalFiles: 120, SuspectCount: 3, CriticalCount: 1, Duration: 90}
	ev := events.Done{SessionID: "sess-1", Summary: sum}
	require.NoError(t, f.svc.Handle(context.Background(), envelope(t, "done", ev)))

	s := f.sessions.sessions["sess-1"]
	assert.Equal(t, sessionsdomain.StatusDone, s.Status)
	require.NotNil(t, s.FinishedAt)
	assert.Equal(t, 120, s.TotalFiles)
	assert.Equal(t, 3, s.SuspectCount)
	assert.Equal(t, 1, s.CriticalCount)

	require.Len(t, f.logs.created, 1)
	l := f.logs.created[0]
	assert.Equal(t, logsdomain.LevelInfo, l.Level)
	assert.Contains(t, l.Message, "Scan completed. Summary:")
	assert.Contains(t, l.Message, `"totalFiles":120`)

	require.Len(t, f.notifier.published, 1)
	assert.Equal(t, "done", f.notifier.published[0].topic)
}

// A terminal event for a session the store never saw still logs and fans
// out; the missing row is not an ingest failure.
func TestHandleDone_UnknownSessionIsNonFatal(t *testing.T) {
	f := newFixture(t)

	ev := events.Done{SessionID: "ghost", Summary: nil}
	require.NoError(t, f.svc.Handle(context.Background(), envelope(t, "done", ev)))

	require.Len(t, f.logs.created, 1)
	require.Len(t, f.notifier.published, 1)
}

// Scenario: a full agent run in order - progress, finding, done.
func TestHandle_FullSessionFlow(t *testing.T) {
	f := newFixture(t)
	f.addSession(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Handle(ctx, envelope(t, "progress", events.Progress{
		SessionID: "sess-1", Percent: 50, Module: "signatures",
	})))
	require.NoError(t, f.svc.Handle(ctx, envelope(t, "finding", events.Finding{
		SessionID: "sess-1", Filename: "dropper.exe", Path: "C:/tmp/dropper.exe",
		Status: resultsdomain.StatusSuspect, Severity: resultsdomain.SeverityCritical,
	})))
	require.NoError(t, f.svc.Handle(ctx, envelope(t, "done", events.Done{
		SessionID: "sess-1",
		Summary:   &sessionsdomain.Summary{TotalFiles: 10, SuspectCount: 1, CriticalCount: 1},
	})))

	require.Len(t, f.notifier.published, 3)
	assert.Equal(t, "progress", f.notifier.published[0].topic)
	assert.Equal(t, "finding", f.notifier.published[1].topic)
	assert.Equal(t, "done", f.notifier.published[2].topic)

	assert.Len(t, f.results.created, 1)
	assert.Len(t, f.logs.created, 3)
	assert.Equal(t, sessionsdomain.StatusDone, f.sessions.sessions["sess-1"].Status)
}
