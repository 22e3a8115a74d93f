package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/exewatch/internal/application"
	"github.com/bryanwahyu/exewatch/internal/common"
	domain "github.com/bryanwahyu/exewatch/internal/domain/ai"
	logsdomain "github.com/bryanwahyu/exewatch/internal/domain/logs"
	resultsdomain "github.com/bryanwahyu/exewatch/internal/domain/results"
	sessionsdomain "github.com/bryanwahyu/exewatch/internal/domain/sessions"
	"github.com/bryanwahyu/exewatch/internal/infra/db/sqlite"
)

type fakeClient struct {
	got  domain.SummaryRequest
	text string
	err  error
}

func (c *fakeClient) Summarize(_ context.Context, req domain.SummaryRequest) (string, error) {
	c.got = req
	return c.text, c.err
}

func newService(t *testing.T, client domain.Client) (*Service, *sqlite.DB) {
	t.Helper()
	store, err := sqlite.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewService(client,
		sqlite.NewSessionRepository(store),
		sqlite.NewResultRepository(store),
		sqlite.NewLogRepository(store),
		application.SystemClock{},
	), store
}

func TestSummarize_NotConfigured(t *testing.T) {
	svc, _ := newService(t, nil)

	_, err := svc.Summarize(context.Background(), "sess-1")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestSummarize_UnknownSession(t *testing.T) {
	svc, _ := newService(t, &fakeClient{})

	_, err := svc.Summarize(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSummarize_Success(t *testing.T) {
	client := &fakeClient{text: "one critical dropper, recommend isolation"}
	svc, store := newService(t, client)
	ctx := context.Background()

	sess := &sessionsdomain.Session{
		ID:          "sess-1",
		ClientLabel: "host-a",
		Status:      sessionsdomain.StatusDone,
		StartedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, sqlite.NewSessionRepository(store).Create(ctx, sess))
	require.NoError(t, sqlite.NewResultRepository(store).Create(ctx, &resultsdomain.Result{
		SessionID:  "sess-1",
		Filename:   "dropper.exe",
		Path:       "C:/tmp/dropper.exe",
		Status:     resultsdomain.StatusSuspect,
		Severity:   resultsdomain.SeverityCritical,
		DetectedAt: sess.StartedAt.Add(time.Second),
	}))

	text, err := svc.Summarize(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, client.text, text)

	require.NotNil(t, client.got.Session)
	assert.Equal(t, "sess-1", client.got.Session.ID)
	require.Len(t, client.got.Findings, 1)
	assert.Equal(t, "dropper.exe", client.got.Findings[0].Filename)

	// an audit line is written for the generated summary
	page, err := sqlite.NewLogRepository(store).List(ctx, logsdomain.Filter{SessionID: "sess-1"}, 1, 50)
	require.NoError(t, err)
	require.Len(t, page.Logs, 1)
	assert.Equal(t, "AI summary generated", page.Logs[0].Message)
}

func TestSummarize_ProviderError(t *testing.T) {
	providerErr := errors.New("rate limited")
	client := &fakeClient{err: providerErr}
	svc, store := newService(t, client)
	ctx := context.Background()

	require.NoError(t, sqlite.NewSessionRepository(store).Create(ctx, &sessionsdomain.Session{
		ID:          "sess-1",
		ClientLabel: "host-a",
		Status:      sessionsdomain.StatusDone,
		StartedAt:   time.Now().UTC(),
	}))

	_, err := svc.Summarize(ctx, "sess-1")
	assert.ErrorIs(t, err, providerErr)
}
