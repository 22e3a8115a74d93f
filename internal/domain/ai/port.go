package ai

import (
	"context"

	"github.com/bryanwahyu/exewatch/internal/domain/results"
	"github.com/bryanwahyu/exewatch/internal/domain/sessions"
)

// SummaryRequest bundles what the analyst sees: the session row and its
// unreviewed elevated findings.
type SummaryRequest struct {
	Session  *sessions.Session
	Findings []*results.Result
}

type Client interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}
