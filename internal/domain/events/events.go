package events

import (
	"encoding/json"
	"time"

	"github.com/bryanwahyu/exewatch/internal/domain/results"
	"github.com/bryanwahyu/exewatch/internal/domain/sessions"
)

// Kind enum of envelope types pushed by the scanning agent.
type Kind string

const (
	KindProgress Kind = "progress"
	KindFinding  Kind = "finding"
	KindError    Kind = "error"
	KindDone     Kind = "done"
)

// Envelope is the wire shape of POST /ingest/event. Payload stays raw until
// the classifier knows the kind.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Progress is transient: it produces a log line and a fan-out message but no
// dedicated row.
type Progress struct {
	SessionID string  `json:"sessionId"`
	Percent   float64 `json:"percent"`
	Module    string  `json:"module"`
	ElapsedMs int64   `json:"elapsedMs"`
}

// Finding mirrors the Result shape minus the identifier; the store assigns
// one on persist.
type Finding struct {
	SessionID  string           `json:"sessionId"`
	Filename   string           `json:"filename"`
	Path       string           `json:"path"`
	Status     results.Status   `json:"status"`
	Severity   results.Severity `json:"severity"`
	DetectedAt time.Time        `json:"detectedAt,omitempty"`
	Type       string           `json:"type,omitempty"`
	Hash       string           `json:"hash,omitempty"`
	Notes      string           `json:"notes,omitempty"`
}

// Error marks the session terminally failed.
type Error struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
}

// Done marks the session terminally complete. A nil summary zeroes the
// session counters.
type Done struct {
	SessionID string            `json:"sessionId"`
	Summary   *sessions.Summary `json:"summary,omitempty"`
}
