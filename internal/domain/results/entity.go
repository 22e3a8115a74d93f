package results

import (
	"time"
)

// Status enum
type Status string

const (
	StatusOK      Status = "OK"
	StatusSuspect Status = "SUSPECT"
)

// Severity enum, ordered LOW < MEDIUM < HIGH < CRITICAL
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Elevated reports whether findings of this severity warrant operator
// attention (WARN-level logging, the critical queue).
func (s Severity) Elevated() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Result is one detection emitted during a session. Immutable once written
// except for the reviewed/reviewedAt pair, which the acknowledge operation
// sets exactly once.
type Result struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"sessionId"`
	Filename   string     `json:"filename"`
	Path       string     `json:"path"`
	Status     Status     `json:"status"`
	Severity   Severity   `json:"severity"`
	DetectedAt time.Time  `json:"detectedAt"`
	Type       string     `json:"type,omitempty"`
	Hash       string     `json:"hash,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Reviewed   bool       `json:"reviewed"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty"`
}

// Filter narrows a listing; zero values are unconstrained and predicates
// are ANDed.
type Filter struct {
	SessionID string
	Severity  Severity
	Status    Status
}

// Page is a paginated listing in the shape the dashboard client consumes.
type Page struct {
	Results []*Result `json:"results"`
	Total   int       `json:"total"`
	Page    int       `json:"page"`
	Limit   int       `json:"limit"`
	Pages   int       `json:"pages"`
}
