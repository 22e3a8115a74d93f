package logs

import (
	"time"
)

// Level enum
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Log is one append-only audit line, associated with zero or one session.
type Log struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId,omitempty"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
}

// Filter narrows a listing; zero values are unconstrained.
type Filter struct {
	SessionID string
	Level     Level
}

// Page is a paginated listing in the shape the dashboard client consumes.
type Page struct {
	Logs  []*Log `json:"logs"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Pages int    `json:"pages"`
}
