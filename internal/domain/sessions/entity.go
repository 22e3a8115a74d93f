package sessions

import (
	"time"
)

// Status enum. A session starts ACTIVE and moves to DONE or ERROR once,
// driven by the agent's terminal events.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusDone   Status = "DONE"
	StatusError  Status = "ERROR"
)

// Aggregate Root: Session, one scan run initiated by a labeled client.
// Counters are meaningful only once the session has left ACTIVE.
type Session struct {
	ID            string     `json:"id"`
	ClientLabel   string     `json:"clientLabel"`
	Status        Status     `json:"status"`
	StartedAt     time.Time  `json:"startedAt"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
	TotalFiles    int        `json:"totalFiles"`
	SuspectCount  int        `json:"suspectCount"`
	CriticalCount int        `json:"criticalCount"`
}

// Summary carries the terminal counters reported by the agent's done event.
type Summary struct {
	TotalFiles    int   `json:"totalFiles"`
	SuspectCount  int   `json:"suspectCount"`
	CriticalCount int   `json:"criticalCount"`
	Duration      int64 `json:"duration"`
}
