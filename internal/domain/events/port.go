package events

// Notifier is the fan-out capability the ingest pipeline publishes through.
// Publish is fire-and-forget: best effort, at-most-once per subscriber
// currently in the session's room, no backlog for late joiners.
type Notifier interface {
	Publish(sessionID, topic string, payload any)
}
