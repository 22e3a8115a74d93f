package ai

import "errors"

// ErrNotConfigured indicates no AI provider key was configured; the analyze
// endpoint answers 503 in that case.
var ErrNotConfigured = errors.New("ai analyst not configured")
