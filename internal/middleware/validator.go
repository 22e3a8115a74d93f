package middleware

import (
	"fmt"

	"github.com/bryanwahyu/exewatch/internal/common"
	"github.com/bryanwahyu/exewatch/internal/domain/logs"
	"github.com/bryanwahyu/exewatch/internal/domain/results"
)

// Query-parameter validation for the listing routes. Empty values mean the
// filter is absent and always pass.

func ValidateSeverity(severity string) error {
	switch results.Severity(severity) {
	case "", results.SeverityLow, results.SeverityMedium, results.SeverityHigh, results.SeverityCritical:
		return nil
	}
	return fmt.Errorf("%w: invalid severity %q (allowed: LOW, MEDIUM, HIGH, CRITICAL)", common.ErrValidation, severity)
}

func ValidateResultStatus(status string) error {
	switch results.Status(status) {
	case "", results.StatusOK, results.StatusSuspect:
		return nil
	}
	return fmt.Errorf("%w: invalid status %q (allowed: OK, SUSPECT)", common.ErrValidation, status)
}

func ValidateLogLevel(level string) error {
	switch logs.Level(level) {
	case "", logs.LevelInfo, logs.LevelWarn, logs.LevelError:
		return nil
	}
	return fmt.Errorf("%w: invalid level %q (allowed: INFO, WARN, ERROR)", common.ErrValidation, level)
}
