package middleware

import (
	"errors"
	"testing"

	"github.com/bryanwahyu/exewatch/internal/common"
)

func TestValidateSeverity(t *testing.T) {
	for _, v := range []string{"", "LOW", "MEDIUM", "HIGH", "CRITICAL"} {
		if err := ValidateSeverity(v); err != nil {
			t.Errorf("ValidateSeverity(%q) = %v, want nil", v, err)
		}
	}
	if err := ValidateSeverity("EXTREME"); !errors.Is(err, common.ErrValidation) {
		t.Errorf("ValidateSeverity(EXTREME) = %v, want ErrValidation", err)
	}
	// enum values are case sensitive
	if err := ValidateSeverity("low"); !errors.Is(err, common.ErrValidation) {
		t.Errorf("ValidateSeverity(low) = %v, want ErrValidation", err)
	}
}

func TestValidateResultStatus(t *testing.T) {
	for _, v := range []string{"", "OK", "SUSPECT"} {
		if err := ValidateResultStatus(v); err != nil {
			t.Errorf("ValidateResultStatus(%q) = %v, want nil", v, err)
		}
	}
	if err := ValidateResultStatus("MAYBE"); !errors.Is(err, common.ErrValidation) {
		t.Errorf("ValidateResultStatus(MAYBE) = %v, want ErrValidation", err)
	}
}

func TestValidateLogLevel(t *testing.T) {
	for _, v := range []string{"", "INFO", "WARN", "ERROR"} {
		if err := ValidateLogLevel(v); err != nil {
			t.Errorf("ValidateLogLevel(%q) = %v, want nil", v, err)
		}
	}
	if err := ValidateLogLevel("TRACE"); !errors.Is(err, common.ErrValidation) {
		t.Errorf("ValidateLogLevel(TRACE) = %v, want ErrValidation", err)
	}
}
