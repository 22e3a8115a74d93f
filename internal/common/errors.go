package common

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across layers. Route handlers map them to HTTP
// status codes; everything else becomes a 500.
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrUnknownEventKind = errors.New("unknown event type")
)

// ErrInvalidPagination is a ValidationError: errors.Is(err, ErrValidation)
// holds for it.
var ErrInvalidPagination = fmt.Errorf("%w: page and limit must be positive", ErrValidation)
