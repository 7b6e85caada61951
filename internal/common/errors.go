// Package common defines shared constants and sentinel errors used across
// the trackerctl client layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Session gate errors.
	ErrNoSession = errors.New("no active session")

	// Validation errors (no network call was attempted).
	ErrValidation = errors.New("validation error")
)
