package models

import "errors"

// Failure kinds surfaced by the task core. Callers match them with errors.Is;
// the concrete error usually wraps one of these with extra context.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrConflict         = errors.New("conflict")
)
