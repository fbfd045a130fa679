package store

import "errors"

// Error kinds surfaced by the core. Callers match with errors.Is; the HTTP
// layer maps them to status codes.
var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrConsistency       = errors.New("consistency violation")
)
