package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Registries and state holders return
// these (optionally wrapped) so callers can branch with errors.Is.
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	// ErrInvalidState: entity in wrong state for the requested operation.
	ErrInvalidState = errors.New("invalid state")
)
