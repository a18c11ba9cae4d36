package domain

import "errors"

// Error taxonomy shared across handlers, services and repositories. Callers
// classify failures with errors.Is; wrapped messages carry the detail.
var (
	ErrNotFound          = errors.New("record not found")
	ErrValidation        = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPersistence       = errors.New("persistence failure")
	ErrProtocol          = errors.New("protocol error")
	ErrInternal          = errors.New("internal error")
)
