package apperror

import (
	"errors"
	"fmt"
)

// Error categories surfaced to callers. Everything else is absorbed
// where it happens (re-ranking, title generation).
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrValidation      = errors.New("validation error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionNotFound = errors.New("session not found or access denied")
	ErrRetrieval       = errors.New("retrieval failed")
	ErrGeneration      = errors.New("generation failed")
)

// Wrap tags err with a category while keeping the cause for logs.
func Wrap(category error, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", category, err)
}
