package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoggedIn is returned when a provider tool has no active session.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrIncomplete is returned by Ready when required credentials are missing.
	ErrIncomplete = errors.New("credentials incomplete")
	// ErrPermissionDenied is returned by Ready when a permission check failed definitively.
	ErrPermissionDenied = errors.New("insufficient permissions")
)

// ProviderError represents an error from a provider bridge operation.
type ProviderError struct {
	Provider  Provider
	Operation string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Operation, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err, returning nil for a nil err.
func NewProviderError(provider Provider, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Operation: operation, Err: err}
}

// Incomplete returns an ErrIncomplete error naming what is missing.
func Incomplete(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIncomplete, fmt.Sprintf(format, args...))
}
