// Package errs defines the error taxonomy shared by the journal components.
// Components wrap these sentinels with fmt.Errorf("...: %w") and callers
// classify with errors.Is / errors.As.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks caller mistakes (bad upload type, empty payload).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a missing entry or audio file.
	ErrNotFound = errors.New("not found")

	// ErrNotConfigured marks a client that cannot be constructed
	// (missing API key, unreadable credentials, unknown driver).
	ErrNotConfigured = errors.New("not configured")
)

// ProviderError wraps a transport or remote-service failure from an
// external provider (speech, sentiment, storage).
type ProviderError struct {
	Provider string // e.g. "google-speech", "gemini", "drive"
	Op       string // e.g. "recognize", "chat", "upload"
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Provider wraps err as a ProviderError. Returns nil for a nil err.
func Provider(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// NotConfigured returns an error matching ErrNotConfigured.
func NotConfigured(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotConfigured, fmt.Sprintf(format, args...))
}

// NotFound wraps cause (usually fs.ErrNotExist) so the result matches both
// ErrNotFound and the cause.
func NotFound(what string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("%w: %s: %w", ErrNotFound, what, cause)
}

// IsProvider reports whether err came from an external provider.
func IsProvider(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
