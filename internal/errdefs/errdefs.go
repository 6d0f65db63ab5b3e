// Package errdefs defines the error categories shared across consultdeck
// packages so the HTTP layer can map failures to responses without string
// matching: validation failures (bad input, rejected immediately), and
// aggregated provider-chain failures. Storage failures stay plain wrapped
// errors and always surface as pipeline failures.
package errdefs

import (
	"errors"
	"fmt"
)

// ValidationError marks input the caller can fix: unsupported file types,
// empty text, audio samples below the minimum size. It is never retried and
// never triggers a provider fallback.
type ValidationError struct {
	// Msg is the human-readable reason shown to the caller.
	Msg string
}

// Error implements the error interface.
func (e *ValidationError) Error() string { return e.Msg }

// Validationf constructs a ValidationError with a formatted message.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
