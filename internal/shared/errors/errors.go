package errors

import "errors"

// Domain errors
var (
	// Input errors. Every error in this group wraps ErrInvalidInput so the API
	// layer can map them to a client error with a single errors.Is check.
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmptyTarget       = wrap(ErrInvalidInput, "target cannot be empty")
	ErrUnsupportedScheme = wrap(ErrInvalidInput, "unsupported scheme")
	ErrNoURLInCommand    = wrap(ErrInvalidInput, "no http(s) URL found in command")
	ErrInvalidTarget     = wrap(ErrInvalidInput, "malformed target")

	// Upstream errors
	ErrServiceUnavailable = errors.New("external service error")
	ErrUnexpectedPayload  = wrap(ErrServiceUnavailable, "unexpected response payload")
)

type wrappedError struct {
	parent error
	msg    string
}

func wrap(parent error, msg string) error {
	return &wrappedError{parent: parent, msg: msg}
}

func (e *wrappedError) Error() string { return e.msg }

func (e *wrappedError) Unwrap() error { return e.parent }

// IsInputError reports whether err was caused by malformed client input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsServiceError reports whether err originates from an upstream service.
func IsServiceError(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}
