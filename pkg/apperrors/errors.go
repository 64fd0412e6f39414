package apperrors

import "errors"

var (
	// ErrEmptyInput is returned when a caller submits no usable input values.
	ErrEmptyInput = errors.New("empty input")
	// ErrUnknownInputKind is returned for an unsupported batch input type.
	ErrUnknownInputKind = errors.New("unknown input kind")
	// ErrInvalidConfig is returned when a scoring configuration fails validation.
	ErrInvalidConfig = errors.New("invalid scoring config")
	// ErrReferenceUnavailable is returned when an operation requires the
	// optional reference tables and they are not present in the store.
	ErrReferenceUnavailable = errors.New("reference tables unavailable")
)
