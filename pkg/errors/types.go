package errors

import (
	"fmt"
)

// InvalidProjectID is returned when an operation targets a project that
// isn't part of the current configuration.
type InvalidProjectID struct {
	ID string
}

func (err InvalidProjectID) Error() string {
	return fmt.Sprintf("invalid project id (id=%s)", err.ID)
}

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// Kind classifies a connection failure.
type Kind int

const (
	// KindGeneric is any connection failure that isn't better described by
	// another kind.
	KindGeneric Kind = iota

	// KindUnreachable means nothing answered at the configured address,
	// which usually means the process isn't running.
	KindUnreachable
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	default:
		return "generic"
	}
}

// ConnectionError is reported by the backend clients when a connection to
// a local service fails.
type ConnectionError struct {
	Service string
	Kind    Kind
	Err     error
}

func (err ConnectionError) Error() string {
	if err.Kind == KindUnreachable {
		return fmt.Sprintf("%s not responding: %s", err.Service, err.Err)
	}
	return fmt.Sprintf("%s: %s", err.Service, err.Err)
}

func (err ConnectionError) Unwrap() error {
	return err.Err
}

// IsUnreachable returns whether `err` is a ConnectionError of kind
// KindUnreachable.
func IsUnreachable(err error) bool {
	var connErr ConnectionError
	return As(err, &connErr) && connErr.Kind == KindUnreachable
}
