// Package errors provides the error helpers used throughout devmirror. Errors
// are wrapped with a short description of what was being attempted so that
// the final message reads like a stack of operations, e.g.
// "start service: reconnect agent: connection refused".
package errors

import (
	goerrors "errors"
	"fmt"
)

// New creates a new error with the given formatted message.
func New(format string, args ...interface{}) error {
	if len(args) == 0 {
		return goerrors.New(format)
	}
	return fmt.Errorf(format, args...)
}

type withContext struct {
	context string
	err     error
}

func (err withContext) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err withContext) Unwrap() error {
	return err.err
}

// WithContext annotates `err` with a description of the operation that
// failed. A nil error stays nil.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return withContext{context: context, err: err}
}

// RootCause strips every layer of context added by WithContext and returns
// the underlying error.
func RootCause(err error) error {
	for {
		wrapped, ok := err.(withContext)
		if !ok {
			return err
		}
		err = wrapped.err
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

// FriendlyError is an error whose message is meant to be shown to the user
// as is, without the context stack.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError from a format string.
func NewFriendlyError(format string, args ...interface{}) FriendlyError {
	return FriendlyError{fmt.Sprintf(format, args...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the message that should be shown to the user.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}

// Friendly is implemented by errors that carry a user-facing message.
type Friendly interface {
	FriendlyMessage() string
}

// GetPrintableMessage returns the friendly message for `err` if one exists
// anywhere in its chain, and the full error string otherwise.
func GetPrintableMessage(err error) string {
	var friendly Friendly
	if As(err, &friendly) {
		return friendly.FriendlyMessage()
	}
	return err.Error()
}
