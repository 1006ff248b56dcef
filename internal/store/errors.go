package store

import (
	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/utils"
)

// errorFlag is a private error type that allows declaring error constants.
type errorFlag string

const (
	// All package errors are wrapping Error
	Error = errorFlag("store: error")

	// ErrNotFound flags a lookup for a transaction that does not exist or whose
	// TTL elapsed. Both cases are indistinguishable to callers.
	ErrNotFound = errorFlag("store: transaction not found")

	noError = errorFlag("")
)

// Error implements the error interface.
func (self errorFlag) Error() string {
	return string(self)
}

func (self errorFlag) Unwrap() error {
	if Error == self || noError == self {
		return nil
	} else {
		return Error
	}
}

// newError returns a utils.RaisedErr{} that contains file & line of where it was called.
func newError(msg string, args ...any) error {
	return utils.NewError(1, Error, msg, args...)
}

// wrapError returns a utils.RaisedErr{} that contains file & line of where it was called.
func wrapError(cause error, msg string, args ...any) error {
	return utils.WrapError(cause, 1, Error, msg, args...)
}

// flagError returns a utils.RaisedErr{} carrying flag instead of the package Error.
func flagError(flag errorFlag, msg string, args ...any) error {
	return utils.NewError(1, flag, msg, args...)
}
