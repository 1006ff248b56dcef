package transport

import (
	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/utils"
)

// errorFlag is a private error type that allows declaring error constants.
type errorFlag string

const (
	// All package errors are wrapping Error
	Error = errorFlag("transport: error")

	// SerializationError flags Marshal/Unmarshal failures.
	SerializationError = errorFlag("transport: serialization error")

	// ValidationError flags message Check failures.
	ValidationError = errorFlag("transport: validation error")

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

// wrapError returns a utils.RaisedErr{} that contains file & line of where it was called.
func wrapError(cause error, msg string, args ...any) error {
	return utils.WrapError(cause, 1, Error, msg, args...)
}
