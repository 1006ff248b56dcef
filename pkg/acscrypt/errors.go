package acscrypt

import (
	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/utils"
)

// errorFlag is a private error type that allows declaring error constants.
type errorFlag string

const (
	// All package errors are wrapping Error
	Error = errorFlag("acscrypt: error")

	// ErrUnsupportedPlatform flags an enc header value or platform name that maps
	// to no known device SDK.
	ErrUnsupportedPlatform = errorFlag("acscrypt: unsupported platform")

	// ErrAuthentication flags an envelope whose authentication tag did not verify.
	// No plaintext is ever released alongside this error.
	ErrAuthentication = errorFlag("acscrypt: authentication failed")

	// ErrMalformedEnvelope flags a compact JWE that can not be parsed.
	ErrMalformedEnvelope = errorFlag("acscrypt: malformed envelope")

	// ErrKeyGeneration flags an entropy source failure. Callers treat it as fatal.
	ErrKeyGeneration = errorFlag("acscrypt: key generation failed")

	// ErrKeyMaterial flags certificate or private key loading failures.
	ErrKeyMaterial = errorFlag("acscrypt: key material unavailable")

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
