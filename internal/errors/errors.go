package errors

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Common error types for the TaskFlow client
var (
	// Credential errors
	ErrNoAccessToken  = errors.New("no access token")
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrNoSession      = errors.New("no session id available")
	ErrMissingProfile = errors.New("missing user profile")

	// Session errors
	ErrSessionExpired  = errors.New("session expired")
	ErrNotRecoverable  = errors.New("session not recoverable")
	ErrForbiddenRole   = errors.New("unauthorized role")
	ErrRefreshRejected = errors.New("refresh rejected")

	// Storage errors
	ErrCorruptState    = errors.New("corrupt local state")
	ErrWrongPassphrase = errors.New("credential file is sealed with a different passphrase")

	// General errors
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnsupported    = errors.New("unsupported operation")
)

// Wrapf annotates err with a message and the call stack. The result still
// matches err with Is and As. A nil err yields nil.
func Wrapf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers importing this package under the
// errors name do not also need the standard library package.
func New(text string) error {
	return errors.New(text)
}

// Join is errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
