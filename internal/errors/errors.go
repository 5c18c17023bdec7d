package errors

import (
	"errors"
	"fmt"
)

// Failure taxonomy for authenticated dispatch. The dispatcher is the only
// place these are translated into navigation and notifications; lower layers
// return them unchanged.
var (
	// Session errors
	ErrNotAuthorized   = errors.New("not authorized")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// Permission errors
	ErrForbidden       = errors.New("forbidden")
	ErrNeedsEnrollment = errors.New("needs enrollment")

	// Token errors
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Transport errors
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
