package errors

import (
	"errors"
	"fmt"
)

// Common error categories for the portal gateway
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRefreshFailed    = errors.New("token refresh failed")

	ErrProfileUnavailable = errors.New("user profile unavailable")
	ErrMalformedConfig    = errors.New("malformed tenant config")
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
