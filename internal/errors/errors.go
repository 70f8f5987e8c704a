package errors

import (
	"errors"
	"fmt"
)

// Common error types for the truck document service
var (
	// Authentication errors
	ErrAuth             = errors.New("authentication failed")
	ErrNotSignedIn      = errors.New("not signed in")
	ErrUnknownDevice    = errors.New("unknown device")
	ErrSessionLoggedOut = errors.New("session logged out")

	// Upload errors
	ErrUpload       = errors.New("upload failed")
	ErrFileTooLarge = errors.New("file too large")

	// Document store errors
	ErrQuery    = errors.New("document query failed")
	ErrNotFound = errors.New("not found")

	// Form errors
	ErrValidation = errors.New("validation failed")

	// Persisted state errors
	ErrStore = errors.New("store unavailable")

	// General errors
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
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
