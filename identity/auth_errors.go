package identity

import (
	"errors"
	"fmt"
)

// AuthErrorKind classifies provider-reported sign in failures.
type AuthErrorKind string

const (
	InvalidEmail      AuthErrorKind = "invalid-email"
	InvalidCredential AuthErrorKind = "invalid-credential"
	UserDisabled      AuthErrorKind = "user-disabled"
	UserNotFound      AuthErrorKind = "user-not-found"
	WrongPassword     AuthErrorKind = "wrong-password"
	TooManyRequests   AuthErrorKind = "too-many-requests"
	Other             AuthErrorKind = "other"
)

const defaultAuthMessage = "An error occurred. Please try again."

var authMessages = map[AuthErrorKind]string{
	InvalidEmail:      "Invalid email address format.",
	InvalidCredential: "Invalid email or password.",
	UserDisabled:      "This account has been disabled.",
	UserNotFound:      "No account found with this email.",
	WrongPassword:     "Incorrect password.",
	TooManyRequests:   "Too many failed attempts. Please try again later.",
}

// AuthError is returned by Client implementations for every sign in or sign out failure.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func NewAuthError(kind AuthErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("auth/%s", e.Kind)
	}
	return fmt.Sprintf("auth/%s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Message is the user-facing text for the error kind.
func (e *AuthError) Message() string {
	return MessageFor(e.Kind)
}

// MessageFor maps a kind to the text shown on the login view.
func MessageFor(kind AuthErrorKind) string {
	if msg, ok := authMessages[kind]; ok {
		return msg
	}
	return defaultAuthMessage
}

// KindOf extracts the AuthErrorKind from err, Other when err is not an AuthError.
func KindOf(err error) AuthErrorKind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return Other
}
