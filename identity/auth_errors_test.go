package identity_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jrsteele09/go-truckdocs/identity"
	"github.com/stretchr/testify/require"
)

func TestMessageFor(t *testing.T) {
	tests := []struct {
		kind identity.AuthErrorKind
		want string
	}{
		{identity.InvalidEmail, "Invalid email address format."},
		{identity.InvalidCredential, "Invalid email or password."},
		{identity.UserDisabled, "This account has been disabled."},
		{identity.UserNotFound, "No account found with this email."},
		{identity.WrongPassword, "Incorrect password."},
		{identity.TooManyRequests, "Too many failed attempts. Please try again later."},
		{identity.Other, "An error occurred. Please try again."},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			require.Equal(t, tt.want, identity.MessageFor(tt.kind))
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", identity.NewAuthError(identity.UserDisabled, nil))
	require.Equal(t, identity.UserDisabled, identity.KindOf(wrapped))
	require.Equal(t, identity.Other, identity.KindOf(errors.New("boom")))
	require.Equal(t, "auth/user-disabled", identity.NewAuthError(identity.UserDisabled, nil).Error())
}
