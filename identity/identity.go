package identity

import "context"

// Metadata is provider-managed account information.
type Metadata struct {
	CreationTime   string `json:"creationTime,omitempty"`   // ISO timestamp of account creation
	LastSignInTime string `json:"lastSignInTime,omitempty"` // ISO timestamp of the latest sign in
}

// Identity is an authenticated principal as reported by the identity provider.
type Identity struct {
	UID      string   `json:"uid"`
	Email    string   `json:"email"`
	Metadata Metadata `json:"metadata"`
	IDToken  string   `json:"-"` // Provider-issued token, never serialised to the browser
}

// Client is one device's handle on the identity provider.
// State changes are pushed to subscribers; a nil identity means signed out.
type Client interface {
	// SignInWithCredentials authenticates and on success notifies subscribers
	SignInWithCredentials(ctx context.Context, email, password string) (*Identity, error)

	// SignOut clears the session and notifies subscribers with nil
	SignOut(ctx context.Context) error

	// Subscribe registers handler and immediately delivers the current state to it
	Subscribe(handler func(*Identity)) (unsubscribe func())

	// CurrentUser returns the signed in identity or nil
	CurrentUser() *Identity
}

// Connector creates device clients for one identity provider.
type Connector interface {
	NewClient() Client
}
