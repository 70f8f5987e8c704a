package kvstore

import "context"

// Keys persisted per device.
const (
	KeyLastActivity = "lastActivity"
	KeyAuthUser     = "authUser"
	KeyUserInfo     = "userInfo"
)

// AuthUserSentinel is stored under KeyAuthUser while a session is believed active.
const AuthUserSentinel = "true"

// Store is the persisted key-value state shared by the timeout monitor and the auth cache.
type Store interface {
	// Get returns the value and whether the key was present
	Get(ctx context.Context, key string) (string, bool, error)

	// Set creates or overwrites a key
	Set(ctx context.Context, key, value string) error

	// Delete removes a key, deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}
