package authcache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/jrsteele09/go-truckdocs/identity"
	"github.com/jrsteele09/go-truckdocs/kvstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// PlaceholderDisplayName is shown until a signed in identity has been seen.
const PlaceholderDisplayName = "User"

// UserInfo is the profile summary persisted under kvstore.KeyUserInfo.
type UserInfo struct {
	DisplayName string  `json:"displayName"`
	JoinDate    *string `json:"joinDate"` // ISO account creation time, null when the provider has none
}

// View is the read-only auth state. Loading means unknown, not signed out.
type View struct {
	CurrentUser *identity.Identity `json:"currentUser"`
	Loading     bool               `json:"loading"`
	UserInfo    UserInfo           `json:"userInfo"`
}

// Cache mirrors a device's identity client into the persisted store so the
// last known profile can be rendered before the provider answers.
type Cache struct {
	client  identity.Client
	store   kvstore.Store
	visible func() bool

	mu          sync.RWMutex
	ctx         context.Context
	current     *identity.Identity
	loading     bool
	info        UserInfo
	unsubscribe func()
	started     bool
	stopped     bool
}

type Option func(*Cache)

// WithVisibility reports whether the device's tab is visible. Defaults to always visible.
func WithVisibility(visible func() bool) Option {
	return func(c *Cache) {
		c.visible = visible
	}
}

func New(client identity.Client, store kvstore.Store, options ...Option) *Cache {
	c := &Cache{
		client:  client,
		store:   store,
		visible: func() bool { return true },
		loading: true,
		info:    UserInfo{DisplayName: PlaceholderDisplayName},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Start publishes any cached user info and subscribes to the client.
func (c *Cache) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return errors.New("[Cache.Start] auth cache already started")
	}
	c.started = true
	c.ctx = context.WithoutCancel(ctx)

	raw, ok, err := c.store.Get(ctx, kvstore.KeyUserInfo)
	if err != nil {
		log.Err(err).Msg("failed to read cached user info")
	} else if ok {
		var info UserInfo
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			log.Err(err).Msg("ignoring malformed cached user info")
		} else {
			c.info = info
		}
	}
	c.mu.Unlock()

	unsubscribe := c.client.Subscribe(c.onAuthStateChanged)

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
	return nil
}

// Stop ends the subscription.
func (c *Cache) Stop() {
	c.mu.Lock()
	c.stopped = true
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Cache) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return View{CurrentUser: c.current, Loading: c.loading, UserInfo: c.info}
}

func (c *Cache) onAuthStateChanged(user *identity.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.current = user
	c.loading = false

	if user == nil {
		if !c.visible() {
			return
		}
		if err := c.store.Delete(c.ctx, kvstore.KeyAuthUser); err != nil {
			log.Err(err).Msg("failed to clear session flag")
		}
		return
	}

	if err := c.store.Set(c.ctx, kvstore.KeyAuthUser, kvstore.AuthUserSentinel); err != nil {
		log.Err(err).Msg("failed to set session flag")
	}

	info := UserInfo{DisplayName: DisplayName(user.Email)}
	if user.Metadata.CreationTime != "" {
		joined := user.Metadata.CreationTime
		info.JoinDate = &joined
	}
	c.info = info

	data, err := json.Marshal(info)
	if err != nil {
		log.Err(err).Msg("failed to encode user info")
		return
	}
	if err := c.store.Set(c.ctx, kvstore.KeyUserInfo, string(data)); err != nil {
		log.Err(err).Msg("failed to cache user info")
	}
}

// DisplayName is the email local part with its first letter upper-cased.
func DisplayName(email string) string {
	if email == "" {
		return PlaceholderDisplayName
	}
	local, _, _ := strings.Cut(email, "@")
	r, size := utf8.DecodeRuneInString(local)
	if r == utf8.RuneError {
		return local
	}
	return string(unicode.ToUpper(r)) + local[size:]
}
