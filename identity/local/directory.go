package local

import (
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-truckdocs/identity"
	"github.com/jrsteele09/go-truckdocs/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	defaultTokenTTL      = time.Hour
	defaultSignInBurst   = 5
	defaultSignInRefresh = time.Minute
)

// Directory is an identity provider backed by a local user repo.
type Directory struct {
	users      users.UserRepo
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
	nowTime    func() time.Time

	// When set, unknown users and wrong passwords both report invalid-credential
	protectEnumeration bool

	signInLimit rate.Limit
	signInBurst int
	limiters    map[string]*rate.Limiter
	limiterMu   sync.Mutex
}

var _ identity.Connector = (*Directory)(nil)

type DirectoryOption func(*Directory)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) DirectoryOption {
	return func(d *Directory) {
		d.nowTime = nowFunc
	}
}

// WithEnumerationProtection collapses user-not-found and wrong-password into invalid-credential
func WithEnumerationProtection() DirectoryOption {
	return func(d *Directory) {
		d.protectEnumeration = true
	}
}

// WithSignInLimit allows burst failed attempts per email, refilled at limit
func WithSignInLimit(limit rate.Limit, burst int) DirectoryOption {
	return func(d *Directory) {
		d.signInLimit = limit
		d.signInBurst = burst
	}
}

// WithIssuer sets the iss claim of issued ID tokens
func WithIssuer(issuer string) DirectoryOption {
	return func(d *Directory) {
		d.issuer = issuer
	}
}

func NewDirectory(repo users.UserRepo, signingKey []byte, options ...DirectoryOption) (*Directory, error) {
	if repo == nil {
		return nil, errors.New("[NewDirectory] users repo is required")
	}
	if len(signingKey) == 0 {
		return nil, errors.New("[NewDirectory] signing key is required")
	}

	d := &Directory{
		users:       repo,
		signingKey:  signingKey,
		issuer:      "truckdocs-local",
		tokenTTL:    defaultTokenTTL,
		nowTime:     time.Now,
		signInLimit: rate.Every(defaultSignInRefresh),
		signInBurst: defaultSignInBurst,
		limiters:    make(map[string]*rate.Limiter),
	}
	for _, opt := range options {
		opt(d)
	}
	return d, nil
}

// NewClient returns a signed out client for one device.
func (d *Directory) NewClient() identity.Client {
	return &client{dir: d, notifier: identity.NewNotifier()}
}

func (d *Directory) limiter(email string) *rate.Limiter {
	d.limiterMu.Lock()
	defer d.limiterMu.Unlock()

	lim, ok := d.limiters[email]
	if !ok {
		lim = rate.NewLimiter(d.signInLimit, d.signInBurst)
		d.limiters[email] = lim
	}
	return lim
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, "@")
}

// authenticate checks the credentials and returns the signed in identity.
func (d *Directory) authenticate(email, password string) (*identity.Identity, error) {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return nil, identity.NewAuthError(identity.InvalidEmail, nil)
	}

	key := strings.ToLower(email)
	now := d.nowTime()
	lim := d.limiter(key)
	if lim.TokensAt(now) < 1 {
		return nil, identity.NewAuthError(identity.TooManyRequests, nil)
	}
	fail := func(kind identity.AuthErrorKind, err error) error {
		lim.AllowN(now, 1)
		if d.protectEnumeration && (kind == identity.UserNotFound || kind == identity.WrongPassword) {
			kind = identity.InvalidCredential
		}
		return identity.NewAuthError(kind, err)
	}

	user, err := d.users.GetByEmail(email)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, fail(identity.UserNotFound, nil)
	}
	if err != nil {
		return nil, identity.NewAuthError(identity.Other, errors.Wrap(err, "[Directory.authenticate] GetByEmail"))
	}
	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, fail(identity.WrongPassword, nil)
	}
	if user.Disabled {
		return nil, identity.NewAuthError(identity.UserDisabled, nil)
	}

	if err := d.users.SetLastSignIn(user.Email, now); err != nil {
		log.Err(err).Str("email", user.Email).Msg("failed to record last sign in")
	}

	token, err := d.issueIDToken(user, now)
	if err != nil {
		return nil, identity.NewAuthError(identity.Other, err)
	}

	return &identity.Identity{
		UID:   user.ID,
		Email: user.Email,
		Metadata: identity.Metadata{
			CreationTime:   formatTime(user.DateJoined),
			LastSignInTime: formatTime(now),
		},
		IDToken: token,
	}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
