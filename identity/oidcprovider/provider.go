package oidcprovider

import (
	"context"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-truckdocs/identity"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Provider signs users in against a hosted OpenID Connect issuer using the password grant.
type Provider struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

var _ identity.Connector = (*Provider)(nil)

// New runs OIDC discovery against issuer.
func New(ctx context.Context, issuer, clientID, clientSecret string) (*Provider, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[oidcprovider.New] NewProvider")
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return NewWithEndpoint(provider.Endpoint(), clientID, clientSecret, verifier), nil
}

// NewWithEndpoint skips discovery and uses the given token endpoint and verifier.
func NewWithEndpoint(endpoint oauth2.Endpoint, clientID, clientSecret string, verifier *oidc.IDTokenVerifier) *Provider {
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: verifier,
	}
}

func (p *Provider) NewClient() identity.Client {
	return &client{provider: p, notifier: identity.NewNotifier()}
}

type idClaims struct {
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func (p *Provider) signIn(ctx context.Context, email, password string) (*identity.Identity, error) {
	token, err := p.oauth.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return nil, mapTokenError(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, identity.NewAuthError(identity.Other, errors.New("[Provider.signIn] token response has no id_token"))
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, identity.NewAuthError(identity.Other, errors.Wrap(err, "[Provider.signIn] Verify"))
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, identity.NewAuthError(identity.Other, errors.Wrap(err, "[Provider.signIn] Claims"))
	}
	if claims.Email == "" {
		claims.Email = email
	}

	return &identity.Identity{
		UID:   idToken.Subject,
		Email: claims.Email,
		Metadata: identity.Metadata{
			CreationTime:   claims.CreatedAt,
			LastSignInTime: idToken.IssuedAt.UTC().Format(time.RFC3339),
		},
		IDToken: rawIDToken,
	}, nil
}

func mapTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return identity.NewAuthError(identity.Other, err)
	}
	if retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusTooManyRequests {
		return identity.NewAuthError(identity.TooManyRequests, err)
	}
	switch retrieveErr.ErrorCode {
	case "invalid_grant":
		return identity.NewAuthError(identity.InvalidCredential, err)
	case "slow_down", "temporarily_unavailable":
		return identity.NewAuthError(identity.TooManyRequests, err)
	case "user_disabled", "account_disabled":
		return identity.NewAuthError(identity.UserDisabled, err)
	case "invalid_request":
		if retrieveErr.ErrorDescription == "invalid email" {
			return identity.NewAuthError(identity.InvalidEmail, err)
		}
	}
	return identity.NewAuthError(identity.Other, err)
}

type client struct {
	provider *Provider
	notifier *identity.Notifier
}

func (c *client) SignInWithCredentials(ctx context.Context, email, password string) (*identity.Identity, error) {
	user, err := c.provider.signIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.notifier.Publish(user)
	return user, nil
}

// SignOut drops the local session. The password grant leaves nothing to revoke at the issuer.
func (c *client) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return identity.NewAuthError(identity.Other, err)
	}
	c.notifier.Publish(nil)
	return nil
}

func (c *client) Subscribe(handler func(*identity.Identity)) func() {
	return c.notifier.Subscribe(handler)
}

func (c *client) CurrentUser() *identity.Identity {
	return c.notifier.Current()
}
