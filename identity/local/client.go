package local

import (
	"context"

	"github.com/jrsteele09/go-truckdocs/identity"
)

type client struct {
	dir      *Directory
	notifier *identity.Notifier
}

var _ identity.Client = (*client)(nil)

func (c *client) SignInWithCredentials(ctx context.Context, email, password string) (*identity.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, identity.NewAuthError(identity.Other, err)
	}
	user, err := c.dir.authenticate(email, password)
	if err != nil {
		return nil, err
	}
	c.notifier.Publish(user)
	return user, nil
}

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
