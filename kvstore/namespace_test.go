package kvstore_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-truckdocs/kvstore"
	"github.com/jrsteele09/go-truckdocs/kvstore/kvfake"
	"github.com/stretchr/testify/require"
)

func TestDeviceNamespace_IsolatesDevices(t *testing.T) {
	ctx := context.Background()
	backing := kvfake.NewFakeStore()
	a := kvstore.DeviceNamespace(backing, "a")
	b := kvstore.DeviceNamespace(backing, "b")

	require.NoError(t, a.Set(ctx, kvstore.KeyAuthUser, kvstore.AuthUserSentinel))

	v, ok, err := a.Get(ctx, kvstore.KeyAuthUser)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "true", v)

	_, ok, err = b.Get(ctx, kvstore.KeyAuthUser)
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, []string{"device:a:authUser"}, backing.Keys())

	require.NoError(t, a.Delete(ctx, kvstore.KeyAuthUser))
	require.Empty(t, backing.Keys())
}
