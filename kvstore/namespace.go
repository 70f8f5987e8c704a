package kvstore

import "context"

type namespaced struct {
	store  Store
	prefix string
}

var _ Store = (*namespaced)(nil)

// Namespace scopes every key of store under prefix, one namespace per device.
func Namespace(store Store, prefix string) Store {
	return &namespaced{store: store, prefix: prefix + ":"}
}

// DeviceNamespace returns the namespace used for a browser device id.
func DeviceNamespace(store Store, deviceID string) Store {
	return Namespace(store, "device:"+deviceID)
}

func (n *namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.store.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.store.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.store.Delete(ctx, n.prefix+key)
}
