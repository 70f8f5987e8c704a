package devices

import (
	"sync/atomic"

	"github.com/jrsteele09/go-truckdocs/authcache"
	"github.com/jrsteele09/go-truckdocs/identity"
	"github.com/jrsteele09/go-truckdocs/timeout"
)

// Device is one browser with a mounted session.
type Device struct {
	ID      string
	Client  identity.Client
	Cache   *authcache.Cache
	Monitor *timeout.Monitor

	hidden atomic.Bool
}

// Visible reports the last visibility the browser sent. New devices are visible.
func (d *Device) Visible() bool {
	return !d.hidden.Load()
}

func (d *Device) SetVisible(visible bool) {
	d.hidden.Store(!visible)
}

func (d *Device) unmount() {
	d.Monitor.Stop()
	d.Cache.Stop()
}
