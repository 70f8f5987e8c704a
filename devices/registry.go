package devices

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-truckdocs/authcache"
	"github.com/jrsteele09/go-truckdocs/identity"
	errs "github.com/jrsteele09/go-truckdocs/internal/errors"
	"github.com/jrsteele09/go-truckdocs/kvstore"
	"github.com/jrsteele09/go-truckdocs/timeout"
	"github.com/rs/zerolog/log"
)

// Pending notices are dropped once they are older than noticeTTL, and the oldest
// is dropped to stay within maxNotices.
const (
	noticeTTL  = 24 * time.Hour
	maxNotices = 10000
)

type notice struct {
	text string
	at   time.Time
}

// Registry holds the mounted devices keyed by device id.
type Registry struct {
	ctx         context.Context
	connector   identity.Connector
	store       kvstore.Store
	cfg         timeout.Config
	monitorOpts []timeout.Option
	onCount     func(int)
	nowTime     func() time.Time

	mu      sync.RWMutex
	devices map[string]*Device
	notices map[string]notice // device id to notice shown on the next login view
}

type Option func(*Registry)

// WithMonitorOptions are passed to every device's timeout monitor.
func WithMonitorOptions(options ...timeout.Option) Option {
	return func(r *Registry) {
		r.monitorOpts = append(r.monitorOpts, options...)
	}
}

// WithDeviceCount is called with the number of mounted devices after every change.
func WithDeviceCount(fn func(int)) Option {
	return func(r *Registry) {
		r.onCount = fn
	}
}

// WithNowTime sets the clock used to age out pending notices.
func WithNowTime(nowTime func() time.Time) Option {
	return func(r *Registry) {
		r.nowTime = nowTime
	}
}

// NewRegistry creates a registry whose monitors run until ctx is done.
func NewRegistry(ctx context.Context, connector identity.Connector, store kvstore.Store, cfg timeout.Config, options ...Option) *Registry {
	r := &Registry{
		ctx:       ctx,
		connector: connector,
		store:     store,
		cfg:       cfg,
		onCount:   func(int) {},
		nowTime:   time.Now,
		devices:   make(map[string]*Device),
		notices:   make(map[string]notice),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// SignIn mounts a fresh session for the device id. An existing session for the id is replaced.
// Nothing stays mounted when the credentials are rejected.
func (r *Registry) SignIn(ctx context.Context, id, email, password string) (*Device, error) {
	if id == "" {
		return nil, errs.Wrapf(errs.ErrValidation, "device id is required")
	}

	d := &Device{ID: id, Client: r.connector.NewClient()}
	store := kvstore.DeviceNamespace(r.store, id)
	d.Cache = authcache.New(d.Client, store, authcache.WithVisibility(d.Visible))

	options := append([]timeout.Option{
		timeout.WithLoggedOut(func(timeout.TimerState) { go r.Expire(d) }),
	}, r.monitorOpts...)
	monitor, err := timeout.New(r.cfg, store, d.Client.SignOut, options...)
	if err != nil {
		return nil, err
	}
	d.Monitor = monitor

	if err := d.Cache.Start(ctx); err != nil {
		return nil, err
	}
	if _, err := d.Client.SignInWithCredentials(ctx, email, password); err != nil {
		d.Cache.Stop()
		return nil, err
	}
	if err := d.Monitor.Start(r.ctx); err != nil {
		d.Cache.Stop()
		return nil, err
	}

	r.mu.Lock()
	previous := r.devices[id]
	r.devices[id] = d
	delete(r.notices, id)
	count := len(r.devices)
	r.mu.Unlock()

	if previous != nil {
		previous.unmount()
		if err := previous.Client.SignOut(ctx); err != nil {
			log.Err(err).Str("device", id).Msg("failed to sign out replaced session")
		}
	}
	r.onCount(count)
	log.Info().Str("device", id).Msg("device signed in")
	return d, nil
}

// Get returns the mounted device or errs.ErrUnknownDevice.
func (r *Registry) Get(id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, errs.ErrUnknownDevice
	}
	return d, nil
}

// SignOut ends the provider session and unmounts the device. The auth cache is
// still subscribed when the provider reports the sign out, so a visible device
// loses its session flag.
func (r *Registry) SignOut(ctx context.Context, id string) error {
	d := r.detach(id)
	if d == nil {
		return errs.ErrUnknownDevice
	}
	d.Monitor.Stop()
	err := d.Client.SignOut(ctx)
	d.Cache.Stop()
	r.clearActivity(ctx, id)
	if err != nil {
		return err
	}
	log.Info().Str("device", id).Msg("device signed out")
	return nil
}

// Notice returns the pending notice for a device id.
func (r *Registry) Notice(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.noticeLocked(id)
}

// TakeNotice returns and clears the pending notice for a device id.
func (r *Registry) TakeNotice(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	text := r.noticeLocked(id)
	delete(r.notices, id)
	return text
}

func (r *Registry) noticeLocked(id string) string {
	n, ok := r.notices[id]
	if !ok || r.nowTime().Sub(n.at) >= noticeTTL {
		return ""
	}
	return n.text
}

// keepNoticeLocked stores a notice after dropping expired ones.
func (r *Registry) keepNoticeLocked(id, text string) {
	now := r.nowTime()
	oldestID := ""
	for k, n := range r.notices {
		if now.Sub(n.at) >= noticeTTL {
			delete(r.notices, k)
			continue
		}
		if oldestID == "" || n.at.Before(r.notices[oldestID].at) {
			oldestID = k
		}
	}
	if _, ok := r.notices[id]; !ok && len(r.notices) >= maxNotices {
		delete(r.notices, oldestID)
	}
	r.notices[id] = notice{text: text, at: now}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Close unmounts every device.
func (r *Registry) Close() {
	r.mu.Lock()
	mounted := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		mounted = append(mounted, d)
	}
	r.devices = make(map[string]*Device)
	r.mu.Unlock()

	for _, d := range mounted {
		d.unmount()
	}
	r.onCount(0)
}

// Expire unmounts a device whose monitor signed it out and keeps the monitor's notice
// for the next login view. Expiring a device that is no longer mounted does nothing.
func (r *Registry) Expire(d *Device) {
	r.mu.Lock()
	if r.devices[d.ID] != d {
		r.mu.Unlock()
		return
	}
	delete(r.devices, d.ID)
	r.keepNoticeLocked(d.ID, d.Monitor.State().Notice)
	count := len(r.devices)
	r.mu.Unlock()

	r.onCount(count)
	d.unmount()
	r.clearActivity(r.ctx, d.ID)
	log.Info().Str("device", d.ID).Msg("device expired after inactivity")
}

func (r *Registry) detach(id string) *Device {
	r.mu.Lock()
	d, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.devices, id)
	count := len(r.devices)
	r.mu.Unlock()

	r.onCount(count)
	return d
}

// clearActivity removes the device's last activity time so unmounted devices leave no timer state behind.
func (r *Registry) clearActivity(ctx context.Context, id string) {
	if err := kvstore.DeviceNamespace(r.store, id).Delete(ctx, kvstore.KeyLastActivity); err != nil {
		log.Err(err).Str("device", id).Msg("failed to clear last activity")
	}
}
