package timeout

import (
	"context"
	"strconv"
	"sync"
	"time"

	errs "github.com/jrsteele09/go-truckdocs/internal/errors"
	"github.com/jrsteele09/go-truckdocs/kvstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var ErrStopped = errors.New("session monitor stopped")

// SignOutFunc ends the identity provider session.
type SignOutFunc func(ctx context.Context) error

// Ticker drives the periodic inactivity check.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct {
	*time.Ticker
}

func (t stdTicker) C() <-chan time.Time {
	return t.Ticker.C
}

func newStdTicker(d time.Duration) Ticker {
	return stdTicker{time.NewTicker(d)}
}

// Recorder receives monitor events for metrics.
type Recorder interface {
	ActivityRecorded(event string)
	WarningShown()
	ForcedLogout(err error)
}

type nopRecorder struct{}

func (nopRecorder) ActivityRecorded(string) {}
func (nopRecorder) WarningShown()           {}
func (nopRecorder) ForcedLogout(error)      {}

// Monitor signs a device out after a period of inactivity, showing a countdown warning first.
// The last activity time is kept in the store so it survives reloads.
type Monitor struct {
	cfg       Config
	store     kvstore.Store
	signOut   SignOutFunc
	nowTime   func() time.Time
	newTicker func(time.Duration) Ticker
	recorder  Recorder
	limiter   *rate.Limiter

	onLoggedOut func(TimerState)

	mu          sync.Mutex
	status      Status
	showWarning bool
	timeLeft    int
	notice      string
	redirect    string
	loggingOut  bool
	started     bool
	stopped     bool
	quit        chan struct{}
	done        chan struct{}
}

type Option func(*Monitor)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Monitor) {
		m.nowTime = nowFunc
	}
}

// WithTicker replaces the ticker that drives the periodic check (primarily for testing)
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(m *Monitor) {
		m.newTicker = newTicker
	}
}

func WithRecorder(r Recorder) Option {
	return func(m *Monitor) {
		m.recorder = r
	}
}

// WithLoggedOut registers a hook run once after a successful forced sign out.
// The hook runs on the check goroutine and must not call Stop.
func WithLoggedOut(hook func(TimerState)) Option {
	return func(m *Monitor) {
		m.onLoggedOut = hook
	}
}

func New(cfg Config, store kvstore.Store, signOut SignOutFunc, options ...Option) (*Monitor, error) {
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "[timeout.New]")
	}
	if store == nil || signOut == nil {
		return nil, errors.New("[timeout.New] store and signOut are required")
	}

	m := &Monitor{
		cfg:       cfg,
		store:     store,
		signOut:   signOut,
		nowTime:   time.Now,
		newTicker: newStdTicker,
		recorder:  nopRecorder{},
		status:    Active,
		quit:      make(chan struct{}),
	}
	for _, opt := range options {
		opt(m)
	}
	if cfg.ActivityThrottle > 0 {
		m.limiter = rate.NewLimiter(rate.Every(cfg.ActivityThrottle), 1)
	}
	return m, nil
}

// Start initialises the last activity time and begins the periodic check.
// The check runs until Stop is called, ctx is done or the session is signed out.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrStopped
	}
	if m.started {
		return errs.Wrapf(errs.ErrUnsupported, "session monitor already started")
	}

	restored := false
	if m.cfg.RestoreActivity {
		_, ok, err := m.store.Get(ctx, kvstore.KeyLastActivity)
		if err != nil {
			return errors.Wrap(err, "[Monitor.Start] read last activity")
		}
		restored = ok
	}
	if !restored {
		if err := m.touchLocked(ctx); err != nil {
			return err
		}
	}
	m.showWarning = false

	m.started = true
	m.done = make(chan struct{})
	go m.loop(ctx, m.newTicker(m.cfg.CheckInterval))
	return nil
}

func (m *Monitor) loop(ctx context.Context, ticker Ticker) {
	defer close(m.done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.quit:
			return
		case <-ticker.C():
			if err := m.Check(ctx); err != nil {
				log.Err(err).Msg("session inactivity check failed")
			}
			if m.State().Status == LoggedOut {
				return
			}
		}
	}
}

// Stop ends the periodic check and waits for it to exit. No state changes after Stop returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.quit)
	done := m.done
	m.mu.Unlock()

	if done != nil {
		<-done
	}
}

// ResetTimer records activity now and hides the warning. It is never throttled.
func (m *Monitor) ResetTimer(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mutableLocked(); err != nil {
		return err
	}
	return m.resetLocked(ctx)
}

// OnUserActivity handles one interaction event from the browser.
func (m *Monitor) OnUserActivity(ctx context.Context, event string) error {
	if !IsActivityEvent(event) {
		return errors.Wrapf(errs.ErrValidation, "unknown activity event %q", event)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mutableLocked(); err != nil {
		return err
	}
	if m.limiter != nil && !m.showWarning && !m.limiter.AllowN(m.nowTime(), 1) {
		return nil
	}
	if err := m.resetLocked(ctx); err != nil {
		return err
	}
	m.recorder.ActivityRecorded(event)
	return nil
}

// Check runs one inactivity check. It is called by the ticker and may be called directly.
func (m *Monitor) Check(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped || m.loggingOut || m.status == LoggedOut {
		m.mu.Unlock()
		return nil
	}

	last, err := m.lastActivityLocked(ctx)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	elapsed := time.Duration(m.nowTime().UnixMilli()-last) * time.Millisecond

	if elapsed >= m.cfg.Timeout {
		m.loggingOut = true
		m.mu.Unlock()
		m.forceLogout(ctx)
		return nil
	}

	if elapsed >= m.cfg.Timeout-m.cfg.WarningTime {
		if !m.showWarning {
			m.recorder.WarningShown()
		}
		m.showWarning = true
		m.status = Warning
		m.timeLeft = secondsLeft(m.cfg.Timeout - elapsed)
	}
	m.mu.Unlock()
	return nil
}

// forceLogout signs out without holding the lock. A failure leaves the session
// untouched so the next check tries again.
func (m *Monitor) forceLogout(ctx context.Context) {
	err := m.signOut(ctx)
	m.recorder.ForcedLogout(err)

	m.mu.Lock()
	m.loggingOut = false
	if err != nil {
		m.mu.Unlock()
		log.Err(err).Msg("forced sign out failed, retrying on next check")
		return
	}
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.status = LoggedOut
	m.showWarning = false
	m.timeLeft = 0
	m.notice = LogoutNotice
	m.redirect = LoginRedirect
	state := m.stateLocked()
	hook := m.onLoggedOut
	m.mu.Unlock()

	log.Info().Msg("session signed out due to inactivity")
	if hook != nil {
		hook(state)
	}
}

func (m *Monitor) State() TimerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Monitor) stateLocked() TimerState {
	return TimerState{
		Status:          m.status,
		ShowWarning:     m.showWarning,
		TimeLeftSeconds: m.timeLeft,
		Redirect:        m.redirect,
		Notice:          m.notice,
	}
}

func (m *Monitor) mutableLocked() error {
	if m.stopped {
		return ErrStopped
	}
	if m.status == LoggedOut {
		return errs.ErrSessionLoggedOut
	}
	return nil
}

func (m *Monitor) resetLocked(ctx context.Context) error {
	if err := m.touchLocked(ctx); err != nil {
		return err
	}
	m.showWarning = false
	m.timeLeft = 0
	m.status = Active
	return nil
}

// touchLocked stores now as the last activity, never moving it backwards.
func (m *Monitor) touchLocked(ctx context.Context) error {
	now := m.nowTime().UnixMilli()
	last, err := m.lastActivityLocked(ctx)
	if err != nil {
		return err
	}
	if last > now {
		now = last
	}
	if err := m.store.Set(ctx, kvstore.KeyLastActivity, strconv.FormatInt(now, 10)); err != nil {
		return errors.Wrap(err, "[Monitor.touch] write last activity")
	}
	return nil
}

// lastActivityLocked returns the stored epoch milliseconds, zero when missing or unreadable.
func (m *Monitor) lastActivityLocked(ctx context.Context) (int64, error) {
	raw, ok, err := m.store.Get(ctx, kvstore.KeyLastActivity)
	if err != nil {
		return 0, errors.Wrap(err, "[Monitor.lastActivity] read last activity")
	}
	if !ok {
		return 0, nil
	}
	last, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Warn().Str("value", raw).Msg("unreadable last activity, treating as expired")
		return 0, nil
	}
	return last, nil
}

// secondsLeft rounds up so the countdown only reaches zero at sign out.
func secondsLeft(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
