package timeout

import (
	"fmt"
	"time"
)

const (
	DefaultTimeout       = 7 * time.Minute
	DefaultWarningTime   = time.Minute
	DefaultCheckInterval = 10 * time.Second
)

// Config controls the inactivity window of a Monitor.
type Config struct {
	Timeout       time.Duration // Inactivity after which the session is signed out
	WarningTime   time.Duration // How long before Timeout the countdown is shown
	CheckInterval time.Duration // Period of the inactivity check

	// ActivityThrottle limits how often activity events are written to the store, zero writes every event
	ActivityThrottle time.Duration

	// RestoreActivity keeps a stored last activity on Start instead of resetting it to now
	RestoreActivity bool
}

func DefaultConfig() Config {
	return Config{
		Timeout:       DefaultTimeout,
		WarningTime:   DefaultWarningTime,
		CheckInterval: DefaultCheckInterval,
	}
}

func (c Config) validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.WarningTime < 0 || c.WarningTime >= c.Timeout {
		return fmt.Errorf("warning time must be within [0, %v), got %v", c.Timeout, c.WarningTime)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check interval must be positive, got %v", c.CheckInterval)
	}
	if c.ActivityThrottle < 0 {
		return fmt.Errorf("activity throttle must not be negative, got %v", c.ActivityThrottle)
	}
	return nil
}
