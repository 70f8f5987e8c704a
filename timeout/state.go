package timeout

import (
	"fmt"
	"slices"
)

// Status is the lifecycle state of a mounted monitor.
type Status int

const (
	Active Status = iota
	Warning
	// LoggedOut is terminal until the monitor is replaced by a new one
	LoggedOut
)

func (s Status) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Warning:
		return "WARNING"
	case LoggedOut:
		return "LOGGED_OUT"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	if s < Active || s > LoggedOut {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

const (
	LogoutNotice  = "You have been logged out due to inactivity"
	LoginRedirect = "/login"
)

// TimerState is what the warning dialog and the router need to render the session.
type TimerState struct {
	Status          Status `json:"status"`
	ShowWarning     bool   `json:"showWarning"`
	TimeLeftSeconds int    `json:"timeLeft"`           // Only meaningful while ShowWarning is true
	Redirect        string `json:"redirect,omitempty"` // Set once the session was signed out
	Notice          string `json:"notice,omitempty"`
}

// ActivityEvents are the interaction classes that count as user activity.
var ActivityEvents = []string{
	"mousedown",
	"mousemove",
	"keypress",
	"scroll",
	"touchstart",
	"click",
	"keydown",
}

func IsActivityEvent(event string) bool {
	return slices.Contains(ActivityEvents, event)
}
