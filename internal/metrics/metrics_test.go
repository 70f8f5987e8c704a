package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-truckdocs/internal/metrics"
	"github.com/stretchr/testify/require"
)

func TestHandler_ExposesCounters(t *testing.T) {
	m := metrics.New()
	m.ActivityRecorded("click")
	m.ActivityRecorded("click")
	m.WarningShown()
	m.ForcedLogout(nil)
	m.ForcedLogout(errors.New("network"))
	m.SignInFailed("wrong-password")
	m.UploadFinished("too-large")
	m.SetActiveDevices(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	require.Contains(t, text, `truckdocs_session_activity_events_total{event="click"} 2`)
	require.Contains(t, text, `truckdocs_session_warnings_total 1`)
	require.Contains(t, text, `truckdocs_session_forced_logouts_total{outcome="failure"} 1`)
	require.Contains(t, text, `truckdocs_session_forced_logouts_total{outcome="success"} 1`)
	require.Contains(t, text, `truckdocs_sign_in_failures_total{kind="wrong-password"} 1`)
	require.Contains(t, text, `truckdocs_uploads_total{outcome="too-large"} 1`)
	require.Contains(t, text, `truckdocs_active_devices 3`)
	require.Contains(t, text, "go_goroutines")
}
