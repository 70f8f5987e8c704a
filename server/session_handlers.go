package server

import (
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-truckdocs/timeout"
)

type activityRequest struct {
	Event string `json:"event"`
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

// ActivityHandler records a browser interaction (POST /api/session/activity).
func (s *Server) ActivityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := deviceFromContext(r.Context())

		var req activityRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := d.Monitor.OnUserActivity(r.Context(), req.Event); err != nil {
			writeError(w, r, err)
			return
		}
		writeTimerState(w, d.Monitor.State())
	}
}

// ExtendSessionHandler is the warning dialog's "stay logged in" action (POST /api/session/extend).
func (s *Server) ExtendSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := deviceFromContext(r.Context())
		if err := d.Monitor.ResetTimer(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		writeTimerState(w, d.Monitor.State())
	}
}

// VisibilityHandler records whether the page is currently shown (POST /api/session/visibility).
func (s *Server) VisibilityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := deviceFromContext(r.Context())

		var req visibilityRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		d.SetVisible(req.Visible)
		writeJSON(w, http.StatusOK, visibilityRequest{Visible: d.Visible()})
	}
}

// SessionStatusHandler reports the warning dialog state (GET /api/session/status).
func (s *Server) SessionStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeTimerState(w, deviceFromContext(r.Context()).Monitor.State())
	}
}

// MeHandler returns the cached auth state for the browser (GET /api/me).
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deviceFromContext(r.Context()).Cache.View())
	}
}

// writeTimerState mirrors the state into headers so clients polling other routes can read it too.
func writeTimerState(w http.ResponseWriter, state timeout.TimerState) {
	w.Header().Set("X-Session-Status", state.Status.String())
	if state.ShowWarning {
		w.Header().Set("X-Session-Time-Left", strconv.Itoa(state.TimeLeftSeconds))
	}
	writeJSON(w, http.StatusOK, state)
}
