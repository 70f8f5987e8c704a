package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-truckdocs/identity"
	errs "github.com/jrsteele09/go-truckdocs/internal/errors"
	"github.com/jrsteele09/go-truckdocs/timeout"
	"github.com/rs/zerolog/log"
)

// LoginView is what the login page renders: a sign in error and a one-time notice.
type LoginView struct {
	Error  string `json:"error"`
	Notice string `json:"notice"`
}

// LoginViewHandler serves the login view contract (GET /login).
// A pending inactivity notice is shown once and then cleared.
func (s *Server) LoginViewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := LoginView{Error: r.URL.Query().Get("error")}
		if id := deviceID(r); id != "" {
			view.Notice = s.devices.TakeNotice(id)
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// LoginSubmissionHandler processes the login form (POST /auth/login) and mounts a session for the browser.
// Every successful sign in gets a new device id.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, LoginView{Error: "Invalid form data"})
			return
		}

		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")
		if email == "" || password == "" {
			writeJSON(w, http.StatusBadRequest, LoginView{Error: "Email and password are required"})
			return
		}

		id := uuid.New().String()
		d, err := s.devices.SignIn(r.Context(), id, email, password)
		if err != nil {
			var authErr *identity.AuthError
			if errs.As(err, &authErr) {
				s.metrics.SignInFailed(string(authErr.Kind))
				log.Info().Str("device", id).Str("kind", string(authErr.Kind)).Msg("sign in rejected")
				writeJSON(w, http.StatusUnauthorized, LoginView{Error: authErr.Message()})
				return
			}
			writeError(w, r, err)
			return
		}

		if previous := deviceID(r); previous != "" {
			s.devices.TakeNotice(previous)
			if err := s.devices.SignOut(r.Context(), previous); err != nil && !errs.Is(err, errs.ErrUnknownDevice) {
				log.Err(err).Str("device", previous).Msg("failed to sign out previous device")
			}
		}
		s.setDeviceCookie(w, r, id, int(s.config.GetStateTTL().Seconds()))
		writeJSON(w, http.StatusOK, d.Cache.View())
	}
}

// LogoutHandler ends the browser's session (POST /auth/logout). Logging out twice is not an error.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id := deviceID(r); id != "" {
			if err := s.devices.SignOut(r.Context(), id); err != nil && !errs.Is(err, errs.ErrUnknownDevice) {
				writeError(w, r, err)
				return
			}
		}
		s.setDeviceCookie(w, r, "", -1)
		writeJSON(w, http.StatusOK, map[string]string{"redirect": timeout.LoginRedirect})
	}
}
