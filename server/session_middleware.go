package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-truckdocs/devices"
	"github.com/jrsteele09/go-truckdocs/timeout"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyDevice stores the mounted *devices.Device
	ContextKeyDevice ContextKey = "device"

	// deviceCookieName identifies the browser across requests
	deviceCookieName = "device_id"
)

// RequireDevice rejects requests from browsers with no mounted session and from
// sessions the inactivity monitor has already signed out.
func (s *Server) RequireDevice() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id := deviceID(r)
			if id == "" {
				writeSessionEnded(w, "")
				return
			}

			d, err := s.devices.Get(id)
			if err != nil {
				writeSessionEnded(w, s.devices.Notice(id))
				return
			}

			if state := d.Monitor.State(); state.Status == timeout.LoggedOut {
				s.devices.Expire(d)
				writeSessionEnded(w, state.Notice)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyDevice, d)
			next(w, r.WithContext(ctx))
		}
	}
}

func deviceFromContext(ctx context.Context) *devices.Device {
	d, _ := ctx.Value(ContextKeyDevice).(*devices.Device)
	return d
}

func deviceID(r *http.Request) string {
	cookie, err := r.Cookie(deviceCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) setDeviceCookie(w http.ResponseWriter, r *http.Request, id string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     deviceCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}
