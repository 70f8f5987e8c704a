package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-truckdocs/documents"
	"github.com/jrsteele09/go-truckdocs/identity"
	errs "github.com/jrsteele09/go-truckdocs/internal/errors"
	"github.com/jrsteele09/go-truckdocs/timeout"
	"github.com/jrsteele09/go-truckdocs/upload"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCSV  = "text/csv; charset=utf-8"

	defaultErrorMessage = "An error occurred. Please try again."
	uploadFailedMessage = "Upload failed. Please try again."
	fileTooLargeMessage = "File is too large."
)

type errorResponse struct {
	Error    string            `json:"error"`
	Fields   map[string]string `json:"fields,omitempty"`
	Retry    bool              `json:"retry,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	Notice   string            `json:"notice,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to write response")
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Wrapf(errs.ErrValidation, "invalid request body: %v", err)
	}
	return nil
}

// writeSessionEnded tells the browser to go back to the login view.
func writeSessionEnded(w http.ResponseWriter, notice string) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{
		Error:    "Not signed in",
		Redirect: timeout.LoginRedirect,
		Notice:   notice,
	})
}

// writeError maps the error taxonomy onto HTTP statuses. Nothing is retried server side.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *documents.ValidationError
		authErr       *identity.AuthError
		uploadErr     *upload.UploadError
		queryErr      *documents.QueryError
	)
	switch {
	case errs.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Please correct the highlighted fields", Fields: validationErr.Fields})
	case errs.Is(err, errs.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errs.As(err, &authErr):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: authErr.Message()})
	case errs.Is(err, errs.ErrSessionLoggedOut):
		writeSessionEnded(w, timeout.LogoutNotice)
	case errs.Is(err, timeout.ErrStopped):
		// the device was replaced or signed out while the request was in flight
		writeSessionEnded(w, "")
	case errs.As(err, &uploadErr):
		logError(r.Method, r.URL.Path, err)
		if uploadErr.Kind == upload.TooLarge {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: fileTooLargeMessage})
			return
		}
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: uploadFailedMessage})
	case errs.As(err, &queryErr):
		logError(r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: queryErr.Error(), Retry: true})
	case errs.Is(err, errs.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
	default:
		logError(r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: defaultErrorMessage})
	}
}
