package server

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-truckdocs/documents"
	errs "github.com/jrsteele09/go-truckdocs/internal/errors"
	"github.com/jrsteele09/go-truckdocs/upload"
	"github.com/pkg/errors"
)

const (
	multipartMemory = 32 << 20

	// attachments per document: gate pass, TR812 and an optional ePermit
	maxAttachments = 3
)

// Multipart field names of the new document form.
const (
	fieldTruckNumber = "truckNumber"
	fieldLoadedDate  = "loadedDate"
	fieldAT20Depot   = "at20Depot"
	fieldProduct     = "product"
	fieldDestination = "destination"
	fieldGatePass    = "gatePass"
	fieldTR812       = "tr812"
	fieldEPermit     = "ePermit"
)

type documentList struct {
	Documents []documents.Record `json:"documents"`
	Sort      documents.Sort     `json:"sort"`
}

type monthList struct {
	Months []documents.MonthGroup `json:"months"`
}

// owner is the signed in user of the mounted device.
func owner(r *http.Request) (documents.Owner, bool) {
	user := deviceFromContext(r.Context()).Client.CurrentUser()
	if user == nil {
		return documents.Owner{}, false
	}
	return documents.Owner{ID: user.UID, Email: user.Email}, true
}

func parseQuery(values url.Values) (documents.Query, error) {
	sort, err := documents.ParseSort(values.Get("sort"), values.Get("direction"))
	if err != nil {
		return documents.Query{}, err
	}
	return documents.Query{
		Search: values.Get("search"),
		Sort:   sort,
		Month:  values.Get("month"),
	}, nil
}

// ListDocumentsHandler lists the signed in user's documents (GET /api/documents).
func (s *Server) ListDocumentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := owner(r)
		if !ok {
			writeSessionEnded(w, "")
			return
		}
		q, err := parseQuery(r.URL.Query())
		if err != nil {
			writeError(w, r, err)
			return
		}
		records, err := s.documents.List(r.Context(), o.ID, q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if records == nil {
			records = []documents.Record{}
		}
		writeJSON(w, http.StatusOK, documentList{Documents: records, Sort: q.Sort})
	}
}

func (s *Server) DocumentMonthsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := owner(r)
		if !ok {
			writeSessionEnded(w, "")
			return
		}
		months, err := s.documents.Months(r.Context(), o.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if months == nil {
			months = []documents.MonthGroup{}
		}
		writeJSON(w, http.StatusOK, monthList{Months: months})
	}
}

// CreateDocumentHandler accepts the new document form as multipart (POST /api/documents).
func (s *Server) CreateDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := owner(r)
		if !ok {
			writeSessionEnded(w, "")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxAttachments*s.config.GetUploadMaxBytes()+multipartMemory)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: fileTooLargeMessage})
				return
			}
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid form data"})
			return
		}
		defer r.MultipartForm.RemoveAll()

		form, err := readForm(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		rec, err := s.documents.Create(r.Context(), o, form)
		if err != nil {
			var uploadErr *upload.UploadError
			if errors.As(err, &uploadErr) {
				s.metrics.UploadFinished(string(uploadErr.Kind))
			}
			writeError(w, r, err)
			return
		}
		s.metrics.UploadFinished("success")
		writeJSON(w, http.StatusCreated, rec)
	}
}

func readForm(r *http.Request) (documents.Form, error) {
	form := documents.Form{
		TruckNumber: r.FormValue(fieldTruckNumber),
		LoadedDate:  r.FormValue(fieldLoadedDate),
		AT20Depot:   r.FormValue(fieldAT20Depot),
		Product:     r.FormValue(fieldProduct),
		Destination: r.FormValue(fieldDestination),
	}
	var err error
	if form.GatePass, err = readFile(r, fieldGatePass); err != nil {
		return form, err
	}
	if form.TR812, err = readFile(r, fieldTR812); err != nil {
		return form, err
	}
	if form.EPermit, err = readFile(r, fieldEPermit); err != nil {
		return form, err
	}
	return form, nil
}

// readFile returns nil when the field was not sent.
func readFile(r *http.Request, field string) (*documents.File, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrapf(errs.ErrValidation, "reading %s", field)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "[readFile] %s", field)
	}
	return &documents.File{Name: header.Filename, Size: header.Size, Data: data}, nil
}

// ExportDocumentsHandler downloads the filtered and sorted list as CSV (GET /api/documents/export.csv).
func (s *Server) ExportDocumentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := owner(r)
		if !ok {
			writeSessionEnded(w, "")
			return
		}
		q, err := parseQuery(r.URL.Query())
		if err != nil {
			writeError(w, r, err)
			return
		}
		records, err := s.documents.List(r.Context(), o.ID, q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.writeCSV(w, r, records)
	}
}

// ExportDocumentHandler downloads a single record as CSV (GET /api/documents/{id}/export.csv).
func (s *Server) ExportDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, ok := owner(r)
		if !ok {
			writeSessionEnded(w, "")
			return
		}
		rec, err := s.documents.Get(r.Context(), o.ID, r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.writeCSV(w, r, []documents.Record{*rec})
	}
}

func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, records []documents.Record) {
	w.Header().Set("Content-Type", contentTypeCSV)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", documents.ExportFilename(s.nowTime())))
	if err := documents.WriteCSV(w, records); err != nil {
		logError(r.Method, r.URL.Path, err)
	}
}
