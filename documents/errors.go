package documents

import (
	"sort"
	"strings"

	errs "github.com/jrsteele09/go-truckdocs/internal/errors"
)

// ValidationError maps form fields to the message shown next to them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return errs.ErrValidation
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// QueryError is a failure to read documents. The caller may retry manually.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return "Failed to load documents. Please check your connection and try again."
}

func (e *QueryError) Unwrap() []error {
	return []error{errs.ErrQuery, e.Err}
}
