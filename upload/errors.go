package upload

import (
	"fmt"

	errs "github.com/jrsteele09/go-truckdocs/internal/errors"
)

type ErrorKind string

const (
	TooLarge ErrorKind = "too-large"
	Network  ErrorKind = "network"
	Rejected ErrorKind = "rejected"
)

// UploadError is returned for every failed upload. Uploads are never retried.
type UploadError struct {
	Kind ErrorKind
	Err  error
}

func (e *UploadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("upload %s", e.Kind)
	}
	return fmt.Sprintf("upload %s: %v", e.Kind, e.Err)
}

func (e *UploadError) Unwrap() []error {
	sentinel := errs.ErrUpload
	if e.Kind == TooLarge {
		sentinel = errs.ErrFileTooLarge
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}
