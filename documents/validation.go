package documents

import (
	"fmt"
	"strings"
)

const (
	DefaultMaxFileBytes = 10 * 1024 * 1024

	msgRequired      = "Required"
	msgFilesRequired = "Please select all required files"
	msgInvalidDate   = "Invalid date"
)

// Validate checks a form before anything is uploaded. maxBytes caps each attached file.
func Validate(form Form, maxBytes int64) error {
	verr := &ValidationError{}

	required := []struct {
		field string
		value string
	}{
		{"truckNumber", form.TruckNumber},
		{"loadedDate", form.LoadedDate},
		{"at20Depot", form.AT20Depot},
		{"product", form.Product},
		{"destination", form.Destination},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			verr.add(r.field, msgRequired)
		}
	}
	if form.LoadedDate != "" {
		if _, ok := parseDate(form.LoadedDate); !ok {
			verr.add("loadedDate", msgInvalidDate)
		}
	}

	files := []struct {
		field    string
		file     *File
		required bool
	}{
		{"gatePass", form.GatePass, true},
		{"tr812", form.TR812, true},
		{"ePermit", form.EPermit, false},
	}
	for _, f := range files {
		if f.file == nil || f.file.Size == 0 {
			if f.required {
				verr.add(f.field, msgFilesRequired)
			}
			continue
		}
		if maxBytes > 0 && f.file.Size > maxBytes {
			verr.add(f.field, fmt.Sprintf("Files must be smaller than %dMB", maxBytes/(1024*1024)))
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}
