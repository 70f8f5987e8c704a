package documents

import (
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var csvHeader = []string{
	"Truck Number",
	"Loaded Date",
	"Product",
	"From (AT20 Depot)",
	"Destination",
	"Created At",
}

const csvDateLayout = "1/2/2006"

// WriteCSV writes the header and one line per record, in the given order.
// Fields are written as-is: a comma inside a value shifts the columns of that row.
func WriteCSV(w io.Writer, records []Record) error {
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(csvHeader, ","))
	for i := range records {
		r := &records[i]
		lines = append(lines, strings.Join([]string{
			r.TruckNumber,
			formatCSVDate(r.LoadedDate),
			r.Product,
			r.AT20Depot,
			r.Destination,
			r.CreatedAt.UTC().Format(csvDateLayout),
		}, ","))
	}
	if _, err := io.WriteString(w, strings.Join(lines, "\n")); err != nil {
		return errors.Wrap(err, "[WriteCSV]")
	}
	return nil
}

func formatCSVDate(s string) string {
	t, ok := parseDate(s)
	if !ok {
		return s
	}
	return t.UTC().Format(csvDateLayout)
}

// ExportFilename is the download name for an export made at now.
func ExportFilename(now time.Time) string {
	return "truck-documents-" + now.UTC().Format("2006-01-02") + ".csv"
}
