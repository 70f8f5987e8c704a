package documents

import (
	"sort"
	"strings"
	"time"

	errs "github.com/jrsteele09/go-truckdocs/internal/errors"
	"github.com/pkg/errors"
)

type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Sortable columns, named as in the record JSON.
const (
	ColumnLoadedDate  = "loadedDate"
	ColumnTruckNumber = "truckNumber"
	ColumnProduct     = "product"
	ColumnAT20Depot   = "at20Depot"
	ColumnDestination = "destination"
	ColumnCreatedAt   = "createdAt"
)

type Sort struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
}

var DefaultSort = Sort{Column: ColumnLoadedDate, Direction: Desc}

// Toggle flips the direction when column is already sorted, otherwise sorts column descending.
func (s Sort) Toggle(column string) Sort {
	if s.Column == column {
		if s.Direction == Asc {
			return Sort{Column: column, Direction: Desc}
		}
		return Sort{Column: column, Direction: Asc}
	}
	return Sort{Column: column, Direction: Desc}
}

// ParseSort reads the query string form. Empty values fall back to DefaultSort.
func ParseSort(column, direction string) (Sort, error) {
	s := DefaultSort
	if column != "" {
		if _, ok := sortKeys[column]; !ok {
			return Sort{}, errors.Wrapf(errs.ErrValidation, "unknown sort column %q", column)
		}
		s.Column = column
	}
	switch SortDirection(direction) {
	case "":
	case Asc, Desc:
		s.Direction = SortDirection(direction)
	default:
		return Sort{}, errors.Wrapf(errs.ErrValidation, "unknown sort direction %q", direction)
	}
	return s, nil
}

// Query narrows and orders an owner's records.
type Query struct {
	Search string
	Sort   Sort
	Month  string // YYYY-MM of loadedDate, empty for all months
}

type sortKey func(a, b *Record) int

var sortKeys = map[string]sortKey{
	ColumnLoadedDate:  func(a, b *Record) int { return compareTime(loadedAt(a), loadedAt(b)) },
	ColumnCreatedAt:   func(a, b *Record) int { return compareTime(a.CreatedAt, b.CreatedAt) },
	ColumnTruckNumber: func(a, b *Record) int { return strings.Compare(a.TruckNumber, b.TruckNumber) },
	ColumnProduct:     func(a, b *Record) int { return strings.Compare(a.Product, b.Product) },
	ColumnAT20Depot:   func(a, b *Record) int { return strings.Compare(a.AT20Depot, b.AT20Depot) },
	ColumnDestination: func(a, b *Record) int { return strings.Compare(a.Destination, b.Destination) },
}

func loadedAt(r *Record) time.Time {
	t, _ := parseDate(r.LoadedDate)
	return t
}

func compareTime(a, b time.Time) int {
	return a.Compare(b)
}

// Matches reports whether search occurs, ignoring case, in the truck number, product, depot or destination.
func (r *Record) Matches(search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, field := range []string{r.TruckNumber, r.Product, r.AT20Depot, r.Destination} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Month is the YYYY-MM bucket of the loaded date, empty when the date is unreadable.
func (r *Record) Month() string {
	t, ok := parseDate(r.LoadedDate)
	if !ok {
		return ""
	}
	return t.Format("2006-01")
}

// Apply filters and sorts records into a new slice. The input is not modified.
func Apply(records []Record, q Query) []Record {
	out := make([]Record, 0, len(records))
	for i := range records {
		r := &records[i]
		if !r.Matches(q.Search) {
			continue
		}
		if q.Month != "" && r.Month() != q.Month {
			continue
		}
		out = append(out, *r)
	}

	s := q.Sort
	if s.Column == "" {
		s = DefaultSort
	}
	key, ok := sortKeys[s.Column]
	if !ok {
		key = sortKeys[DefaultSort.Column]
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := key(&out[i], &out[j])
		if s.Direction == Asc {
			return c < 0
		}
		return c > 0
	})
	return out
}

type MonthGroup struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Months lists the loaded date months present in records, newest first.
func Months(records []Record) []MonthGroup {
	counts := make(map[string]int)
	for i := range records {
		if m := records[i].Month(); m != "" {
			counts[m]++
		}
	}
	groups := make([]MonthGroup, 0, len(counts))
	for m, n := range counts {
		groups = append(groups, MonthGroup{Month: m, Count: n})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Month > groups[j].Month })
	return groups
}
