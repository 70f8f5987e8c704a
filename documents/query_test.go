package documents_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-truckdocs/documents"
	errs "github.com/jrsteele09/go-truckdocs/internal/errors"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []documents.Record {
	return []documents.Record{
		{ID: "a", TruckNumber: "TRK-100", LoadedDate: "2025-01-20", AT20Depot: "Main Depot", Product: "Diesel", Destination: "Lusaka", CreatedAt: time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)},
		{ID: "b", TruckNumber: "TRK-200", LoadedDate: "2025-03-02", AT20Depot: "North Depot", Product: "Petrol", Destination: "Ndola", CreatedAt: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "c", TruckNumber: "ABC-9", LoadedDate: "2024-12-31", AT20Depot: "Main Depot", Product: "Jet A1", Destination: "Kitwe", CreatedAt: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		{ID: "d", TruckNumber: "TRK-300", LoadedDate: "2025-03-15", AT20Depot: "South Depot", Product: "diesel", Destination: "Livingstone", CreatedAt: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
	}
}

func ids(records []documents.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestApply_DefaultSortIsLoadedDateDescending(t *testing.T) {
	out := documents.Apply(sampleRecords(), documents.Query{})
	require.Equal(t, []string{"d", "b", "a", "c"}, ids(out))
}

func TestApply_SortColumns(t *testing.T) {
	tests := []struct {
		sort documents.Sort
		want []string
	}{
		{documents.Sort{Column: documents.ColumnLoadedDate, Direction: documents.Asc}, []string{"c", "a", "b", "d"}},
		{documents.Sort{Column: documents.ColumnTruckNumber, Direction: documents.Asc}, []string{"c", "a", "b", "d"}},
		{documents.Sort{Column: documents.ColumnTruckNumber, Direction: documents.Desc}, []string{"d", "b", "a", "c"}},
		{documents.Sort{Column: documents.ColumnCreatedAt, Direction: documents.Desc}, []string{"d", "c", "b", "a"}},
		{documents.Sort{Column: documents.ColumnDestination, Direction: documents.Asc}, []string{"c", "d", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.sort.Column+"_"+string(tt.sort.Direction), func(t *testing.T) {
			out := documents.Apply(sampleRecords(), documents.Query{Sort: tt.sort})
			require.Equal(t, tt.want, ids(out))
		})
	}
}

func TestApply_SearchIsCaseInsensitiveSubstring(t *testing.T) {
	records := sampleRecords()

	require.Equal(t, []string{"d", "a"}, ids(documents.Apply(records, documents.Query{Search: "DIESEL"})))
	require.Equal(t, []string{"a", "c"}, ids(documents.Apply(records, documents.Query{Search: "main"})))
	require.Equal(t, []string{"b"}, ids(documents.Apply(records, documents.Query{Search: "ndo"})))
	require.Equal(t, []string{"c"}, ids(documents.Apply(records, documents.Query{Search: "abc"})))
	require.Empty(t, documents.Apply(records, documents.Query{Search: "zzz"}))
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	records := sampleRecords()
	_ = documents.Apply(records, documents.Query{Sort: documents.Sort{Column: documents.ColumnTruckNumber, Direction: documents.Asc}})
	require.Equal(t, sampleRecords(), records)
}

func TestApply_MonthFilter(t *testing.T) {
	out := documents.Apply(sampleRecords(), documents.Query{Month: "2025-03"})
	require.Equal(t, []string{"d", "b"}, ids(out))
}

func TestMonths_NewestFirst(t *testing.T) {
	require.Equal(t, []documents.MonthGroup{
		{Month: "2025-03", Count: 2},
		{Month: "2025-01", Count: 1},
		{Month: "2024-12", Count: 1},
	}, documents.Months(sampleRecords()))
}

func TestSort_Toggle(t *testing.T) {
	s := documents.DefaultSort
	s = s.Toggle(documents.ColumnLoadedDate)
	require.Equal(t, documents.Sort{Column: documents.ColumnLoadedDate, Direction: documents.Asc}, s)

	s = s.Toggle(documents.ColumnLoadedDate)
	require.Equal(t, documents.Sort{Column: documents.ColumnLoadedDate, Direction: documents.Desc}, s)

	s = s.Toggle(documents.ColumnLoadedDate).Toggle(documents.ColumnProduct)
	require.Equal(t, documents.Sort{Column: documents.ColumnProduct, Direction: documents.Desc}, s, "New column starts descending")
}

func TestParseSort(t *testing.T) {
	s, err := documents.ParseSort("", "")
	require.NoError(t, err)
	require.Equal(t, documents.DefaultSort, s)

	s, err = documents.ParseSort("product", "asc")
	require.NoError(t, err)
	require.Equal(t, documents.Sort{Column: "product", Direction: documents.Asc}, s)

	_, err = documents.ParseSort("gatePassUrl", "")
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = documents.ParseSort("product", "sideways")
	require.ErrorIs(t, err, errs.ErrValidation)
}
