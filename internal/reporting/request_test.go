package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consigna/backoffice/internal/money"
)

func TestNormalizeDefaults(t *testing.T) {
	q, err := Normalize(Request{StartDate: "2024-03-01", EndDate: "2024-03-15"}, RequireDates)
	require.NoError(t, err)

	assert.True(t, q.Dated)
	assert.Equal(t, GranularityDay, q.Granularity)
	assert.Equal(t, AllMetrics, q.Metrics)
	assert.Equal(t, DimensionVendor, q.GroupBy)
	assert.Equal(t, money.BoundMid, q.Bound)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), q.Window.End)
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), q.Previous.Start)
	assert.Equal(t, q.Window.Start, q.Previous.End)
	assert.Equal(t, q.Window.Duration(), q.Previous.Duration())
}

func TestNormalizeSingleDay(t *testing.T) {
	q, err := Normalize(Request{StartDate: "2024-03-01", EndDate: "2024-03-01"}, RequireDates)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, q.Window.Duration())
	assert.True(t, q.Window.Contains(time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC)))
	assert.False(t, q.Window.Contains(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
}

func TestNormalizeRejects(t *testing.T) {
	base := Request{StartDate: "2024-03-01", EndDate: "2024-03-15"}
	cases := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"inverted", func(r *Request) { r.StartDate, r.EndDate = r.EndDate, r.StartDate }, ErrInvalidRange},
		{"missing start", func(r *Request) { r.StartDate = "" }, ErrInvalidRange},
		{"malformed end", func(r *Request) { r.EndDate = "15/03/2024" }, ErrInvalidRange},
		{"granularity", func(r *Request) { r.Granularity = "quarter" }, ErrInvalidGranularity},
		{"metric", func(r *Request) { r.Metrics = []string{"revenue", "margin"} }, ErrInvalidMetric},
		{"dimension", func(r *Request) { r.GroupBy = "season" }, ErrInvalidDimension},
		{"bound", func(r *Request) { r.Bound = "avg" }, ErrInvalidBound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := Normalize(req, RequireDates)
			require.ErrorIs(t, err, tc.want)
			assert.True(t, IsRequestError(err))
		})
	}
}

func TestNormalizeIgnoreDates(t *testing.T) {
	q, err := Normalize(Request{}, IgnoreDates)
	require.NoError(t, err)
	assert.False(t, q.Dated)
	assert.True(t, q.Window.Start.IsZero())

	q, err = Normalize(Request{StartDate: "2024-03-01"}, IgnoreDates)
	require.NoError(t, err)
	assert.False(t, q.Dated)
	assert.True(t, q.Window.Start.IsZero())

	undated, err := Normalize(Request{}, IgnoreDates)
	require.NoError(t, err)
	assert.Equal(t, undated.Key(), q.Key())
}

func TestNormalizeIgnoreDatesRejectsBadDates(t *testing.T) {
	for _, req := range []Request{
		{StartDate: "garbage"},
		{EndDate: "2024-02-30"},
		{StartDate: "2024-03-15", EndDate: "2024-03-01"},
	} {
		_, err := Normalize(req, IgnoreDates)
		assert.ErrorIs(t, err, ErrInvalidRange, "request %+v", req)
	}
}

func TestNormalizeCanonicalisesFilters(t *testing.T) {
	a, err := Normalize(Request{
		StartDate: "2024-03-01", EndDate: "2024-03-15",
		VendorIDs: []int64{3, 1, 3, 2},
		Metrics:   []string{"Expenses", " revenue", ""},
		Bound:     "MAX",
	}, RequireDates)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, a.Filters.VendorIDs)
	assert.Equal(t, []Metric{MetricRevenue, MetricExpenses}, a.Metrics)
	assert.Equal(t, money.BoundMax, a.Bound)

	b, err := Normalize(Request{
		StartDate: "2024-03-01", EndDate: "2024-03-15",
		VendorIDs: []int64{2, 3, 1},
		Metrics:   []string{"revenue", "expenses"},
		Bound:     "max",
	}, RequireDates)
	require.NoError(t, err)
	assert.Equal(t, a.Key(), b.Key())

	c, err := Normalize(Request{StartDate: "2024-03-01", EndDate: "2024-03-15", ClientIDs: []int64{1}}, RequireDates)
	require.NoError(t, err)
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestNormalizeDoesNotMutateRequest(t *testing.T) {
	ids := []int64{3, 1}
	_, err := Normalize(Request{StartDate: "2024-03-01", EndDate: "2024-03-15", BrandIDs: ids}, RequireDates)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids)
}
