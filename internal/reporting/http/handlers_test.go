package reportinghttp

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consigna/backoffice/internal/money"
	"github.com/consigna/backoffice/internal/platform/httpx"
	"github.com/consigna/backoffice/internal/reporting"
)

type stubService struct {
	last reporting.Request
	err  error
}

func (s *stubService) Metrics(_ context.Context, req reporting.Request) (reporting.KPISnapshot, error) {
	s.last = req
	if s.err != nil {
		return reporting.KPISnapshot{}, s.err
	}
	return reporting.KPISnapshot{
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		TotalRevenue: decimal.NewFromInt(500),
		TotalProfit:  money.NewRange(decimal.NewFromInt(330), decimal.NewFromInt(380)),
		ItemsSold:    1,
		Bound:        money.BoundMid,
	}, nil
}

func (s *stubService) TimeSeries(_ context.Context, req reporting.Request) (reporting.TimeSeries, error) {
	s.last = req
	revenue := decimal.NewFromInt(120)
	return reporting.TimeSeries{
		Metrics: []reporting.Metric{reporting.MetricRevenue},
		Points:  []reporting.TimeSeriesPoint{{Period: "2024-03-01", Start: "2024-03-01", End: "2024-03-01", Revenue: &revenue}},
	}, s.err
}

func (s *stubService) Performance(_ context.Context, req reporting.Request) (reporting.Performance, error) {
	s.last = req
	return reporting.Performance{GroupBy: reporting.DimensionBrand}, s.err
}

func (s *stubService) InventoryHealth(_ context.Context, req reporting.Request) (reporting.InventoryHealth, error) {
	s.last = req
	return reporting.InventoryHealth{HeldCount: 2}, s.err
}

func (s *stubService) PaymentMethods(_ context.Context, req reporting.Request) (reporting.PaymentMethodAudit, error) {
	s.last = req
	return reporting.PaymentMethodAudit{Transactions: 3}, s.err
}

func (s *stubService) Dashboard(ctx context.Context, req reporting.Request) (reporting.Dashboard, error) {
	kpi, err := s.Metrics(ctx, req)
	return reporting.Dashboard{Metrics: kpi}, err
}

func newTestRouter(svc ReportService) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	NewHandler(logger, svc, time.Second).MountRoutes(r)
	return r
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "203.0.113.7:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMetricsParsesQuery(t *testing.T) {
	svc := &stubService{}
	rec := get(t, newTestRouter(svc), "/reports/metrics?start_date=2024-03-01&end_date=2024-03-31&vendor_ids=3,1&vendor_ids=2&client_ids=9&bound=max&metrics=revenue,profit")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-03-01", svc.last.StartDate)
	assert.Equal(t, "2024-03-31", svc.last.EndDate)
	assert.Equal(t, []int64{3, 1, 2}, svc.last.VendorIDs)
	assert.Equal(t, []int64{9}, svc.last.ClientIDs)
	assert.Equal(t, "max", svc.last.Bound)
	assert.Equal(t, []string{"revenue", "profit"}, svc.last.Metrics)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "500", body["totalRevenue"])
	assert.Equal(t, map[string]any{"min": "330", "max": "380"}, body["totalProfitRange"])
	assert.EqualValues(t, 1, body["itemsSold"])
}

func TestEndpointsServeJSON(t *testing.T) {
	router := newTestRouter(&stubService{})
	for _, path := range []string{"/reports/timeseries", "/reports/performance", "/reports/inventory", "/reports/payment-methods", "/reports/dashboard"} {
		rec := get(t, router, path+"?start_date=2024-03-01&end_date=2024-03-02")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), path)
	}
}

func TestRejectsMalformedParameters(t *testing.T) {
	cases := []string{
		"/reports/metrics?start_date=01-03-2024",
		"/reports/metrics?vendor_ids=abc",
		"/reports/metrics?brand_ids=-4",
		"/reports/metrics?granularity=" + strings.Repeat("x", 40),
	}
	for _, target := range cases {
		svc := &stubService{}
		rec := get(t, newTestRouter(svc), target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"), target)
	}
}

func TestRequestErrorsMapToBadRequest(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("%w: start date 2024-03-31 is after end date 2024-03-01", reporting.ErrInvalidRange)}
	rec := get(t, newTestRouter(svc), "/reports/metrics?start_date=2024-03-31&end_date=2024-03-01")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, http.StatusBadRequest, problem.Status)
	assert.Contains(t, problem.Detail, "invalid date range")
}

func TestStorageErrorsMapToInternalError(t *testing.T) {
	svc := &stubService{err: errors.New("connection reset by peer")}
	rec := get(t, newTestRouter(svc), "/reports/metrics?start_date=2024-03-01&end_date=2024-03-02")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestTimeSeriesCSV(t *testing.T) {
	rec := get(t, newTestRouter(&stubService{}), "/reports/timeseries.csv?start_date=2024-03-01&end_date=2024-03-01")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "timeseries-2024-03-01_2024-03-01.csv")
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "120.00", records[1][3])
}

func TestExportsAreRateLimited(t *testing.T) {
	router := newTestRouter(&stubService{})
	var last int
	for i := 0; i <= exportsPerMinute; i++ {
		last = get(t, router, "/reports/inventory.csv").Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
	assert.Equal(t, http.StatusOK, get(t, router, "/reports/inventory").Code)
}
