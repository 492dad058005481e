package reportinghttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/consigna/backoffice/internal/platform/httpx"
	"github.com/consigna/backoffice/internal/reporting"
	"github.com/consigna/backoffice/internal/reporting/export"
)

const defaultRequestTimeout = 5 * time.Second

// ReportService defines the report contract used by the handler.
type ReportService interface {
	Metrics(ctx context.Context, req reporting.Request) (reporting.KPISnapshot, error)
	TimeSeries(ctx context.Context, req reporting.Request) (reporting.TimeSeries, error)
	Performance(ctx context.Context, req reporting.Request) (reporting.Performance, error)
	InventoryHealth(ctx context.Context, req reporting.Request) (reporting.InventoryHealth, error)
	PaymentMethods(ctx context.Context, req reporting.Request) (reporting.PaymentMethodAudit, error)
	Dashboard(ctx context.Context, req reporting.Request) (reporting.Dashboard, error)
}

// Handler serves reports as JSON and CSV.
type Handler struct {
	logger   *slog.Logger
	service  ReportService
	validate *validator.Validate
	timeout  time.Duration
	csvPool  sync.Pool
}

// NewHandler constructs the reporting HTTP handler. A non-positive timeout
// selects the default.
func NewHandler(logger *slog.Logger, service ReportService, timeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	h := &Handler{logger: logger, service: service, validate: v, timeout: timeout}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// queryForm mirrors the accepted query parameters.
type queryForm struct {
	StartDate   string   `form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string   `form:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Granularity string   `form:"granularity" validate:"omitempty,max=16"`
	Metrics     []string `form:"metrics" validate:"max=8,dive,max=32"`
	GroupBy     string   `form:"group_by" validate:"omitempty,max=16"`
	Bound       string   `form:"bound" validate:"omitempty,max=8"`
	VendorIDs   []int64  `form:"vendor_ids" validate:"max=500,dive,gt=0"`
	ClientIDs   []int64  `form:"client_ids" validate:"max=500,dive,gt=0"`
	BrandIDs    []int64  `form:"brand_ids" validate:"max=500,dive,gt=0"`
	CategoryIDs []int64  `form:"category_ids" validate:"max=500,dive,gt=0"`
}

func (f queryForm) request() reporting.Request {
	return reporting.Request{
		StartDate:   f.StartDate,
		EndDate:     f.EndDate,
		Granularity: f.Granularity,
		Metrics:     f.Metrics,
		GroupBy:     f.GroupBy,
		Bound:       f.Bound,
		VendorIDs:   f.VendorIDs,
		ClientIDs:   f.ClientIDs,
		BrandIDs:    f.BrandIDs,
		CategoryIDs: f.CategoryIDs,
	}
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}

func (h *Handler) parseRequest(r *http.Request) (reporting.Request, error) {
	q := r.URL.Query()
	form := queryForm{
		StartDate:   strings.TrimSpace(q.Get("start_date")),
		EndDate:     strings.TrimSpace(q.Get("end_date")),
		Granularity: strings.TrimSpace(q.Get("granularity")),
		Metrics:     splitList(q["metrics"]),
		GroupBy:     strings.TrimSpace(q.Get("group_by")),
		Bound:       strings.TrimSpace(q.Get("bound")),
	}
	for _, field := range []struct {
		name string
		dest *[]int64
	}{
		{"vendor_ids", &form.VendorIDs},
		{"client_ids", &form.ClientIDs},
		{"brand_ids", &form.BrandIDs},
		{"category_ids", &form.CategoryIDs},
	} {
		ids, err := parseIDs(q[field.name])
		if err != nil {
			return reporting.Request{}, validationError{field: field.name}
		}
		*field.dest = ids
	}

	if err := h.validate.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return reporting.Request{}, validationError{field: fieldErrs[0].Field()}
		}
		return reporting.Request{}, err
	}
	return form.request(), nil
}

// splitList accepts both repeated parameters and comma lists.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, part := range splitList(values) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// serve runs one report and writes it as JSON.
func serve[T any](h *Handler, w http.ResponseWriter, r *http.Request, name string, run func(context.Context, reporting.Request) (T, error)) {
	req, err := h.parseRequest(r)
	if err != nil {
		h.respondError(w, name, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := run(ctx, req)
	if err != nil {
		h.respondError(w, name, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// serveCSV runs one report and streams it through write as a download.
func serveCSV[T any](h *Handler, w http.ResponseWriter, r *http.Request, name string, run func(context.Context, reporting.Request) (T, error), write func(io.Writer, T) error) {
	req, err := h.parseRequest(r)
	if err != nil {
		h.respondError(w, name, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := run(ctx, req)
	if err != nil {
		h.respondError(w, name, err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	if err := write(buf, result); err != nil {
		h.respondError(w, name, fmt.Errorf("write csv: %w", err))
		return
	}

	filename := name
	if req.StartDate != "" && req.EndDate != "" {
		filename = fmt.Sprintf("%s-%s_%s", name, req.StartDate, req.EndDate)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "metrics", h.service.Metrics)
}

func (h *Handler) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "timeseries", h.service.TimeSeries)
}

func (h *Handler) handlePerformance(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "performance", h.service.Performance)
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "inventory", h.service.InventoryHealth)
}

func (h *Handler) handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "payment-methods", h.service.PaymentMethods)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "dashboard", h.service.Dashboard)
}

func (h *Handler) handleMetricsCSV(w http.ResponseWriter, r *http.Request) {
	serveCSV(h, w, r, "metrics", h.service.Metrics, export.WriteKPICSV)
}

func (h *Handler) handleTimeSeriesCSV(w http.ResponseWriter, r *http.Request) {
	serveCSV(h, w, r, "timeseries", h.service.TimeSeries, export.WriteTimeSeriesCSV)
}

func (h *Handler) handlePerformanceCSV(w http.ResponseWriter, r *http.Request) {
	serveCSV(h, w, r, "performance", h.service.Performance, export.WritePerformanceCSV)
}

func (h *Handler) handleInventoryCSV(w http.ResponseWriter, r *http.Request) {
	serveCSV(h, w, r, "inventory", h.service.InventoryHealth, export.WriteAgingCSV)
}

func (h *Handler) respondError(w http.ResponseWriter, report string, err error) {
	var vErr validationError
	switch {
	case errors.As(err, &vErr), reporting.IsRequestError(err):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
	default:
		h.logError("report "+report, err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}
