package reporting

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/consigna/backoffice/internal/money"
)

// DateLayout is the ISO calendar date accepted in requests.
const DateLayout = "2006-01-02"

// Granularity is the calendar bucket size of a time series.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Metric names a time-series measure.
type Metric string

const (
	MetricRevenue   Metric = "revenue"
	MetricProfit    Metric = "profit"
	MetricItemsSold Metric = "itemsSold"
	MetricExpenses  Metric = "expenses"
)

// AllMetrics is the default metric set, in output order.
var AllMetrics = []Metric{MetricRevenue, MetricProfit, MetricItemsSold, MetricExpenses}

// Dimension is the axis of a grouped performance rollup.
type Dimension string

const (
	DimensionVendor   Dimension = "vendor"
	DimensionBrand    Dimension = "brand"
	DimensionCategory Dimension = "category"
	DimensionClient   Dimension = "client"
)

// Request carries every parameter a report accepts. Zero values take the
// documented defaults:
//
//	StartDate, EndDate  required by dated reports, ISO YYYY-MM-DD, inclusive
//	Granularity         "day"
//	Metrics             revenue, profit, itemsSold, expenses
//	GroupBy             "vendor"
//	Bound               "mid"
//	*IDs                empty set, meaning no restriction
type Request struct {
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Granularity string   `json:"granularity,omitempty"`
	Metrics     []string `json:"metrics,omitempty"`
	GroupBy     string   `json:"groupBy,omitempty"`
	Bound       string   `json:"bound,omitempty"`
	VendorIDs   []int64  `json:"vendorIds,omitempty"`
	ClientIDs   []int64  `json:"clientIds,omitempty"`
	BrandIDs    []int64  `json:"brandIds,omitempty"`
	CategoryIDs []int64  `json:"categoryIds,omitempty"`
}

// Requirement states whether a report needs a date range.
type Requirement int

const (
	// RequireDates rejects requests without a valid date range.
	RequireDates Requirement = iota
	// IgnoreDates is used by current-state reports.
	IgnoreDates
)

// Query is the normalized form of a Request.
type Query struct {
	Dated       bool
	StartDate   time.Time
	EndDate     time.Time
	Window      Window
	Previous    Window
	Granularity Granularity
	Metrics     []Metric
	GroupBy     Dimension
	Bound       money.Bound
	Filters     Filters
}

// Normalize validates req and returns its normalized query. It has no side
// effects.
func Normalize(req Request, need Requirement) (Query, error) {
	q := Query{Filters: Filters{
		VendorIDs:   normalizeIDs(req.VendorIDs),
		ClientIDs:   normalizeIDs(req.ClientIDs),
		BrandIDs:    normalizeIDs(req.BrandIDs),
		CategoryIDs: normalizeIDs(req.CategoryIDs),
	}}

	if need == RequireDates {
		start, err := parseDate("start date", req.StartDate)
		if err != nil {
			return Query{}, err
		}
		end, err := parseDate("end date", req.EndDate)
		if err != nil {
			return Query{}, err
		}
		if start.After(end) {
			return Query{}, fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidRange, req.StartDate, req.EndDate)
		}
		q.Dated = true
		q.StartDate = start
		q.EndDate = end
		q.Window = Window{Start: start, End: end.AddDate(0, 0, 1)}
		q.Previous = q.Window.Previous()
	} else if err := checkOptionalDates(req); err != nil {
		return Query{}, err
	}

	granularity, err := parseGranularity(req.Granularity)
	if err != nil {
		return Query{}, err
	}
	q.Granularity = granularity

	metrics, err := parseMetrics(req.Metrics)
	if err != nil {
		return Query{}, err
	}
	q.Metrics = metrics

	dimension, err := parseDimension(req.GroupBy)
	if err != nil {
		return Query{}, err
	}
	q.GroupBy = dimension

	bound := money.Bound(strings.ToLower(strings.TrimSpace(req.Bound)))
	if bound == "" {
		bound = money.BoundMid
	}
	if !bound.Valid() {
		return Query{}, fmt.Errorf("%w: %q", ErrInvalidBound, req.Bound)
	}
	q.Bound = bound
	return q, nil
}

// Wants reports whether metric m was requested.
func (q Query) Wants(m Metric) bool {
	return slices.Contains(q.Metrics, m)
}

// Key renders the query as a stable cache key fragment.
func (q Query) Key() string {
	dates := "-"
	if q.Dated {
		dates = q.StartDate.Format(DateLayout) + "_" + q.EndDate.Format(DateLayout)
	}
	metrics := make([]string, 0, len(q.Metrics))
	for _, m := range q.Metrics {
		metrics = append(metrics, string(m))
	}
	return strings.Join([]string{
		dates,
		string(q.Granularity),
		strings.Join(metrics, ","),
		string(q.GroupBy),
		string(q.Bound),
		"v" + joinIDs(q.Filters.VendorIDs),
		"c" + joinIDs(q.Filters.ClientIDs),
		"b" + joinIDs(q.Filters.BrandIDs),
		"k" + joinIDs(q.Filters.CategoryIDs),
	}, ":")
}

// checkOptionalDates rejects malformed or inverted dates on reports that do
// not use them.
func checkOptionalDates(req Request) error {
	var start, end time.Time
	var err error
	if strings.TrimSpace(req.StartDate) != "" {
		if start, err = parseDate("start date", req.StartDate); err != nil {
			return err
		}
	}
	if strings.TrimSpace(req.EndDate) != "" {
		if end, err = parseDate("end date", req.EndDate); err != nil {
			return err
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidRange, req.StartDate, req.EndDate)
	}
	return nil
}

func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", ErrInvalidRange, field)
	}
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q is not a calendar date", ErrInvalidRange, field, value)
	}
	return t, nil
}

func parseGranularity(value string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(value))); g {
	case "":
		return GranularityDay, nil
	case GranularityDay, GranularityWeek, GranularityMonth:
		return g, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, value)
	}
}

func parseMetrics(values []string) ([]Metric, error) {
	if len(values) == 0 {
		return slices.Clone(AllMetrics), nil
	}
	requested := make(map[Metric]bool, len(values))
	for _, raw := range values {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		matched := false
		for _, m := range AllMetrics {
			if strings.EqualFold(name, string(m)) {
				requested[m] = true
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMetric, raw)
		}
	}
	if len(requested) == 0 {
		return slices.Clone(AllMetrics), nil
	}
	metrics := make([]Metric, 0, len(requested))
	for _, m := range AllMetrics {
		if requested[m] {
			metrics = append(metrics, m)
		}
	}
	return metrics, nil
}

func parseDimension(value string) (Dimension, error) {
	switch d := Dimension(strings.ToLower(strings.TrimSpace(value))); d {
	case "":
		return DimensionVendor, nil
	case DimensionVendor, DimensionBrand, DimensionCategory, DimensionClient:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDimension, value)
	}
}

func normalizeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}
