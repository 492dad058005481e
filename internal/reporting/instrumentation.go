package reporting

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrumentation records report computations and cache traffic.
type Instrumentation struct {
	runs          *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	lookups       *prometheus.CounterVec
	invalidations prometheus.Counter
}

// NewInstrumentation registers the reporting collectors on registerer.
func NewInstrumentation(registerer prometheus.Registerer) *Instrumentation {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_reports_total",
		Help: "Report computations partitioned by report and outcome.",
	}, []string{"report", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_report_duration_seconds",
		Help:    "Duration in seconds of report computations, cache included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"report"})
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_report_cache_lookups_total",
		Help: "Report cache lookups partitioned by report and result.",
	}, []string{"report", "result"})
	invalidations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_report_cache_invalidations_total",
		Help: "Cache generation bumps received from any process.",
	})
	registerer.MustRegister(runs, duration, lookups, invalidations)
	return &Instrumentation{runs: runs, duration: duration, lookups: lookups, invalidations: invalidations}
}

func (m *Instrumentation) observe(report string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case err == nil:
	case IsRequestError(err):
		outcome = "rejected"
	default:
		outcome = "failure"
	}
	m.runs.WithLabelValues(report, outcome).Inc()
	m.duration.WithLabelValues(report).Observe(time.Since(start).Seconds())
}

func (m *Instrumentation) cacheLookup(report string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(report, result).Inc()
}

func (m *Instrumentation) invalidated(int64) {
	if m == nil {
		return
	}
	m.invalidations.Inc()
}
