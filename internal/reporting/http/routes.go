// Package reportinghttp exposes the reporting engine over HTTP.
package reportinghttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

const exportsPerMinute = 10

// MountRoutes registers the report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(exportsPerMinute, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route("/reports", func(rr chi.Router) {
		rr.Get("/metrics", h.handleMetrics)
		rr.Get("/timeseries", h.handleTimeSeries)
		rr.Get("/performance", h.handlePerformance)
		rr.Get("/inventory", h.handleInventory)
		rr.Get("/payment-methods", h.handlePaymentMethods)
		rr.Get("/dashboard", h.handleDashboard)
		rr.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/metrics.csv", h.handleMetricsCSV)
			gr.Get("/timeseries.csv", h.handleTimeSeriesCSV)
			gr.Get("/performance.csv", h.handlePerformanceCSV)
			gr.Get("/inventory.csv", h.handleInventoryCSV)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
