package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Service computes reports from a Reader, caching results under versioned
// keys. It holds no per-request state and is safe for concurrent use.
type Service struct {
	reader  Reader
	cache   *Cache
	metrics *Instrumentation
	now     func() time.Time
	timeout time.Duration
	flight  singleflight.Group
}

const defaultComputeTimeout = 30 * time.Second

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the evaluation clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithInstrumentation records report computations on m.
func WithInstrumentation(m *Instrumentation) Option {
	return func(s *Service) { s.metrics = m }
}

// WithComputeTimeout bounds a shared report computation. Callers waiting on
// it still give up on their own context.
func WithComputeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService wires a Reader with an optional Cache.
func NewService(reader Reader, cache *Cache, opts ...Option) *Service {
	s := &Service{reader: reader, cache: cache, now: time.Now, timeout: defaultComputeTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the KPI snapshot of the requested window.
func (s *Service) Metrics(ctx context.Context, req Request) (KPISnapshot, error) {
	var out KPISnapshot
	err := s.report(ctx, "metrics", req, RequireDates, &out, func(ctx context.Context, q Query, now time.Time) (any, error) {
		current, previous, err := s.loadWindows(ctx, q)
		if err != nil {
			return nil, err
		}
		return computeKPIs(q, current, previous, now), nil
	})
	return out, err
}

// TimeSeries returns one point per calendar bucket of the window.
func (s *Service) TimeSeries(ctx context.Context, req Request) (TimeSeries, error) {
	var out TimeSeries
	err := s.report(ctx, "timeseries", req, RequireDates, &out, func(ctx context.Context, q Query, _ time.Time) (any, error) {
		snap, err := LoadSnapshot(ctx, s.reader, q.Window, q.Filters)
		if err != nil {
			return nil, err
		}
		return buildTimeSeries(q, snap), nil
	})
	return out, err
}

// Performance ranks the groups of the requested dimension.
func (s *Service) Performance(ctx context.Context, req Request) (Performance, error) {
	var out Performance
	err := s.report(ctx, "performance", req, RequireDates, &out, func(ctx context.Context, q Query, _ time.Time) (any, error) {
		current, previous, err := s.loadWindows(ctx, q)
		if err != nil {
			return nil, err
		}
		return computePerformance(q, current, previous), nil
	})
	return out, err
}

// InventoryHealth describes the current stock of the filtered items. Dates
// in req do not scope it but are validated when present.
func (s *Service) InventoryHealth(ctx context.Context, req Request) (InventoryHealth, error) {
	var out InventoryHealth
	err := s.report(ctx, "inventory", req, IgnoreDates, &out, func(ctx context.Context, q Query, now time.Time) (any, error) {
		items, err := s.reader.ReadItems(ctx, q.Filters)
		if err != nil {
			return nil, fmt.Errorf("reporting: read items: %w", err)
		}
		return analyzeInventory(items, now), nil
	})
	return out, err
}

// PaymentMethods audits the payment methods used in the window.
func (s *Service) PaymentMethods(ctx context.Context, req Request) (PaymentMethodAudit, error) {
	var out PaymentMethodAudit
	err := s.report(ctx, "payment_methods", req, RequireDates, &out, func(ctx context.Context, q Query, _ time.Time) (any, error) {
		current, previous, err := s.loadWindows(ctx, q)
		if err != nil {
			return nil, err
		}
		return auditPaymentMethods(q, current, previous), nil
	})
	return out, err
}

// Dashboard bundles every report for one request.
type Dashboard struct {
	Metrics        KPISnapshot        `json:"metrics"`
	TimeSeries     TimeSeries         `json:"timeSeries"`
	Performance    Performance        `json:"performance"`
	Inventory      InventoryHealth    `json:"inventory"`
	PaymentMethods PaymentMethodAudit `json:"paymentMethods"`
}

// Dashboard loads all reports concurrently. Any failure fails the whole
// dashboard.
func (s *Service) Dashboard(ctx context.Context, req Request) (Dashboard, error) {
	if _, err := Normalize(req, RequireDates); err != nil {
		return Dashboard{}, err
	}
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Metrics, err = s.Metrics(ctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		d.TimeSeries, err = s.TimeSeries(ctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		d.Performance, err = s.Performance(ctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		d.Inventory, err = s.InventoryHealth(ctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		d.PaymentMethods, err = s.PaymentMethods(ctx, req)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	_, err := s.cache.Bump(ctx)
	return err
}

// WatchInvalidations follows bumps published by any process until ctx is
// done, counting each one.
func (s *Service) WatchInvalidations(ctx context.Context) error {
	return s.cache.Follow(ctx, s.metrics.invalidated)
}

type computeFunc func(ctx context.Context, q Query, now time.Time) (any, error)

// report normalizes req, then serves the result from the cache or computes
// it. Identical concurrent requests share one computation.
func (s *Service) report(ctx context.Context, name string, req Request, need Requirement, dest any, compute computeFunc) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe(name, start, err) }()

	q, err := Normalize(req, need)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	key, err := s.cache.Key(ctx, name, q, now)
	if err != nil {
		return err
	}

	ch := s.flight.DoChan(key, func() (any, error) {
		// The computation is shared, so no single caller may cancel it.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		payload, hit, err := s.cache.Load(fctx, key, func(ctx context.Context) (any, error) {
			return compute(ctx, q, now)
		})
		if err == nil && s.cache.enabled() {
			s.metrics.cacheLookup(name, hit)
		}
		return payload, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}

// loadWindows reads the query window and the previous window in parallel.
func (s *Service) loadWindows(ctx context.Context, q Query) (Snapshot, Snapshot, error) {
	var current, previous Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = LoadSnapshot(ctx, s.reader, q.Window, q.Filters)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = LoadSnapshot(ctx, s.reader, q.Previous, q.Filters)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, Snapshot{}, err
	}
	return current, previous, nil
}
