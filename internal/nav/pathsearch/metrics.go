package pathsearch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Outcome labels for nav_path_requests_total.
const (
	OutcomeRouteCache     = "route_cache"
	OutcomeDirectionField = "direction_field"
	OutcomeDistanceField  = "distance_field"
	OutcomeComputed       = "computed"
	OutcomeNoPath         = "no_path"
	OutcomeFault          = "fault"
)

type metrics struct {
	requests    *prometheus.CounterVec
	latency     prometheus.Histogram
	expanded    prometheus.Histogram
	staleRoutes prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nav_path_requests_total",
			Help: "Path requests by how they were answered",
		}, []string{"outcome"}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nav_path_request_duration_seconds",
			Help:    "Path request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50us to ~400ms
		}),
		expanded: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nav_path_expanded_nodes",
			Help:    "Cells settled per cold expansion",
			Buckets: prometheus.ExponentialBuckets(16, 4, 8),
		}),
		staleRoutes: f.NewCounter(prometheus.CounterOpts{
			Name: "nav_path_stale_routes_total",
			Help: "Cached routes rejected by waypoint validation",
		}),
	}
}

// Stats is a point-in-time view of the engine.
type Stats struct {
	Routes          int
	DirectionFields int
	DistanceFields  int

	// Calls and AvgLatency cover the current reporting window.
	Calls      int64
	AvgLatency time.Duration
}

// window accumulates call counts between periodic reports. Guarded by
// Engine.statsMu.
type window struct {
	calls   int64
	elapsed time.Duration
	started time.Time
}

func (w window) average() time.Duration {
	if w.calls == 0 {
		return 0
	}
	return w.elapsed / time.Duration(w.calls)
}

// observe records one finished request and emits the periodic summary.
func (e *Engine) observe(start time.Time, outcome string) {
	now := e.now()
	elapsed := now.Sub(start)

	e.metrics.requests.WithLabelValues(outcome).Inc()
	e.metrics.latency.Observe(elapsed.Seconds())

	interval := e.settings().StatsInterval

	e.statsMu.Lock()
	if e.window.started.IsZero() {
		e.window.started = start
	}
	e.window.calls++
	e.window.elapsed += elapsed
	var report *window
	if interval > 0 && now.Sub(e.window.started) >= interval {
		w := e.window
		report = &w
		e.window = window{started: now}
	}
	e.statsMu.Unlock()

	if report != nil {
		dirs, dists := e.fields.Counts()
		e.log.Info("path search summary",
			zap.Int64("calls", report.calls),
			zap.Duration("avg_latency", report.average()),
			zap.Int("routes", e.routes.Count()),
			zap.Int("direction_fields", dirs),
			zap.Int("distance_fields", dists))
	}
}

// Stats returns cache sizes and the current window's call statistics.
func (e *Engine) Stats() Stats {
	dirs, dists := e.fields.Counts()

	e.statsMu.Lock()
	w := e.window
	e.statsMu.Unlock()

	return Stats{
		Routes:          e.routes.Count(),
		DirectionFields: dirs,
		DistanceFields:  dists,
		Calls:           w.calls,
		AvgLatency:      w.average(),
	}
}
