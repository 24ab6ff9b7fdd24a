// Package pathsearch resolves grid routes toward a destination.
//
// A request is answered, in order, from the exact route cache, from a stored
// direction field, from a stored distance field, or by a fresh Dijkstra
// expansion rooted at the destination. Expansions are shared between
// concurrent requests for the same destination and persisted so later
// requests from any origin can reuse them.
package pathsearch

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/midgard-nav/internal/config"
	"github.com/Faultbox/midgard-nav/internal/logger"
	"github.com/Faultbox/midgard-nav/internal/nav/grid"
	"github.com/Faultbox/midgard-nav/internal/nav/routecache"
	"github.com/Faultbox/midgard-nav/internal/nav/terrain"
)

// Terrain is the read side of the terrain model.
type Terrain interface {
	Snapshot() *terrain.Snapshot
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	now      func() time.Time
	registry prometheus.Registerer
}

// WithClock replaces time.Now for the engine and its caches.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithRegisterer registers the engine's metrics with reg. By default the
// metrics go to a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// Engine answers path requests. It is safe for concurrent use.
type Engine struct {
	terrain  Terrain
	settings func() config.NavigationConfig
	now      func() time.Time
	log      *zap.Logger
	metrics  *metrics

	routes *routecache.Cache
	fields *routecache.FieldStore
	group  singleflight.Group

	statsMu sync.Mutex
	window  window
}

// New creates an engine over t. settings is read on every request; nil means
// the default navigation settings.
func New(t Terrain, settings func() config.NavigationConfig, opts ...Option) *Engine {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}
	if settings == nil {
		settings = config.DefaultNavigation
	}

	e := &Engine{
		terrain:  t,
		settings: settings,
		now:      o.now,
		log:      logger.Named("pathsearch"),
		metrics:  newMetrics(o.registry),
	}
	e.routes = routecache.New(func() routecache.Limits {
		s := e.settings()
		return routecache.Limits{Capacity: s.CacheCapacity, TTL: s.CacheTTL}
	}, routecache.WithClock(o.now))
	e.fields = routecache.NewFieldStore(func() time.Duration {
		return e.settings().CacheTTL
	}, routecache.WithClock(o.now))
	return e
}

// FindPath returns the cells to visit after origin, ending at dest, or nil
// when no route is available. A request with origin == dest returns [dest].
// FindPath never panics.
func (e *Engine) FindPath(origin, dest grid.Cell) (path []grid.Cell) {
	start := e.now()
	outcome := OutcomeNoPath
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("path search panicked",
				zap.Stringer("origin", origin), zap.Stringer("dest", dest), zap.Any("panic", r))
			path = nil
			outcome = OutcomeFault
		}
		e.observe(start, outcome)
	}()

	var snap *terrain.Snapshot
	if e.terrain != nil {
		snap = e.terrain.Snapshot()
	}
	if snap == nil {
		return nil
	}
	m := costModel{snap: snap, cfg: e.settings()}
	maxSteps := snap.Width + snap.Height

	if cached, ok := e.routes.TryGet(origin, dest); ok {
		if validWaypoints(m, cached) {
			outcome = OutcomeRouteCache
			return cached
		}
		e.metrics.staleRoutes.Inc()
		e.log.Debug("cached route failed validation",
			zap.Stringer("origin", origin), zap.Stringer("dest", dest))
	}

	if f, ok := e.fields.DirectionField(dest); ok && f.Width == snap.Width && f.Height == snap.Height {
		path = follow(m, f, origin, dest, maxSteps)
		if path == nil {
			return nil
		}
		outcome = OutcomeDirectionField
		e.routes.Put(origin, dest, path)
		return path
	}

	if f, ok := e.fields.DistanceField(dest); ok && f.Width == snap.Width && f.Height == snap.Height {
		path = descend(m, origin, dest, f.Cost, maxSteps)
		if path == nil {
			return nil
		}
		outcome = OutcomeDistanceField
		e.routes.Put(origin, dest, path)
		return path
	}

	if !snap.At(origin).IsWalkable() || !snap.At(dest).IsWalkable() {
		return nil
	}

	x := e.expandShared(m, dest)
	path = descend(m, origin, dest, x.cost, maxSteps)
	if path == nil {
		if x.expanded >= x.budget {
			e.log.Debug("expansion budget exhausted",
				zap.Stringer("origin", origin), zap.Stringer("dest", dest), zap.Int("budget", x.budget))
		}
		return nil
	}
	outcome = OutcomeComputed
	e.routes.Put(origin, dest, path)
	return path
}

// flightKey identifies an expansion: the destination, the terrain snapshot
// and every setting that changes costs, the budget or the stored field.
func flightKey(m costModel, dest grid.Cell) string {
	c := m.cfg
	return fmt.Sprintf("%p/%d,%d/%t:%g:%d-%d/%d:%d/%t",
		m.snap, dest.X, dest.Y,
		c.DashEnabled, c.DashCost, c.DashMinDistance, c.DashMaxDistance,
		c.ExpansionBudgetDivisor, c.MinExpansionNodes, c.CompressFields)
}

// expandShared runs one expansion per destination, snapshot and settings at a
// time and persists the result in the configured representation.
func (e *Engine) expandShared(m costModel, dest grid.Cell) *expansion {
	v, _, _ := e.group.Do(flightKey(m, dest), func() (interface{}, error) {
		x := expand(m, dest)
		e.metrics.expanded.Observe(float64(x.expanded))

		if m.cfg.CompressFields {
			e.fields.PutDirectionField(compress(m, x))
		} else {
			e.fields.PutDistanceField(toDistanceField(x))
		}
		e.log.Debug("expanded destination",
			zap.Stringer("dest", dest),
			zap.Int("settled", x.expanded),
			zap.Int("budget", x.budget),
			zap.Bool("compressed", m.cfg.CompressFields))
		return x, nil
	})
	return v.(*expansion)
}

// validWaypoints re-checks the first, quartile and last cells of a cached
// route against the current terrain.
func validWaypoints(m costModel, path []grid.Cell) bool {
	n := len(path)
	for _, i := range [...]int{0, n / 4, n / 2, 3 * n / 4, n - 1} {
		if !m.snap.At(path[i]).Passable(m.cfg.DashEnabled) {
			return false
		}
	}
	return true
}

// ClearCache drops every cached route and field.
func (e *Engine) ClearCache() {
	e.routes.Clear()
	e.fields.Clear()
	e.log.Debug("path caches cleared")
}
