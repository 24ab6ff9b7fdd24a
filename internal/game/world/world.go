// Package world wires the navigation core to the host's area lifecycle.
package world

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-nav/internal/config"
	"github.com/Faultbox/midgard-nav/internal/logger"
	"github.com/Faultbox/midgard-nav/internal/nav/grid"
	"github.com/Faultbox/midgard-nav/internal/nav/pathsearch"
	"github.com/Faultbox/midgard-nav/internal/nav/terrain"
	"github.com/Faultbox/midgard-nav/internal/nav/visibility"
)

// areaSource forwards to the source of the current area.
type areaSource struct {
	mu     sync.RWMutex
	source terrain.Source
}

func (a *areaSource) set(s terrain.Source) {
	a.mu.Lock()
	a.source = s
	a.mu.Unlock()
}

// Layers implements terrain.Source.
func (a *areaSource) Layers() (grid.Layers, error) {
	a.mu.RLock()
	s := a.source
	a.mu.RUnlock()
	if s == nil {
		return grid.Layers{}, terrain.ErrNoSource
	}
	return s.Layers()
}

// Navigator owns the terrain model, the visibility oracle and the path search
// engine for the current area.
type Navigator struct {
	settings func() config.NavigationConfig
	log      *zap.Logger

	source  *areaSource
	terrain *terrain.Model
	oracle  *visibility.Oracle
	engine  *pathsearch.Engine

	mu          sync.Mutex
	area        string
	lastRefresh time.Time
}

// NewNavigator creates a navigator with no area loaded. settings is read on
// every call; nil means the default navigation settings. Options are passed
// to the path search engine.
func NewNavigator(settings func() config.NavigationConfig, opts ...pathsearch.Option) *Navigator {
	if settings == nil {
		settings = config.DefaultNavigation
	}
	n := &Navigator{
		settings: settings,
		log:      logger.Named("world"),
		source:   &areaSource{},
	}
	n.terrain = terrain.NewModel(n.source, func() int { return n.settings().TargetingThreshold })
	n.oracle = visibility.NewOracle(n.terrain, func() int { return n.settings().CollisionThreshold })
	n.engine = pathsearch.New(n.terrain, settings, opts...)
	return n
}

// OnAreaChange switches to a new area. The old grid and every cached route or
// field are dropped; the new grid is built by the next refresh.
func (n *Navigator) OnAreaChange(name string, source terrain.Source) {
	n.mu.Lock()
	n.area = name
	n.lastRefresh = time.Time{}
	n.mu.Unlock()

	n.source.set(source)
	n.terrain.Clear()
	n.engine.ClearCache()
	n.log.Info("area changed", zap.String("area", name))
}

// LoadArea switches to a new area and builds the grid immediately. The refresh
// interval starts with the next Tick.
func (n *Navigator) LoadArea(name string, source terrain.Source) error {
	n.OnAreaChange(name, source)
	if err := n.terrain.Refresh(); err != nil {
		return fmt.Errorf("loading area %s: %w", name, err)
	}
	return nil
}

// Refresh rebuilds the grid from the current area's source. now is on the
// same clock as Tick and restarts the refresh interval.
func (n *Navigator) Refresh(now time.Time) error {
	n.mu.Lock()
	n.lastRefresh = now
	n.mu.Unlock()
	return n.terrain.Refresh()
}

// Tick refreshes the grid when at least the configured refresh interval has
// passed since the last refresh. It reports whether a refresh ran.
func (n *Navigator) Tick(now time.Time) bool {
	interval := n.settings().RefreshInterval

	n.mu.Lock()
	if !n.lastRefresh.IsZero() && now.Sub(n.lastRefresh) < interval {
		n.mu.Unlock()
		return false
	}
	n.lastRefresh = now
	n.mu.Unlock()

	if err := n.terrain.Refresh(); err != nil {
		n.log.Debug("terrain refresh failed", zap.Error(err))
	}
	return true
}

// Area returns the name of the current area.
func (n *Navigator) Area() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.area
}

// IsLoaded returns true if the current area has a grid.
func (n *Navigator) IsLoaded() bool {
	return n.terrain.IsLoaded()
}

// Size returns the grid dimensions, or zeros when unloaded.
func (n *Navigator) Size() (width, height int) {
	return n.terrain.Size()
}

// CategoryAt returns the fused category at c.
func (n *Navigator) CategoryAt(c grid.Cell) grid.Category {
	return n.terrain.CategoryAt(c)
}

// PathTo returns the cells to visit after origin, ending at dest, or nil.
func (n *Navigator) PathTo(origin, dest grid.Cell) []grid.Cell {
	return n.engine.FindPath(origin, dest)
}

// CanSee reports line of sight from a to b. It fails open without a grid.
func (n *Navigator) CanSee(a, b grid.Cell) bool {
	return n.oracle.HasLineOfSight(a, b)
}

// LastRay returns the last line-of-sight query for debug overlays.
func (n *Navigator) LastRay() (visibility.Ray, bool) {
	return n.oracle.LastRay()
}

// Stats returns the path search statistics.
func (n *Navigator) Stats() pathsearch.Stats {
	return n.engine.Stats()
}

// ClearCache drops every cached route and field without touching the grid.
func (n *Navigator) ClearCache() {
	n.engine.ClearCache()
}
