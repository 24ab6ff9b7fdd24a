// Package visibility answers straight-line line-of-sight queries over the
// fused terrain grid.
package visibility

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-nav/internal/logger"
	"github.com/Faultbox/midgard-nav/internal/nav/grid"
	"github.com/Faultbox/midgard-nav/internal/nav/terrain"
)

// Terrain is the read side of the terrain model.
type Terrain interface {
	Snapshot() *terrain.Snapshot
}

// Ray is a read-only record of the last query, for debug overlays.
type Ray struct {
	Start   grid.Cell
	End     grid.Cell
	Visited []grid.Cell // Cells passed before the walk ended
	Clear   bool
}

// Oracle rasterizes lines between cells. It holds no per-query state besides
// the last ray kept for diagnostics.
type Oracle struct {
	terrain   Terrain
	threshold func() int
	log       *zap.Logger

	last atomic.Pointer[Ray]
}

// NewOracle creates an oracle. threshold returns the collision threshold: a
// cell lets sight through when its category value is at least the threshold.
func NewOracle(t Terrain, threshold func() int) *Oracle {
	if threshold == nil {
		threshold = func() int { return 1 }
	}
	return &Oracle{
		terrain:   t,
		threshold: threshold,
		log:       logger.Named("visibility"),
	}
}

// HasLineOfSight reports whether the straight line from start to end crosses
// only cells that let sight through. The start cell itself is not tested.
//
// Missing terrain data reports a clear line so the agent is not paralysed by a
// data outage. Diagonal lines are not guaranteed to be symmetric: the walk
// from end to start may visit different cells.
func (o *Oracle) HasLineOfSight(start, end grid.Cell) (visible bool) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("line of sight panicked",
				zap.Stringer("start", start), zap.Stringer("end", end), zap.Any("panic", r))
			visible = true
		}
	}()

	var snap *terrain.Snapshot
	if o.terrain != nil {
		snap = o.terrain.Snapshot()
	}
	if snap == nil {
		return true
	}
	if !snap.InBounds(start) || !snap.InBounds(end) {
		o.record(start, end, nil, false)
		return false
	}

	w := walker{snap: snap, threshold: o.threshold()}
	visible = w.walk(start, end)
	o.record(start, end, w.visited, visible)
	return visible
}

// LastRay returns a copy of the most recent query made against loaded terrain,
// or false if there was none.
func (o *Oracle) LastRay() (Ray, bool) {
	r := o.last.Load()
	if r == nil {
		return Ray{}, false
	}
	cp := *r
	cp.Visited = append([]grid.Cell(nil), r.Visited...)
	return cp, true
}

func (o *Oracle) record(start, end grid.Cell, visited []grid.Cell, ok bool) {
	o.last.Store(&Ray{Start: start, End: end, Visited: visited, Clear: ok})
}

type walker struct {
	snap      *terrain.Snapshot
	threshold int
	visited   []grid.Cell
}

// visit tests one stepped cell and returns false if it blocks the line.
func (w *walker) visit(c grid.Cell) bool {
	if int(w.snap.At(c)) < w.threshold {
		return false
	}
	w.visited = append(w.visited, c)
	return true
}

func (w *walker) walk(start, end grid.Cell) bool {
	dx := end.X - start.X
	dy := end.Y - start.Y
	sx, sy := sign(dx), sign(dy)
	adx, ady := dx*sx, dy*sy

	if dx == 0 || dy == 0 {
		steps := adx + ady
		c := start
		for i := 0; i < steps; i++ {
			c.X += sx
			c.Y += sy
			if !w.visit(c) {
				return false
			}
		}
		return true
	}

	// Drive along the dominant axis, stepping the minor axis whenever the
	// accumulated slope reaches one half.
	major, minor := adx, ady
	if ady > adx {
		major, minor = ady, adx
	}
	slope := float64(minor) / float64(major)

	c := start
	acc := 0.0
	for i := 0; i < major; i++ {
		acc += slope
		stepMinor := acc >= 0.5
		if stepMinor {
			acc -= 1.0
		}
		if adx >= ady {
			c.X += sx
			if stepMinor {
				c.Y += sy
			}
		} else {
			c.Y += sy
			if stepMinor {
				c.X += sx
			}
		}
		if !w.visit(c) {
			return false
		}
	}
	return true
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
