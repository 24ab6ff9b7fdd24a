package pathsearch

import (
	"container/heap"
	"math"

	"github.com/Faultbox/midgard-nav/internal/config"
	"github.com/Faultbox/midgard-nav/internal/nav/grid"
	"github.com/Faultbox/midgard-nav/internal/nav/routecache"
	"github.com/Faultbox/midgard-nav/internal/nav/terrain"
)

// Movement costs.
const (
	straightCost float32 = 1.0
	diagonalCost float32 = 1.414
)

var inf = float32(math.Inf(1))

// frontierItem is a cell waiting in the Dijkstra frontier.
type frontierItem struct {
	idx  int
	cost float32
}

// frontier implements a min-priority queue for the expansion. Equal costs
// leave the order to container/heap.
type frontier []frontierItem

func (f frontier) Len() int           { return len(f) }
func (f frontier) Less(i, j int) bool { return f[i].cost < f[j].cost }
func (f frontier) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x interface{}) {
	*f = append(*f, x.(frontierItem))
}

func (f *frontier) Pop() interface{} {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// expansion is the result of one Dijkstra run rooted at a destination. Only
// settled cells carry a finite cost.
type expansion struct {
	dest     grid.Cell
	width    int
	height   int
	dist     []float32
	expanded int
	budget   int
}

func (x *expansion) cost(c grid.Cell) (float32, bool) {
	if c.X < 0 || c.Y < 0 || c.X >= x.width || c.Y >= x.height {
		return 0, false
	}
	d := x.dist[c.Y*x.width+c.X]
	return d, d != inf
}

// costModel prices moves under one terrain snapshot and settings.
type costModel struct {
	snap *terrain.Snapshot
	cfg  config.NavigationConfig
}

// move is one legal transition out of a walkable cell: a plain step onto a
// walkable neighbor (span 1) or a straight dash across span-1 dash-only cells
// onto a walkable landing. Moves are symmetric, so the same set serves the
// expansion rooted at the destination and the walk back from an origin.
type move struct {
	dir  int
	to   grid.Cell
	span int
	cost float32
}

func stepCost(off grid.Offset) float32 {
	if off.IsDiagonal() {
		return diagonalCost
	}
	return straightCost
}

// moves appends the legal moves out of c to buf. Impassable, reserved and
// unknown neighbors offer no move.
func (m costModel) moves(c grid.Cell, buf []move) []move {
	if !m.snap.At(c).IsWalkable() {
		return buf
	}
	for i, off := range grid.Offsets {
		n := c.Add(off)
		cat := m.snap.At(n)
		switch {
		case cat.IsWalkable():
			buf = append(buf, move{dir: i, to: n, span: 1, cost: stepCost(off)})
		case cat.IsDashOnly() && m.cfg.DashEnabled:
			if to, k, ok := m.dashLanding(c, off); ok {
				cost := float32(k-1)*m.cfg.DashCost + stepCost(off)
				buf = append(buf, move{dir: i, to: to, span: k, cost: cost})
			}
		}
	}
	return buf
}

// dashLanding follows the dash-only run from c along off and returns the
// walkable cell it ends on and its distance k from c. The landing must lie
// within [DashMinDistance, DashMaxDistance].
func (m costModel) dashLanding(c grid.Cell, off grid.Offset) (grid.Cell, int, bool) {
	for k := 1; k <= m.cfg.DashMaxDistance; k++ {
		c = c.Add(off)
		cat := m.snap.At(c)
		if cat.IsDashOnly() {
			continue
		}
		if k > 1 && k >= m.cfg.DashMinDistance && cat.IsWalkable() {
			return c, k, true
		}
		return grid.Cell{}, 0, false
	}
	return grid.Cell{}, 0, false
}

// appendMove appends the cells covered by mv when taken from c.
func appendMove(path []grid.Cell, c grid.Cell, mv move) []grid.Cell {
	off := grid.Offsets[mv.dir]
	for k := 0; k < mv.span; k++ {
		c = c.Add(off)
		path = append(path, c)
	}
	return path
}

// expansionBudget returns the maximum number of cells to settle.
func expansionBudget(cells int, cfg config.NavigationConfig) int {
	divisor := cfg.ExpansionBudgetDivisor
	if divisor < 1 {
		divisor = 1
	}
	budget := cells / divisor
	if budget < cfg.MinExpansionNodes {
		budget = cfg.MinExpansionNodes
	}
	return budget
}

// expand runs a single-source Dijkstra rooted at dest over the 8-connected
// grid, settling at most the budgeted number of cells. Dashes are single
// edges, so dash-only cells are never settled themselves.
func expand(m costModel, dest grid.Cell) *expansion {
	snap := m.snap
	n := snap.Len()
	x := &expansion{
		dest:   dest,
		width:  snap.Width,
		height: snap.Height,
		dist:   make([]float32, n),
		budget: expansionBudget(n, m.cfg),
	}
	tentative := make([]float32, n)
	for i := range tentative {
		tentative[i] = inf
		x.dist[i] = inf
	}

	open := &frontier{}
	var buf []move
	destIdx := snap.Index(dest)
	tentative[destIdx] = 0
	heap.Push(open, frontierItem{idx: destIdx, cost: 0})

	for open.Len() > 0 && x.expanded < x.budget {
		item := heap.Pop(open).(frontierItem)
		if x.dist[item.idx] != inf || item.cost > tentative[item.idx] {
			continue // already settled or stale
		}
		x.dist[item.idx] = item.cost
		x.expanded++

		buf = m.moves(snap.CellAt(item.idx), buf[:0])
		for _, mv := range buf {
			vi := snap.Index(mv.to)
			if x.dist[vi] != inf {
				continue
			}
			if nd := item.cost + mv.cost; nd < tentative[vi] {
				tentative[vi] = nd
				heap.Push(open, frontierItem{idx: vi, cost: nd})
			}
		}
	}
	return x
}

// compress derives a direction field from an expansion: every settled cell
// points along the cheapest legal move toward the destination. A direction
// into a dash-only cell means dashing straight on to the landing.
func compress(m costModel, x *expansion) *routecache.DirectionField {
	f := routecache.NewDirectionField(x.dest, x.width, x.height)
	var buf []move
	for idx, d := range x.dist {
		if d == inf || d == 0 {
			continue
		}
		c := grid.Cell{X: idx % x.width, Y: idx / x.width}
		var (
			best move
			ok   bool
		)
		if best, ok, buf = bestMove(m, c, d, x.cost, buf); ok {
			f.Set(c, best.dir)
		}
	}
	return f
}

// toDistanceField copies the settled costs into a sparse field.
func toDistanceField(x *expansion) *routecache.DistanceField {
	costs := make(map[int]float32, x.expanded)
	for idx, d := range x.dist {
		if d != inf {
			costs[idx] = d
		}
	}
	return &routecache.DistanceField{
		Destination: x.dest,
		Width:       x.width,
		Height:      x.height,
		Costs:       costs,
	}
}

// bestMove picks the move out of c minimising move cost plus remaining cost,
// among moves whose target is strictly cheaper than current. buf is scratch
// space and is returned for reuse.
func bestMove(m costModel, c grid.Cell, current float32, cost func(grid.Cell) (float32, bool), buf []move) (move, bool, []move) {
	var (
		best  move
		found bool
		total float32
	)
	buf = m.moves(c, buf[:0])
	for _, mv := range buf {
		d, ok := cost(mv.to)
		if !ok || d >= current {
			continue
		}
		if t := d + mv.cost; !found || t < total {
			best, total, found = mv, t, true
		}
	}
	return best, found, buf
}

// descend walks from origin toward dest by strict cost descent. It returns the
// cells after origin, ending at dest, or nil if the walk gets stuck or runs
// past maxSteps.
func descend(m costModel, origin, dest grid.Cell, cost func(grid.Cell) (float32, bool), maxSteps int) []grid.Cell {
	if origin == dest {
		return []grid.Cell{dest}
	}
	current, ok := cost(origin)
	if !ok {
		return nil
	}

	var (
		path []grid.Cell
		buf  []move
		best move
	)
	c := origin
	for c != dest {
		if len(path) >= maxSteps {
			return nil
		}
		if best, ok, buf = bestMove(m, c, current, cost, buf); !ok {
			return nil
		}
		path = appendMove(path, c, best)
		c = best.to
		current, _ = cost(c)
	}
	return path
}

// follow walks a direction field from origin. A step into a dash-only cell
// carries on in the same direction until the dash lands. It returns nil when
// a cell has no direction or the walk runs past maxSteps.
func follow(m costModel, f *routecache.DirectionField, origin, dest grid.Cell, maxSteps int) []grid.Cell {
	if origin == dest {
		return []grid.Cell{dest}
	}

	var path []grid.Cell
	c := origin
	for c != dest {
		if len(path) >= maxSteps {
			return nil
		}
		step := f.Step(c)
		if step == routecache.NoDirection {
			return nil
		}
		off := grid.Offsets[step-1]
		c = c.Add(off)
		path = append(path, c)
		for m.snap.At(c).IsDashOnly() {
			if len(path) >= maxSteps {
				return nil
			}
			c = c.Add(off)
			path = append(path, c)
		}
	}
	return path
}
