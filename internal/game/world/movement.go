package world

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-nav/internal/logger"
	"github.com/Faultbox/midgard-nav/internal/nav/grid"
)

// StepKind is how the agent covers one step of a route.
type StepKind int

const (
	// StepWalk moves to an adjacent cell.
	StepWalk StepKind = iota
	// StepDash crosses a run of dash-only cells and lands on the cell after it.
	StepDash
)

func (k StepKind) String() string {
	switch k {
	case StepWalk:
		return "walk"
	case StepDash:
		return "dash"
	default:
		return "unknown"
	}
}

// Step is one movement the host should perform.
type Step struct {
	Kind StepKind
	From grid.Cell
	To   grid.Cell
	// Over lists the dash-only cells crossed by a dash.
	Over []grid.Cell
}

// MovementController follows routes from the navigator.
type MovementController struct {
	nav      *Navigator
	log      *zap.Logger
	position grid.Cell

	// Current path
	path      []grid.Cell
	pathIndex int

	IsFollowingPath bool
}

// NewMovementController creates a controller for an agent standing at start.
func NewMovementController(nav *Navigator, start grid.Cell) *MovementController {
	return &MovementController{
		nav:      nav,
		log:      logger.Named("movement"),
		position: start,
	}
}

// Position returns the agent's current cell.
func (mc *MovementController) Position() grid.Cell {
	return mc.position
}

// SetPosition teleports the agent and drops the current path.
func (mc *MovementController) SetPosition(c grid.Cell) {
	mc.position = c
	mc.ClearPath()
}

// MoveTo plans a route to dest. Returns the path if one exists, nil otherwise.
func (mc *MovementController) MoveTo(dest grid.Cell) []grid.Cell {
	if mc.nav == nil {
		return nil
	}

	path := mc.nav.PathTo(mc.position, dest)
	if len(path) == 0 {
		mc.ClearPath()
		return nil
	}

	mc.path = path
	mc.pathIndex = 0
	mc.IsFollowingPath = true
	return path
}

// Next advances along the path and returns the step taken. A dash is only
// committed when the landing cell is in sight; otherwise the path is dropped.
// ok is false once the path is finished or abandoned.
func (mc *MovementController) Next() (step Step, ok bool) {
	if !mc.IsFollowingPath || mc.pathIndex >= len(mc.path) {
		mc.IsFollowingPath = false
		return Step{}, false
	}

	next := mc.path[mc.pathIndex]
	if next == mc.position {
		// Route to the current cell.
		mc.pathIndex++
		return mc.Next()
	}

	if !mc.nav.CategoryAt(next).IsDashOnly() {
		step = Step{Kind: StepWalk, From: mc.position, To: next}
		mc.pathIndex++
		mc.position = next
		return step, true
	}

	// Collect the dash-only run and the landing cell after it.
	end := mc.pathIndex
	for end < len(mc.path) && mc.nav.CategoryAt(mc.path[end]).IsDashOnly() {
		end++
	}
	if end >= len(mc.path) {
		mc.log.Warn("route ends inside a dash run", zap.Stringer("from", mc.position))
		mc.ClearPath()
		return Step{}, false
	}
	landing := mc.path[end]

	if !mc.nav.CanSee(mc.position, landing) {
		mc.log.Info("dash landing out of sight, dropping route",
			zap.Stringer("from", mc.position), zap.Stringer("landing", landing))
		mc.ClearPath()
		return Step{}, false
	}

	step = Step{
		Kind: StepDash,
		From: mc.position,
		To:   landing,
		Over: append([]grid.Cell(nil), mc.path[mc.pathIndex:end]...),
	}
	mc.pathIndex = end + 1
	mc.position = landing
	return step, true
}

// ClearPath stops the current path following.
func (mc *MovementController) ClearPath() {
	mc.path = nil
	mc.pathIndex = 0
	mc.IsFollowingPath = false
}

// GetPath returns the current path.
func (mc *MovementController) GetPath() []grid.Cell {
	return mc.path
}

// GetPathIndex returns the current index in the path.
func (mc *MovementController) GetPathIndex() int {
	return mc.pathIndex
}

// Remaining returns the cells still to visit.
func (mc *MovementController) Remaining() []grid.Cell {
	if mc.pathIndex >= len(mc.path) {
		return nil
	}
	return mc.path[mc.pathIndex:]
}
