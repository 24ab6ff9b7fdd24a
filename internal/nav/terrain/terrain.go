// Package terrain owns the fused passability grid the navigation core reads.
package terrain

import (
	"errors"
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-nav/internal/logger"
	"github.com/Faultbox/midgard-nav/internal/nav/grid"
)

// Terrain errors. All of them wrap ErrDataUnavailable.
var (
	ErrDataUnavailable = errors.New("terrain data unavailable")
	ErrNoSource        = fmt.Errorf("%w: no source", ErrDataUnavailable)
	ErrEmptyLayers     = fmt.Errorf("%w: empty layers", ErrDataUnavailable)
	ErrLayerMismatch   = fmt.Errorf("%w: malformed layers", ErrDataUnavailable)
)

// Source delivers the raw terrain layers for the current area.
type Source interface {
	Layers() (grid.Layers, error)
}

// Snapshot is an immutable fused grid. It is never modified after publication.
type Snapshot struct {
	Width  int
	Height int
	cells  []grid.Category
}

// InBounds returns true if c lies inside the snapshot.
func (s *Snapshot) InBounds(c grid.Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < s.Width && c.Y < s.Height
}

// At returns the category at c, or Unknown when out of bounds.
func (s *Snapshot) At(c grid.Cell) grid.Category {
	if s == nil || !s.InBounds(c) {
		return grid.Unknown
	}
	return s.cells[c.Y*s.Width+c.X]
}

// Index returns the row-major index of c. c must be in bounds.
func (s *Snapshot) Index(c grid.Cell) int {
	return c.Y*s.Width + c.X
}

// CellAt converts a row-major index back into a cell.
func (s *Snapshot) CellAt(idx int) grid.Cell {
	return grid.Cell{X: idx % s.Width, Y: idx / s.Width}
}

// Len returns the number of cells.
func (s *Snapshot) Len() int {
	return len(s.cells)
}

// NewSnapshot fuses layers into a snapshot.
func NewSnapshot(layers grid.Layers, threshold int) (*Snapshot, error) {
	cells, w, h, err := grid.FuseLayers(layers, threshold)
	if err != nil {
		if errors.Is(err, grid.ErrEmptyLayer) {
			return nil, fmt.Errorf("%w: %w", ErrEmptyLayers, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrLayerMismatch, err)
	}
	return &Snapshot{Width: w, Height: h, cells: cells}, nil
}

// Model holds the latest fused snapshot. Readers see either the previous or
// the new snapshot, never a partially built one.
type Model struct {
	source    Source
	threshold func() int
	log       *zap.Logger

	mu   deadlock.RWMutex
	snap *Snapshot
}

// NewModel creates a terrain model. threshold is read on every refresh so the
// host can change it between refreshes.
func NewModel(source Source, threshold func() int) *Model {
	if threshold == nil {
		threshold = func() int { return 1 }
	}
	return &Model{
		source:    source,
		threshold: threshold,
		log:       logger.Named("terrain"),
	}
}

// Refresh pulls the raw layers and replaces the fused grid. On any failure the
// model is cleared and the error describes why.
func (m *Model) Refresh() (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.Clear()
			err = fmt.Errorf("%w: refresh panicked: %v", ErrDataUnavailable, r)
			m.log.Error("terrain refresh panicked", zap.Any("panic", r))
		}
	}()

	if m.source == nil {
		m.Clear()
		return ErrNoSource
	}

	layers, err := m.source.Layers()
	if err != nil {
		m.Clear()
		m.log.Debug("terrain source unavailable", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	// Build outside the lock; only the pointer swap is guarded.
	snap, err := NewSnapshot(layers, m.threshold())
	if err != nil {
		m.Clear()
		m.log.Debug("terrain layers rejected", zap.Error(err))
		return err
	}

	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()

	m.log.Debug("terrain refreshed", zap.Int("width", snap.Width), zap.Int("height", snap.Height))
	return nil
}

// Snapshot returns the current snapshot, or nil when nothing is loaded.
func (m *Model) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// CategoryAt returns the fused category at c. It never panics.
func (m *Model) CategoryAt(c grid.Cell) (cat grid.Category) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("category lookup panicked", zap.Stringer("cell", c), zap.Any("panic", r))
			cat = grid.Unknown
		}
	}()
	return m.Snapshot().At(c)
}

// IsLoaded returns true if a fused grid is available.
func (m *Model) IsLoaded() bool {
	return m.Snapshot() != nil
}

// Size returns the grid dimensions, or zeros when unloaded.
func (m *Model) Size() (width, height int) {
	snap := m.Snapshot()
	if snap == nil {
		return 0, 0
	}
	return snap.Width, snap.Height
}

// Clear drops the grid.
func (m *Model) Clear() {
	m.mu.Lock()
	m.snap = nil
	m.mu.Unlock()
}
