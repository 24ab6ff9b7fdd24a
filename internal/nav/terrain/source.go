package terrain

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Faultbox/midgard-nav/internal/nav/grid"
	"github.com/Faultbox/midgard-nav/pkg/formats"
)

// StaticSource serves layers set by the host. It is safe for concurrent use.
type StaticSource struct {
	mu     sync.RWMutex
	layers grid.Layers
	err    error
}

// NewStaticSource creates a source serving the given layers.
func NewStaticSource(layers grid.Layers) *StaticSource {
	return &StaticSource{layers: layers}
}

// Set replaces the served layers and clears any injected error.
func (s *StaticSource) Set(layers grid.Layers) {
	s.mu.Lock()
	s.layers = layers
	s.err = nil
	s.mu.Unlock()
}

// Fail makes subsequent Layers calls return err.
func (s *StaticSource) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Layers implements Source.
func (s *StaticSource) Layers() (grid.Layers, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layers, s.err
}

// Text map glyphs.
const (
	GlyphOpen       = '.'
	GlyphImpassable = '#'
	GlyphDash       = '~'
)

// ErrBadGlyph is returned by ParseText for characters outside the map alphabet.
var ErrBadGlyph = errors.New("unknown map glyph")

// ParseText builds layers from a text map, one row per line:
// '.' walkable, '#' impassable, '~' dash-only. Blank lines are ignored.
func ParseText(text string) (grid.Layers, error) {
	var layers grid.Layers
	for y, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		walk := make([]int, len(line))
		target := make([]int, len(line))
		for x, ch := range line {
			switch ch {
			case GlyphOpen:
				walk[x], target[x] = 1, 1
			case GlyphDash:
				target[x] = 1
			case GlyphImpassable:
			default:
				return grid.Layers{}, fmt.Errorf("%w %q at (%d,%d)", ErrBadGlyph, ch, x, y)
			}
		}
		layers.Walkable = append(layers.Walkable, walk)
		layers.Targeting = append(layers.Targeting, target)
	}
	return layers, nil
}

// GATSource serves the layers of a parsed ground altitude table.
type GATSource struct {
	gat *formats.GAT
}

// NewGATSource wraps a parsed GAT.
func NewGATSource(gat *formats.GAT) *GATSource {
	return &GATSource{gat: gat}
}

// Layers implements Source.
func (s *GATSource) Layers() (grid.Layers, error) {
	if s == nil || s.gat == nil {
		return grid.Layers{}, ErrNoSource
	}
	walk, target := s.gat.Layers()
	return grid.Layers{Walkable: walk, Targeting: target}, nil
}
