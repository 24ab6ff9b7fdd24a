package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// GAT format errors.
var (
	ErrInvalidGATMagic       = errors.New("invalid GAT magic: expected 'GRAT'")
	ErrUnsupportedGATVersion = errors.New("unsupported GAT version")
	ErrTruncatedGATData      = errors.New("truncated GAT data")
	ErrInvalidGATDimensions  = errors.New("invalid GAT dimensions")
)

const (
	gatMagic      = "GRAT"
	gatHeaderSize = 14
	gatMaxSide    = 4096
)

// GATVersion represents the GAT file version.
type GATVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v GATVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// GATCellType represents the walkability type of a cell.
type GATCellType uint32

// Cell type constants.
const (
	GATWalkable      GATCellType = 0 // Normal walkable ground
	GATBlocked       GATCellType = 1 // Cannot walk through
	GATWater         GATCellType = 2 // Water (walkable with certain skills)
	GATWalkableWater GATCellType = 3 // Shore/shallow water
	GATSnipeable     GATCellType = 4 // Can attack over but not walk (cliffs)
	GATBlockedSnipe  GATCellType = 5 // Blocked but can shoot over
)

// String returns a human-readable cell type name.
func (t GATCellType) String() string {
	switch t {
	case GATWalkable:
		return "Walkable"
	case GATBlocked:
		return "Blocked"
	case GATWater:
		return "Water"
	case GATWalkableWater:
		return "Walkable+Water"
	case GATSnipeable:
		return "Snipeable"
	case GATBlockedSnipe:
		return "Blocked+Snipe"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// IsWalkable returns true if the cell type allows walking.
func (t GATCellType) IsWalkable() bool {
	return t == GATWalkable || t == GATWalkableWater
}

// IsSnipeable returns true if projectiles can pass over the cell.
func (t GATCellType) IsSnipeable() bool {
	return t == GATSnipeable || t == GATBlockedSnipe
}

// GATCell is one cell of the table as stored on disk.
// Heights are the corner altitudes: bottom-left, bottom-right, top-left, top-right.
type GATCell struct {
	Heights [4]float32
	Type    GATCellType
}

// GAT represents a parsed Ground Altitude Table file.
type GAT struct {
	Version GATVersion
	Width   uint32
	Height  uint32
	Cells   []GATCell
}

// GetCell returns the cell at the given coordinates.
// Returns nil if coordinates are out of bounds.
func (g *GAT) GetCell(x, y int) *GATCell {
	if x < 0 || y < 0 || x >= int(g.Width) || y >= int(g.Height) {
		return nil
	}
	return &g.Cells[y*int(g.Width)+x]
}

// IsWalkable checks if the cell at (x, y) is walkable.
func (g *GAT) IsWalkable(x, y int) bool {
	cell := g.GetCell(x, y)
	return cell != nil && cell.Type.IsWalkable()
}

// Layers splits the table into a walkability layer and a targeting layer,
// both indexed [y][x]. Walkable cells are targetable; snipeable cells are
// targetable but not walkable; everything else is neither.
func (g *GAT) Layers() (walkable, targeting [][]int) {
	w, h := int(g.Width), int(g.Height)
	walkable = make([][]int, h)
	targeting = make([][]int, h)
	for y := 0; y < h; y++ {
		walkRow := make([]int, w)
		targetRow := make([]int, w)
		for x := 0; x < w; x++ {
			t := g.Cells[y*w+x].Type
			if t.IsWalkable() {
				walkRow[x] = 1
			}
			if t.IsWalkable() || t.IsSnipeable() {
				targetRow[x] = 1
			}
		}
		walkable[y] = walkRow
		targeting[y] = targetRow
	}
	return walkable, targeting
}

// CountByType returns the count of cells for each type.
func (g *GAT) CountByType() map[GATCellType]int {
	counts := make(map[GATCellType]int)
	for _, cell := range g.Cells {
		counts[cell.Type]++
	}
	return counts
}

// ParseGAT parses a GAT file from raw bytes.
func ParseGAT(data []byte) (*GAT, error) {
	if len(data) < gatHeaderSize {
		return nil, ErrTruncatedGATData
	}
	if string(data[0:4]) != gatMagic {
		return nil, ErrInvalidGATMagic
	}

	// Version is stored as [minor, major]
	version := GATVersion{Major: data[5], Minor: data[4]}
	if version.Major < 1 || version.Major > 3 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGATVersion, version)
	}

	width := binary.LittleEndian.Uint32(data[6:10])
	height := binary.LittleEndian.Uint32(data[10:14])
	if width == 0 || height == 0 || width > gatMaxSide || height > gatMaxSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGATDimensions, width, height)
	}

	cells := make([]GATCell, int(width)*int(height))
	if err := binary.Read(bytes.NewReader(data[gatHeaderSize:]), binary.LittleEndian, cells); err != nil {
		return nil, fmt.Errorf("%w: reading %d cells: %v", ErrTruncatedGATData, len(cells), err)
	}

	return &GAT{
		Version: version,
		Width:   width,
		Height:  height,
		Cells:   cells,
	}, nil
}

// ParseGATFile parses a GAT file from disk.
func ParseGATFile(path string) (*GAT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GAT file: %w", err)
	}
	return ParseGAT(data)
}

// MarshalBinary encodes the table in GAT format.
func (g *GAT) MarshalBinary() ([]byte, error) {
	if int(g.Width)*int(g.Height) != len(g.Cells) {
		return nil, fmt.Errorf("%w: %dx%d with %d cells", ErrInvalidGATDimensions, g.Width, g.Height, len(g.Cells))
	}
	version := g.Version
	if version.Major == 0 {
		version = GATVersion{Major: 1, Minor: 2}
	}

	buf := new(bytes.Buffer)
	buf.Grow(gatHeaderSize + len(g.Cells)*20)
	buf.WriteString(gatMagic)
	buf.WriteByte(version.Minor)
	buf.WriteByte(version.Major)
	if err := binary.Write(buf, binary.LittleEndian, [2]uint32{g.Width, g.Height}); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, g.Cells); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewGATFromLayers builds a flat table from raw layers, the inverse of Layers.
// Walkable cells become GATWalkable, targetable-only cells GATSnipeable and the
// rest GATBlocked.
func NewGATFromLayers(walkable, targeting [][]int) (*GAT, error) {
	h := len(walkable)
	if h == 0 || len(targeting) != h || len(walkable[0]) == 0 {
		return nil, fmt.Errorf("%w: empty or mismatched layers", ErrInvalidGATDimensions)
	}
	w := len(walkable[0])

	g := &GAT{
		Version: GATVersion{Major: 1, Minor: 2},
		Width:   uint32(w),
		Height:  uint32(h),
		Cells:   make([]GATCell, w*h),
	}
	for y := 0; y < h; y++ {
		if len(walkable[y]) != w || len(targeting[y]) != w {
			return nil, fmt.Errorf("%w: row %d", ErrInvalidGATDimensions, y)
		}
		for x := 0; x < w; x++ {
			t := GATBlocked
			switch {
			case walkable[y][x] != 0:
				t = GATWalkable
			case targeting[y][x] != 0:
				t = GATSnipeable
			}
			g.Cells[y*w+x].Type = t
		}
	}
	return g, nil
}
