// Package grid defines the cell, category and neighborhood types shared by the
// navigation packages.
package grid

import "fmt"

// Cell is a discrete grid coordinate.
type Cell struct {
	X, Y int
}

// String returns the cell as "(x,y)".
func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Add returns the cell shifted by offset o.
func (c Cell) Add(o Offset) Cell {
	return Cell{X: c.X + o.DX, Y: c.Y + o.DY}
}

// Chebyshev returns the king-move distance between two cells.
func (c Cell) Chebyshev(o Cell) int {
	dx := abs(o.X - c.X)
	dy := abs(o.Y - c.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// IsAdjacent reports whether o is one of the 8 neighbors of c.
func (c Cell) IsAdjacent(o Cell) bool {
	return c != o && c.Chebyshev(o) == 1
}

// Offset is a single step in the 8-connected neighborhood.
type Offset struct {
	DX, DY int
}

// IsDiagonal returns true if the step moves along both axes.
func (o Offset) IsDiagonal() bool {
	return o.DX != 0 && o.DY != 0
}

// Offsets is the fixed 8-neighbor table. Direction fields store index+1 into
// this table so that 0 can mean "no path".
// Order: S, SW, W, NW, N, NE, E, SE.
var Offsets = [8]Offset{
	{0, 1},
	{-1, 1},
	{-1, 0},
	{-1, -1},
	{0, -1},
	{1, -1},
	{1, 0},
	{1, 1},
}

// OffsetIndex returns the index of o in Offsets, or -1.
func OffsetIndex(o Offset) int {
	for i, off := range Offsets {
		if off == o {
			return i
		}
	}
	return -1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
