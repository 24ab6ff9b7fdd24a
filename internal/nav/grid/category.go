package grid

import "fmt"

// Category is the fused passability class of a cell.
type Category int8

// Category values. The numeric values are compared against the collision
// threshold by line-of-sight checks, so their order is significant.
const (
	Unknown      Category = -1 // Out of bounds or no terrain data
	Impassable   Category = 0  // Blocks movement and visibility
	WalkableLow  Category = 1  // Walkable, standard cost
	DashOnly     Category = 2  // Crossable only by a dash
	Reserved3    Category = 3  // Reserved
	Reserved4    Category = 4  // Reserved
	OpenWalkable Category = 5  // Walkable and always visible
)

// String returns a human-readable category name.
func (c Category) String() string {
	switch c {
	case Unknown:
		return "Unknown"
	case Impassable:
		return "Impassable"
	case WalkableLow:
		return "WalkableLow"
	case DashOnly:
		return "DashOnly"
	case Reserved3:
		return "Reserved3"
	case Reserved4:
		return "Reserved4"
	case OpenWalkable:
		return "OpenWalkable"
	default:
		return fmt.Sprintf("Category(%d)", int8(c))
	}
}

// IsWalkable returns true for categories normal movement can enter.
// Reserved categories are not walkable.
func (c Category) IsWalkable() bool {
	return c == WalkableLow || c == OpenWalkable
}

// IsDashOnly returns true if the cell can only be crossed by a dash.
func (c Category) IsDashOnly() bool {
	return c == DashOnly
}

// Passable reports whether a route may contain a cell of this category.
func (c Category) Passable(dashEnabled bool) bool {
	return c.IsWalkable() || (dashEnabled && c == DashOnly)
}
