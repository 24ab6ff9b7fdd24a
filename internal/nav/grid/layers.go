package grid

import "errors"

// Layer errors.
var (
	ErrEmptyLayer    = errors.New("layer is empty")
	ErrRaggedLayer   = errors.New("layer rows have different lengths")
	ErrLayerMismatch = errors.New("layer dimensions do not match")
)

// Layers holds the two raw terrain layers as delivered by the host.
// Both are indexed [y][x].
type Layers struct {
	Walkable  [][]int
	Targeting [][]int
}

// Dimensions validates the layers and returns their shared width and height.
func (l Layers) Dimensions() (width, height int, err error) {
	ww, wh, err := layerSize(l.Walkable)
	if err != nil {
		return 0, 0, err
	}
	tw, th, err := layerSize(l.Targeting)
	if err != nil {
		return 0, 0, err
	}
	if ww != tw || wh != th {
		return 0, 0, ErrLayerMismatch
	}
	return ww, wh, nil
}

func layerSize(layer [][]int) (int, int, error) {
	if len(layer) == 0 || len(layer[0]) == 0 {
		return 0, 0, ErrEmptyLayer
	}
	width := len(layer[0])
	for _, row := range layer[1:] {
		if len(row) != width {
			return 0, 0, ErrRaggedLayer
		}
	}
	return width, len(layer), nil
}

// Fuse combines one walkability value and one targeting value into a category.
func Fuse(walkable, targeting, threshold int) Category {
	if targeting < threshold {
		return Impassable
	}
	if walkable != 0 {
		return OpenWalkable
	}
	return DashOnly
}

// FuseLayers builds a row-major category grid from validated layers.
func FuseLayers(l Layers, threshold int) (cells []Category, width, height int, err error) {
	width, height, err = l.Dimensions()
	if err != nil {
		return nil, 0, 0, err
	}
	cells = make([]Category, width*height)
	for y := 0; y < height; y++ {
		walkRow := l.Walkable[y]
		targetRow := l.Targeting[y]
		for x := 0; x < width; x++ {
			cells[y*width+x] = Fuse(walkRow[x], targetRow[x], threshold)
		}
	}
	return cells, width, height, nil
}
