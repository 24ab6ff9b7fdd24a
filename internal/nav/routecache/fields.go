package routecache

import (
	"time"

	"golang.org/x/sync/syncmap"

	"github.com/Faultbox/midgard-nav/internal/nav/grid"
)

// NoDirection marks a cell with no known step toward the destination.
const NoDirection int8 = 0

// DirectionField holds, for every cell, either NoDirection or index+1 into
// grid.Offsets for the next step toward Destination.
type DirectionField struct {
	Destination grid.Cell
	Width       int
	Height      int
	Steps       []int8
	Created     time.Time
}

// NewDirectionField allocates an empty field.
func NewDirectionField(dest grid.Cell, width, height int) *DirectionField {
	return &DirectionField{
		Destination: dest,
		Width:       width,
		Height:      height,
		Steps:       make([]int8, width*height),
	}
}

// Step returns the stored direction at c, NoDirection when out of bounds.
func (f *DirectionField) Step(c grid.Cell) int8 {
	if c.X < 0 || c.Y < 0 || c.X >= f.Width || c.Y >= f.Height {
		return NoDirection
	}
	return f.Steps[c.Y*f.Width+c.X]
}

// Set stores offset index i (0..7) for c.
func (f *DirectionField) Set(c grid.Cell, i int) {
	f.Steps[c.Y*f.Width+c.X] = int8(i + 1)
}

// DistanceField maps flat cell indices to the minimal cost of reaching
// Destination. Cells absent from Costs are unreachable.
type DistanceField struct {
	Destination grid.Cell
	Width       int
	Height      int
	Costs       map[int]float32
	Created     time.Time
}

// Cost returns the stored cost at c and whether it is finite.
func (f *DistanceField) Cost(c grid.Cell) (float32, bool) {
	if c.X < 0 || c.Y < 0 || c.X >= f.Width || c.Y >= f.Height {
		return 0, false
	}
	d, ok := f.Costs[c.Y*f.Width+c.X]
	return d, ok
}

// FieldStore keeps at most one field representation per destination.
type FieldStore struct {
	ttl func() time.Duration
	now func() time.Time

	directions syncmap.Map // grid.Cell -> *DirectionField
	distances  syncmap.Map // grid.Cell -> *DistanceField
}

// NewFieldStore creates an empty store. ttl is read on every lookup.
func NewFieldStore(ttl func() time.Duration, opts ...Option) *FieldStore {
	o := buildOptions(opts)
	return &FieldStore{ttl: ttl, now: o.now}
}

// DirectionField returns the live direction field for dest.
func (s *FieldStore) DirectionField(dest grid.Cell) (*DirectionField, bool) {
	v, ok := s.directions.Load(dest)
	if !ok {
		return nil, false
	}
	f := v.(*DirectionField)
	if s.now().Sub(f.Created) > s.ttl() {
		s.directions.CompareAndDelete(dest, f)
		return nil, false
	}
	return f, true
}

// PutDirectionField stores f and drops any distance field for the same
// destination. Expired fields are purged first.
func (s *FieldStore) PutDirectionField(f *DirectionField) {
	now := s.now()
	s.purgeExpired(now)
	if f.Created.IsZero() {
		f.Created = now
	}
	s.directions.Store(f.Destination, f)
	s.distances.Delete(f.Destination)
}

// DistanceField returns the live distance field for dest.
func (s *FieldStore) DistanceField(dest grid.Cell) (*DistanceField, bool) {
	v, ok := s.distances.Load(dest)
	if !ok {
		return nil, false
	}
	f := v.(*DistanceField)
	if s.now().Sub(f.Created) > s.ttl() {
		s.distances.CompareAndDelete(dest, f)
		return nil, false
	}
	return f, true
}

// PutDistanceField stores f. Expired fields are purged first.
func (s *FieldStore) PutDistanceField(f *DistanceField) {
	now := s.now()
	s.purgeExpired(now)
	if f.Created.IsZero() {
		f.Created = now
	}
	s.distances.Store(f.Destination, f)
}

func (s *FieldStore) purgeExpired(now time.Time) {
	ttl := s.ttl()
	s.directions.Range(func(k, v any) bool {
		if f := v.(*DirectionField); now.Sub(f.Created) > ttl {
			s.directions.CompareAndDelete(k, f)
		}
		return true
	})
	s.distances.Range(func(k, v any) bool {
		if f := v.(*DistanceField); now.Sub(f.Created) > ttl {
			s.distances.CompareAndDelete(k, f)
		}
		return true
	})
}

// Counts returns the number of stored direction and distance fields.
func (s *FieldStore) Counts() (directions, distances int) {
	s.directions.Range(func(_, _ any) bool {
		directions++
		return true
	})
	s.distances.Range(func(_, _ any) bool {
		distances++
		return true
	})
	return directions, distances
}

// Clear drops every field.
func (s *FieldStore) Clear() {
	s.directions.Range(func(k, _ any) bool {
		s.directions.Delete(k)
		return true
	})
	s.distances.Range(func(k, _ any) bool {
		s.distances.Delete(k)
		return true
	})
}
