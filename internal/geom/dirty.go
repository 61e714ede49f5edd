package geom

// DirtyRectAccumulator collects a running bounding box over submitted
// rectangles. A compositor pass uses one to turn many small damaged
// regions into a single refresh window.
type DirtyRectAccumulator struct {
	bounds Rect
	has    bool
}

// Reset returns the accumulator to the empty state.
func (a *DirtyRectAccumulator) Reset() {
	a.bounds = Rect{}
	a.has = false
}

// Add widens the accumulated bounds to include r. Empty rectangles are
// ignored.
func (a *DirtyRectAccumulator) Add(r Rect) {
	if r.IsEmpty() {
		return
	}
	if !a.has {
		a.bounds = r
		a.has = true
		return
	}
	a.bounds = a.bounds.Union(r)
}

// Bounds returns the accumulated bounding box, or the zero Rect when
// nothing has been added since the last Reset.
func (a *DirtyRectAccumulator) Bounds() Rect {
	if !a.has {
		return Rect{}
	}
	return a.bounds
}

// IsEmpty reports whether anything has been accumulated.
func (a *DirtyRectAccumulator) IsEmpty() bool {
	return !a.has
}
