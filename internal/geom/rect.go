// Package geom provides integer rectangle primitives for display refresh regions.
package geom

// Rect is an axis-aligned integer rectangle in panel coordinates.
// A Rect with non-positive width or height is empty; empty rects are
// absorbed by Union and propagate through Intersection.
type Rect struct {
	X, Y, W, H int
}

// NewRect returns a rectangle at (x, y) with the given size.
func NewRect(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.W <= 0 || r.H <= 0
}

// Right returns the exclusive right edge.
func (r Rect) Right() int {
	return r.X + r.W
}

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int {
	return r.Y + r.H
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	if r.IsEmpty() {
		return false
	}
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Intersects reports whether the two rectangles overlap.
func (r Rect) Intersects(o Rect) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Intersection returns the overlapping region of the two rectangles,
// or the zero Rect when they do not overlap.
func (r Rect) Intersection(o Rect) Rect {
	if !r.Intersects(o) {
		return Rect{}
	}
	x := max(r.X, o.X)
	y := max(r.Y, o.Y)
	return Rect{
		X: x,
		Y: y,
		W: min(r.Right(), o.Right()) - x,
		H: min(r.Bottom(), o.Bottom()) - y,
	}
}

// Union returns the smallest rectangle containing both inputs.
// An empty input is absorbed: the other rectangle is returned unchanged.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	x := min(r.X, o.X)
	y := min(r.Y, o.Y)
	return Rect{
		X: x,
		Y: y,
		W: max(r.Right(), o.Right()) - x,
		H: max(r.Bottom(), o.Bottom()) - y,
	}
}

// Inset shrinks the rectangle by n on every side. Shrinking past the
// center yields an empty Rect.
func (r Rect) Inset(n int) Rect {
	return Rect{X: r.X + n, Y: r.Y + n, W: r.W - 2*n, H: r.H - 2*n}
}

// Expand grows the rectangle by n on every side.
func (r Rect) Expand(n int) Rect {
	return r.Inset(-n)
}

// Clamp clips the rectangle to the panel bounds [0, maxW) x [0, maxH).
// Used to keep refresh windows on the panel after padding expansion.
func (r Rect) Clamp(maxW, maxH int) Rect {
	return r.Intersection(Rect{W: maxW, H: maxH})
}
