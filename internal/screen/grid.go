package screen

import (
	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/nav"
)

// Grid is the 2-D selection base: a cols x rows cell layout holding
// itemCount logical items, which may leave the last row ragged.
// Movement clamps at the edges and at the last item; it never wraps.
type Grid struct {
	Base

	cols, rows int
	itemCount  int

	col, row   int
	prevCol    int
	prevRow    int

	area         geom.Rect
	cellW, cellH int
	gapX, gapY   int
}

// NewGrid returns a grid with the given cell dimensions and no items.
func NewGrid(cols, rows int) Grid {
	return Grid{cols: cols, rows: rows}
}

// SetLayout positions the cells inside area for selection-rect
// reporting. Without a layout the selection rects are empty.
func (g *Grid) SetLayout(area geom.Rect, cellW, cellH, gapX, gapY int) {
	g.area = area
	g.cellW, g.cellH = cellW, cellH
	g.gapX, g.gapY = gapX, gapY
}

// SetItemCount updates the logical item count, clamping the selection
// back onto the last item when the count shrinks under it.
func (g *Grid) SetItemCount(n int) {
	if n < 0 {
		n = 0
	}
	g.itemCount = n
	if n == 0 {
		g.col, g.row = 0, 0
		g.prevCol, g.prevRow = 0, 0
		return
	}
	if g.SelectedIndex() >= n {
		g.SelectIndex(n - 1)
	}
}

// ItemCount returns the logical item count.
func (g *Grid) ItemCount() int {
	return g.itemCount
}

// Selection returns the selected cell position.
func (g *Grid) Selection() (col, row int) {
	return g.col, g.row
}

// SelectedIndex returns the selected item's logical index.
func (g *Grid) SelectedIndex() int {
	return g.row*g.cols + g.col
}

// SelectIndex moves the selection to the given logical index,
// clamping into the valid range.
func (g *Grid) SelectIndex(i int) {
	if g.itemCount == 0 || g.cols == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= g.itemCount {
		i = g.itemCount - 1
	}
	g.setSelection(i%g.cols, i/g.cols)
}

// NavigateLeft moves one column left. Returns false at the edge.
func (g *Grid) NavigateLeft() bool {
	if g.col == 0 {
		return false
	}
	g.setSelection(g.col-1, g.row)
	return true
}

// NavigateRight moves one column right. Returns false at the grid
// edge or when the next cell is past the last item.
func (g *Grid) NavigateRight() bool {
	if g.col+1 >= g.cols {
		return false
	}
	if g.indexAt(g.col+1, g.row) >= g.itemCount {
		return false
	}
	g.setSelection(g.col+1, g.row)
	return true
}

// NavigateUp moves one row up. Returns false at the edge.
func (g *Grid) NavigateUp() bool {
	if g.row == 0 {
		return false
	}
	g.setSelection(g.col, g.row-1)
	return true
}

// NavigateDown moves one row down. Returns false at the grid edge or
// when the cell below is past the last item.
func (g *Grid) NavigateDown() bool {
	if g.row+1 >= g.rows {
		return false
	}
	if g.indexAt(g.col, g.row+1) >= g.itemCount {
		return false
	}
	g.setSelection(g.col, g.row+1)
	return true
}

// HandleNav maps the directional events onto grid movement. The
// coarse prev/next events step by row so trigger scrolling works on
// grids too.
func (g *Grid) HandleNav(ev nav.NavEvent) bool {
	switch ev {
	case nav.SelectLeft:
		return g.NavigateLeft()
	case nav.SelectRight:
		return g.NavigateRight()
	case nav.SelectUp, nav.SelectPrev:
		return g.NavigateUp()
	case nav.SelectDown, nav.SelectNext:
		return g.NavigateDown()
	}
	return false
}

// SelectionRect returns the selected cell's rectangle in the layout.
func (g *Grid) SelectionRect() geom.Rect {
	return g.cellRect(g.col, g.row)
}

// PreviousSelectionRect returns the previously selected cell's
// rectangle.
func (g *Grid) PreviousSelectionRect() geom.Rect {
	return g.cellRect(g.prevCol, g.prevRow)
}

// CellRect returns the rectangle of the cell holding logical index i.
func (g *Grid) CellRect(i int) geom.Rect {
	if g.cols == 0 {
		return geom.Rect{}
	}
	return g.cellRect(i%g.cols, i/g.cols)
}

func (g *Grid) setSelection(col, row int) {
	g.prevCol, g.prevRow = g.col, g.row
	g.col, g.row = col, row
	g.MarkDirty()
}

func (g *Grid) indexAt(col, row int) int {
	return row*g.cols + col
}

func (g *Grid) cellRect(col, row int) geom.Rect {
	if g.cellW <= 0 || g.cellH <= 0 {
		return geom.Rect{}
	}
	return geom.NewRect(
		g.area.X+col*(g.cellW+g.gapX),
		g.area.Y+row*(g.cellH+g.gapY),
		g.cellW,
		g.cellH,
	)
}
