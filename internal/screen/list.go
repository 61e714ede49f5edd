package screen

import (
	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/nav"
)

// List is the 1-D selection base for vertically stacked rows.
// Movement clamps at both ends; the visible window scrolls to keep
// the selection on screen.
type List struct {
	Base

	itemCount int
	index     int
	prev      int
	offset    int

	area geom.Rect
	rowH int
}

// NewList returns an empty list.
func NewList() List {
	return List{}
}

// SetLayout positions the rows inside area for selection-rect
// reporting and scrolling. Without a layout the selection rects are
// empty and the list does not scroll.
func (l *List) SetLayout(area geom.Rect, rowH int) {
	l.area = area
	l.rowH = rowH
	l.ensureVisible()
}

// SetItemCount updates the item count, clamping the selection when it
// shrinks under the current index.
func (l *List) SetItemCount(n int) {
	if n < 0 {
		n = 0
	}
	l.itemCount = n
	if n == 0 {
		l.index, l.prev, l.offset = 0, 0, 0
		return
	}
	if l.index >= n {
		l.SelectIndex(n - 1)
	}
}

// ItemCount returns the item count.
func (l *List) ItemCount() int {
	return l.itemCount
}

// SelectedIndex returns the selected row index.
func (l *List) SelectedIndex() int {
	return l.index
}

// SelectIndex moves the selection to i, clamped into range.
func (l *List) SelectIndex(i int) {
	if l.itemCount == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= l.itemCount {
		i = l.itemCount - 1
	}
	l.setSelection(i)
}

// NavigatePrev moves the selection up one row. Returns false at the
// top.
func (l *List) NavigatePrev() bool {
	if l.index == 0 {
		return false
	}
	l.setSelection(l.index - 1)
	return true
}

// NavigateNext moves the selection down one row. Returns false at the
// bottom.
func (l *List) NavigateNext() bool {
	if l.index+1 >= l.itemCount {
		return false
	}
	l.setSelection(l.index + 1)
	return true
}

// HandleNav maps vertical and coarse events onto list movement.
// Horizontal events are not list movement and report false.
func (l *List) HandleNav(ev nav.NavEvent) bool {
	switch ev {
	case nav.SelectUp, nav.SelectPrev:
		return l.NavigatePrev()
	case nav.SelectDown, nav.SelectNext:
		return l.NavigateNext()
	}
	return false
}

// VisibleRows returns how many rows fit in the layout area.
func (l *List) VisibleRows() int {
	if l.rowH <= 0 {
		return 0
	}
	return l.area.H / l.rowH
}

// Offset returns the index of the first visible row.
func (l *List) Offset() int {
	return l.offset
}

// SelectionRect returns the selected row's rectangle.
func (l *List) SelectionRect() geom.Rect {
	return l.rowRect(l.index)
}

// PreviousSelectionRect returns the previously selected row's
// rectangle, or the empty rect when that row scrolled out of view.
func (l *List) PreviousSelectionRect() geom.Rect {
	return l.rowRect(l.prev)
}

// RowRect returns the on-panel rectangle of row i, or the empty rect
// when the row is scrolled out of view.
func (l *List) RowRect(i int) geom.Rect {
	return l.rowRect(i)
}

func (l *List) setSelection(i int) {
	l.prev = l.index
	l.index = i
	l.ensureVisible()
	l.MarkDirty()
}

func (l *List) ensureVisible() {
	visible := l.VisibleRows()
	if visible <= 0 {
		return
	}
	if l.index < l.offset {
		l.offset = l.index
	}
	if l.index >= l.offset+visible {
		l.offset = l.index - visible + 1
	}
}

func (l *List) rowRect(i int) geom.Rect {
	visible := l.VisibleRows()
	if visible <= 0 || i < l.offset || i >= l.offset+visible {
		return geom.Rect{}
	}
	return geom.NewRect(l.area.X, l.area.Y+(i-l.offset)*l.rowH, l.area.W, l.rowH)
}
