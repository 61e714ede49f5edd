package screen

import (
	"testing"

	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/nav"
)

func TestListClampsAtBothEnds(t *testing.T) {
	l := NewList()
	l.SetItemCount(3)

	if l.NavigatePrev() {
		t.Error("NavigatePrev at the top should clamp")
	}
	if !l.NavigateNext() || !l.NavigateNext() {
		t.Fatal("NavigateNext should reach the last row")
	}
	if l.NavigateNext() {
		t.Error("NavigateNext at the bottom should clamp")
	}
	if got := l.SelectedIndex(); got != 2 {
		t.Errorf("SelectedIndex() = %d, want 2", got)
	}
}

func TestListEmptyNeverMoves(t *testing.T) {
	l := NewList()

	if l.NavigateNext() || l.NavigatePrev() {
		t.Error("an empty list has nowhere to move")
	}
	l.SelectIndex(5)
	if got := l.SelectedIndex(); got != 0 {
		t.Errorf("SelectedIndex() on empty list = %d, want 0", got)
	}
}

func TestListScrollsToKeepSelectionVisible(t *testing.T) {
	l := NewList()
	l.SetItemCount(10)
	l.SetLayout(geom.NewRect(0, 48, 800, 384), 96)

	if got := l.VisibleRows(); got != 4 {
		t.Fatalf("VisibleRows() = %d, want 4", got)
	}

	for i := 0; i < 5; i++ {
		l.NavigateNext()
	}
	if got := l.SelectedIndex(); got != 5 {
		t.Fatalf("SelectedIndex() = %d, want 5", got)
	}
	if got := l.Offset(); got != 2 {
		t.Errorf("Offset() = %d, want 2 after scrolling down", got)
	}

	for i := 0; i < 5; i++ {
		l.NavigatePrev()
	}
	if got := l.Offset(); got != 0 {
		t.Errorf("Offset() = %d, want 0 after scrolling back", got)
	}
}

func TestListSelectionRects(t *testing.T) {
	l := NewList()
	l.SetItemCount(10)
	l.SetLayout(geom.NewRect(0, 48, 800, 384), 96)

	l.NavigateNext()

	if got, want := l.SelectionRect(), geom.NewRect(0, 144, 800, 96); got != want {
		t.Errorf("SelectionRect() = %+v, want %+v", got, want)
	}
	if got, want := l.PreviousSelectionRect(), geom.NewRect(0, 48, 800, 96); got != want {
		t.Errorf("PreviousSelectionRect() = %+v, want %+v", got, want)
	}
}

func TestListPreviousRectEmptyAfterScrollOut(t *testing.T) {
	l := NewList()
	l.SetItemCount(10)
	l.SetLayout(geom.NewRect(0, 48, 800, 384), 96)

	l.SelectIndex(0)
	l.SelectIndex(7)

	if got := l.PreviousSelectionRect(); !got.IsEmpty() {
		t.Errorf("PreviousSelectionRect() = %+v, want empty for a row scrolled out", got)
	}
}

func TestListShrinkClampsSelection(t *testing.T) {
	l := NewList()
	l.SetItemCount(10)
	l.SelectIndex(9)

	l.SetItemCount(4)
	if got := l.SelectedIndex(); got != 3 {
		t.Errorf("SelectedIndex() after shrink = %d, want 3", got)
	}
}

func TestListHandleNavMapping(t *testing.T) {
	l := NewList()
	l.SetItemCount(5)

	if !l.HandleNav(nav.SelectDown) {
		t.Error("SelectDown should move")
	}
	if !l.HandleNav(nav.SelectNext) {
		t.Error("SelectNext should move")
	}
	if !l.HandleNav(nav.SelectUp) {
		t.Error("SelectUp should move")
	}
	if l.HandleNav(nav.SelectLeft) {
		t.Error("horizontal events are not list movement")
	}
	if got := l.SelectedIndex(); got != 1 {
		t.Errorf("SelectedIndex() = %d, want 1", got)
	}
}
