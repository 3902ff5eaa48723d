package ui

import "github.com/vanderheijden86/lazytree/pkg/lazytree"

// defaultWindowLines is used before the first WindowSizeMsg arrives.
const defaultWindowLines = 19

// Window is a windowed list over a fixed number of equally tall rows. It
// tracks the first visible row and reports the rendered range, including
// overscan, the way a virtualized list does after drawing.
type Window struct {
	itemHeight int
	overscan   int
	lines      int
	rows       int
	offset     int
}

// NewWindow creates a window. Item heights below lazytree.MinItemHeight are
// raised to it and a negative overscan uses the default.
func NewWindow(itemHeight, overscan int) *Window {
	if itemHeight < lazytree.MinItemHeight {
		itemHeight = lazytree.MinItemHeight
	}
	if overscan < 0 {
		overscan = lazytree.DefaultOverscanRowCount
	}
	return &Window{itemHeight: itemHeight, overscan: overscan, lines: defaultWindowLines}
}

// ItemHeight returns the height of one row in lines.
func (w *Window) ItemHeight() int { return w.itemHeight }

// Overscan returns the number of rows rendered beyond each viewport edge.
func (w *Window) Overscan() int { return w.overscan }

// Offset returns the index of the first visible row.
func (w *Window) Offset() int { return w.offset }

// RowCount returns the number of rows in the list.
func (w *Window) RowCount() int { return w.rows }

// SetHeight sets the number of lines available for rows.
func (w *Window) SetHeight(lines int) {
	if lines < 1 {
		lines = 1
	}
	w.lines = lines
	w.clamp()
}

// Lines returns the number of lines available for rows.
func (w *Window) Lines() int { return w.lines }

// SetRowCount updates the list length and keeps the offset in range.
func (w *Window) SetRowCount(n int) {
	if n < 0 {
		n = 0
	}
	w.rows = n
	w.clamp()
}

// VisibleCount returns how many rows fit in the viewport, at least one.
func (w *Window) VisibleCount() int {
	n := w.lines / w.itemHeight
	if n < 1 {
		n = 1
	}
	return n
}

// ScrollToRow scrolls just enough to make row i visible.
func (w *Window) ScrollToRow(i int) {
	if w.rows == 0 {
		return
	}
	i = clampInt(i, 0, w.rows-1)
	visible := w.VisibleCount()
	if i < w.offset {
		w.offset = i
	}
	if i >= w.offset+visible {
		w.offset = i - visible + 1
	}
	w.clamp()
}

// ScrollBy moves the offset by delta rows.
func (w *Window) ScrollBy(delta int) {
	w.offset += delta
	w.clamp()
}

// Visible returns the half-open range [start, end) of rows on screen.
func (w *Window) Visible() (start, end int) {
	if w.rows == 0 {
		return 0, 0
	}
	start = w.offset
	end = min(w.rows, start+w.VisibleCount())
	return start, end
}

// Range returns the rendered range with inclusive bounds. An empty list
// reports Stop and OverscanStop of -1.
func (w *Window) Range() lazytree.RenderedRange {
	start, end := w.Visible()
	stop := end - 1
	return lazytree.RenderedRange{
		Start:         start,
		Stop:          stop,
		OverscanStart: max(0, start-w.overscan),
		OverscanStop:  min(w.rows-1, stop+w.overscan),
	}
}

func (w *Window) clamp() {
	maxOffset := w.rows - w.VisibleCount()
	if maxOffset < 0 {
		maxOffset = 0
	}
	w.offset = clampInt(w.offset, 0, maxOffset)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
