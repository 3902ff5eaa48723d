package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/lazytree"
	"github.com/vanderheijden86/lazytree/pkg/metrics"
)

// TreeView draws the rows of an engine through a Window and reports the
// rendered range back to the engine. It does not own tree state: expanding,
// collapsing and checking go through the engine to the owner, which then
// refreshes the engine and calls Sync.
type TreeView struct {
	engine   *lazytree.Engine[*forest.Node]
	window   *Window
	renderer RowRenderer
	theme    Theme

	title  string
	cursor int
	width  int
	height int

	lastRange lazytree.RenderedRange
	reported  bool
}

// NewTreeView creates a view over engine and registers itself as the
// engine's scroller.
func NewTreeView(engine *lazytree.Engine[*forest.Node], theme Theme, indentWidth int) *TreeView {
	opts := engine.Options()
	t := &TreeView{
		engine: engine,
		window: NewWindow(opts.ItemHeight, opts.Overscan),
		renderer: RowRenderer{
			Theme:          theme,
			IndentWidth:    indentWidth,
			HideCheckboxes: opts.HideCheckboxes,
		},
		theme: theme,
	}
	engine.SetScroller(t)
	return t
}

// Engine returns the engine behind the view.
func (t *TreeView) Engine() *lazytree.Engine[*forest.Node] { return t.engine }

// Window returns the windowing state.
func (t *TreeView) Window() *Window { return t.window }

// SetTitle sets the header text.
func (t *TreeView) SetTitle(title string) { t.title = title }

// SetSpinner sets the frame shown on loading and anchor rows.
func (t *TreeView) SetSpinner(frame string) { t.renderer.Spinner = frame }

// SetPlain disables styling, for tests and dumb terminals.
func (t *TreeView) SetPlain(plain bool) { t.renderer.Plain = plain }

// SetSize sets the outer size of the view, header and position line included.
func (t *TreeView) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.renderer.Width = width
	t.layout()
}

// layout sizes the window: one line for the header and one for the position
// indicator when the rows do not fit.
func (t *TreeView) layout() {
	lines := t.height - 1
	if t.height <= 0 {
		lines = defaultWindowLines
	}
	if t.engine.Len()*t.window.ItemHeight() > lines {
		lines--
	}
	t.window.SetHeight(lines)
	t.window.SetRowCount(t.engine.Len())
}

// Sync adopts the engine's current rows, keeps the cursor in range and
// reports the rendered range if it changed.
func (t *TreeView) Sync() {
	t.layout()
	n := t.engine.Len()
	if n == 0 {
		t.cursor = 0
	} else {
		t.cursor = clampInt(t.cursor, 0, n-1)
	}
	t.ReportRange()
}

// ReportRange tells the engine which rows are drawn. It reports true when
// the range differed from the last report.
func (t *TreeView) ReportRange() bool {
	r := t.window.Range()
	if t.reported && r == t.lastRange {
		return false
	}
	t.lastRange = r
	t.reported = true
	t.engine.OnRowsRendered(r)
	return true
}

// ScrollToRow moves the cursor to row i and scrolls it into view.
func (t *TreeView) ScrollToRow(i int) {
	if t.engine.Len() == 0 {
		return
	}
	t.cursor = clampInt(i, 0, t.engine.Len()-1)
	t.window.ScrollToRow(t.cursor)
	t.ReportRange()
}

// Cursor returns the cursor row.
func (t *TreeView) Cursor() int { return t.cursor }

// SelectedRow returns the row under the cursor.
func (t *TreeView) SelectedRow() (lazytree.Row[*forest.Node], bool) {
	return t.engine.Row(t.cursor)
}

// SelectedNode returns the node of the item row under the cursor.
func (t *TreeView) SelectedNode() *forest.Node {
	r, ok := t.SelectedRow()
	if !ok || r.Kind != lazytree.ItemRow {
		return nil
	}
	return r.Node
}

// MoveDown moves the cursor down one row.
func (t *TreeView) MoveDown() { t.ScrollToRow(t.cursor + 1) }

// MoveUp moves the cursor up one row.
func (t *TreeView) MoveUp() { t.ScrollToRow(t.cursor - 1) }

// PageDown moves the cursor down by half a viewport.
func (t *TreeView) PageDown() { t.ScrollToRow(t.cursor + t.halfPage()) }

// PageUp moves the cursor up by half a viewport.
func (t *TreeView) PageUp() { t.ScrollToRow(t.cursor - t.halfPage()) }

func (t *TreeView) halfPage() int {
	n := t.window.VisibleCount() / 2
	if n < 1 {
		n = 1
	}
	return n
}

// JumpToTop moves the cursor to the first row.
func (t *TreeView) JumpToTop() { t.ScrollToRow(0) }

// JumpToBottom moves the cursor to the last row.
func (t *TreeView) JumpToBottom() { t.ScrollToRow(t.engine.Len() - 1) }

// JumpToParent moves the cursor to the parent of the row under the cursor.
// Anchor rows jump to the node whose children they continue.
func (t *TreeView) JumpToParent() bool {
	r, ok := t.SelectedRow()
	if !ok {
		return false
	}
	var target *forest.Node
	switch r.Kind {
	case lazytree.ItemRow:
		target = r.Node.Parent()
	case lazytree.AnchorRow:
		target = r.Node
	case lazytree.LoadingRow:
		for i := t.cursor - 1; i >= 0; i-- {
			if prev, _ := t.engine.Row(i); prev.Kind == lazytree.ItemRow && prev.Depth < r.Depth {
				t.ScrollToRow(i)
				return true
			}
		}
		return false
	}
	if target == nil {
		return false
	}
	i, ok := t.engine.Entries().IndexOf(target)
	if !ok {
		return false
	}
	t.ScrollToRow(i)
	return true
}

// Toggle flips the expansion of the item row under the cursor.
func (t *TreeView) Toggle() bool {
	r, ok := t.SelectedRow()
	if !ok || r.Kind != lazytree.ItemRow || t.engine.IsLeaf(r.Node) {
		return false
	}
	return t.engine.ToggleRow(t.cursor)
}

// ExpandOrMoveToChild expands a collapsed node, or moves to the first child
// of an expanded one.
func (t *TreeView) ExpandOrMoveToChild() bool {
	r, ok := t.SelectedRow()
	if !ok || r.Kind != lazytree.ItemRow || t.engine.IsLeaf(r.Node) {
		return false
	}
	if !r.Expanded {
		return t.engine.ToggleRow(t.cursor)
	}
	if next, ok := t.engine.Row(t.cursor + 1); ok && next.Depth > r.Depth {
		t.ScrollToRow(t.cursor + 1)
		return true
	}
	return false
}

// CollapseOrJumpToParent collapses an expanded node, or jumps to the parent.
func (t *TreeView) CollapseOrJumpToParent() bool {
	r, ok := t.SelectedRow()
	if ok && r.Kind == lazytree.ItemRow && r.Expanded && !t.engine.IsLeaf(r.Node) {
		return t.engine.ToggleRow(t.cursor)
	}
	return t.JumpToParent()
}

// ToggleCheck clicks the checkbox of the row under the cursor.
func (t *TreeView) ToggleCheck() bool {
	return t.engine.ToggleCheckRow(t.cursor)
}

// View renders the header, the visible rows and the position indicator.
func (t *TreeView) View() string {
	defer metrics.Timer(metrics.UIRender)()
	var sb strings.Builder
	sb.WriteString(t.renderHeader())
	sb.WriteString("\n")

	if t.engine.Len() == 0 {
		sb.WriteString(t.renderer.RenderEmpty())
		return sb.String()
	}

	start, end := t.window.Visible()
	for i := start; i < end; i++ {
		row, _ := t.engine.Row(i)
		st := RowState{Selected: i == t.cursor}
		if row.Kind == lazytree.ItemRow {
			st.Leaf = t.engine.IsLeaf(row.Node)
			st.Check = t.engine.CheckState(row)
		}
		sb.WriteString(t.renderer.Render(row, st))
		sb.WriteString("\n")
		for pad := 1; pad < t.window.ItemHeight(); pad++ {
			sb.WriteString("\n")
		}
	}

	if t.engine.Len() > t.window.VisibleCount() {
		sb.WriteString(t.renderPositionIndicator(start, end))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (t *TreeView) renderHeader() string {
	title := t.title
	if title == "" {
		title = "lt"
	}
	title = " " + title
	if t.width > 0 {
		title = runewidth.Truncate(title, t.width, "…")
	}
	if t.renderer.Plain {
		return title
	}
	style := t.theme.Header
	if t.width > 0 {
		style = style.Width(t.width)
	}
	return style.Render(title)
}

// renderPositionIndicator shows "Page X/Y (start-end of total)" with
// 1-indexed numbers.
func (t *TreeView) renderPositionIndicator(start, end int) string {
	total := t.engine.Len()
	pageSize := t.window.VisibleCount()
	totalPages := (total + pageSize - 1) / pageSize
	currentPage := t.window.Offset()/pageSize + 1
	if currentPage > totalPages {
		currentPage = totalPages
	}
	indicator := fmt.Sprintf(" Page %d/%d (%d-%d of %d)", currentPage, totalPages, start+1, end, total)
	if t.renderer.Plain {
		return indicator
	}
	return t.theme.MutedText.Render(indicator)
}
