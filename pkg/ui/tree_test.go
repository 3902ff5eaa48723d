package ui_test

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/lazytree"
	"github.com/vanderheijden86/lazytree/pkg/metrics"
	"github.com/vanderheijden86/lazytree/pkg/selection"
	"github.com/vanderheijden86/lazytree/pkg/testutil"
	"github.com/vanderheijden86/lazytree/pkg/ui"
)

// staticTree owns the expansion state of a fully loaded forest the way an
// application would, and refreshes the engine after every change.
type staticTree struct {
	tree     *forest.Tree
	expanded map[string]bool
	sel      selection.Selection
	engine   *lazytree.Engine[*forest.Node]
	view     *ui.TreeView
}

func newStaticTree(t *testing.T, outline string, height int) *staticTree {
	t.Helper()
	st := &staticTree{tree: testutil.Outline(outline), expanded: map[string]bool{}}
	st.engine = lazytree.New(st.props(), lazytree.DefaultOptions())
	st.view = ui.NewTreeView(st.engine, ui.TestTheme(), 2)
	st.view.SetPlain(true)
	st.view.SetSize(40, height)
	st.view.Sync()
	return st
}

func (st *staticTree) props() lazytree.Props[*forest.Node] {
	return lazytree.Props[*forest.Node]{
		Forest: st.tree,
		IsLeaf: func(n *forest.Node) (bool, bool) { return n.Leaf, true },
		IsExpanded: func(n *forest.Node) (bool, bool) {
			v, ok := st.expanded[n.Path().String()]
			return v, ok
		},
		OnExpandedOrCollapsed: func(n *forest.Node, expanded bool) {
			st.expanded[n.Path().String()] = expanded
			st.refresh()
		},
		Mode:      selection.MultipleFullSubtrees[*forest.Node]{},
		Selection: st.sel,
		OnSelectionChanged: func(next selection.Selection) {
			st.sel = next
			st.refresh()
		},
	}
}

func (st *staticTree) refresh() {
	st.engine.SetProps(st.props())
	st.view.Sync()
}

func (st *staticTree) selectedKey() string {
	if n := st.view.SelectedNode(); n != nil {
		return n.Key
	}
	return ""
}

const navOutline = `
A
  A1.
  A2
    A2a.
B.
C
  C1.
  C2.
`

func TestTreeViewExpandAndMoveToChild(t *testing.T) {
	st := newStaticTree(t, navOutline, 20)

	if !st.view.ExpandOrMoveToChild() {
		t.Fatal("expected A to expand")
	}
	assertShape(t, st.engine.Rows(), "0:A", "1:A1", "1:A2", "0:B", "0:C")
	if st.selectedKey() != "A" {
		t.Errorf("cursor moved on expand, at %q", st.selectedKey())
	}

	st.view.ExpandOrMoveToChild()
	if st.selectedKey() != "A1" {
		t.Errorf("expected to move to first child, at %q", st.selectedKey())
	}

	// Leaves neither expand nor move.
	if st.view.ExpandOrMoveToChild() {
		t.Error("leaf should not expand")
	}
}

func TestTreeViewCollapseOrJumpToParent(t *testing.T) {
	st := newStaticTree(t, navOutline, 20)
	st.view.Toggle()
	st.view.MoveDown()
	st.view.MoveDown() // A2

	st.view.CollapseOrJumpToParent()
	if st.selectedKey() != "A" {
		t.Fatalf("expected jump to parent A, at %q", st.selectedKey())
	}
	st.view.CollapseOrJumpToParent()
	assertShape(t, st.engine.Rows(), "0:A", "0:B", "0:C")

	// Top-level nodes have no row to jump to.
	if st.view.CollapseOrJumpToParent() {
		t.Error("collapsed top-level node should not move")
	}
}

func TestTreeViewNavigationBounds(t *testing.T) {
	st := newStaticTree(t, testWideOutline(30), 8)

	st.view.MoveUp()
	if st.view.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0", st.view.Cursor())
	}
	st.view.JumpToBottom()
	if st.view.Cursor() != 29 {
		t.Errorf("cursor = %d, want 29", st.view.Cursor())
	}
	st.view.MoveDown()
	if st.view.Cursor() != 29 {
		t.Errorf("cursor = %d past the end", st.view.Cursor())
	}
	if start, end := st.view.Window().Visible(); end != 30 || start >= end {
		t.Errorf("visible = [%d,%d), want the last rows", start, end)
	}
	st.view.PageUp()
	if st.view.Cursor() >= 29 {
		t.Errorf("PageUp did not move, cursor %d", st.view.Cursor())
	}
	st.view.JumpToTop()
	if st.view.Cursor() != 0 || st.view.Window().Offset() != 0 {
		t.Errorf("cursor %d offset %d after JumpToTop", st.view.Cursor(), st.view.Window().Offset())
	}
	st.view.PageDown()
	if st.view.Cursor() == 0 {
		t.Error("PageDown did not move")
	}
}

func TestTreeViewScrollToPath(t *testing.T) {
	st := newStaticTree(t, navOutline, 20)
	if st.engine.ScrollToPath(forest.KeyPath{"A", "A1"}) {
		t.Fatal("hidden row must not be scrolled to")
	}
	st.view.Toggle()
	if !st.engine.ScrollToPath(forest.KeyPath{"A", "A1"}) {
		t.Fatal("ScrollToPath failed for visible row")
	}
	if st.selectedKey() != "A1" {
		t.Errorf("cursor at %q, want A1", st.selectedKey())
	}
}

func TestTreeViewToggleCheck(t *testing.T) {
	st := newStaticTree(t, navOutline, 20)
	st.view.JumpToBottom()
	if !st.view.ToggleCheck() {
		t.Fatal("ToggleCheck on item row failed")
	}
	if !st.sel.IsTerminal(forest.KeyPath{"C"}) {
		t.Errorf("selection = %v, want C", st.sel.Terminals())
	}
	if !strings.Contains(st.view.View(), "▸ [x] C") {
		t.Errorf("view does not show C checked:\n%s", st.view.View())
	}
}

func TestTreeViewView(t *testing.T) {
	st := newStaticTree(t, navOutline, 20)
	st.view.SetTitle("nav")
	lines := strings.Split(st.view.View(), "\n")
	want := []string{" nav", "▸ [ ] A", "  [ ] B", "▸ [ ] C"}
	if len(lines) != len(want) {
		t.Fatalf("view = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestTreeViewRecordsRenderTiming(t *testing.T) {
	prev := metrics.Enabled()
	metrics.SetEnabled(true)
	t.Cleanup(func() { metrics.SetEnabled(prev) })
	metrics.UIRender.Reset()

	st := newStaticTree(t, navOutline, 20)
	st.view.View()
	st.view.View()
	if got := metrics.UIRender.Count(); got != 2 {
		t.Errorf("ui_render count = %d, want 2", got)
	}
}

func TestTreeViewPositionIndicator(t *testing.T) {
	st := newStaticTree(t, testWideOutline(30), 8)
	view := st.view.View()
	// Header and indicator leave six rows.
	if !strings.Contains(view, "Page 1/5 (1-6 of 30)") {
		t.Errorf("missing position indicator:\n%s", view)
	}
}

func TestTreeViewEmpty(t *testing.T) {
	st := newStaticTree(t, "", 10)
	if !strings.Contains(st.view.View(), "No items") {
		t.Errorf("empty view = %q", st.view.View())
	}
	if st.view.SelectedNode() != nil || st.view.Toggle() || st.view.ToggleCheck() {
		t.Error("empty view must ignore row actions")
	}
}

func TestTreeViewReportsRangeOnce(t *testing.T) {
	st := newStaticTree(t, navOutline, 20)
	if st.view.ReportRange() {
		t.Error("unchanged range reported again")
	}
	st.view.SetSize(40, 2)
	st.view.Sync()
	st.view.JumpToBottom()
	if st.view.ReportRange() {
		t.Error("JumpToBottom should already have reported its range")
	}
}

func testWideOutline(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString("n")
		sb.WriteString(strings.Repeat("x", i))
		sb.WriteString(".\n")
	}
	return sb.String()
}
