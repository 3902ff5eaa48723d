package lazytree

import (
	"testing"

	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/selection"
	"github.com/vanderheijden86/lazytree/pkg/testutil"
)

func TestEngineScansOnRowsRendered(t *testing.T) {
	o := newOwner(testutil.Outline(abOutline))
	a := o.n(t, "A")
	o.expanded[a] = true
	o.status[a] = ChildrenStatus{HasMoreItems: true}

	e := New(o.props(), DefaultOptions())
	if len(o.requested) != 0 {
		t.Fatalf("New must not request before the first render, got %v", keys(o.requested))
	}

	e.OnRowsRendered(RenderedRange{Start: 0, Stop: 4, OverscanStart: 0, OverscanStop: 4})
	if len(o.requested) != 1 || o.requested[0] != a {
		t.Fatalf("requested %v, want [A]", keys(o.requested))
	}

	// The owner marks A as loading; the anchor turns into a spinner and the
	// next scan asks for nothing.
	o.status[a] = ChildrenStatus{Loading: true}
	e.SetProps(o.props())
	if len(o.requested) != 1 {
		t.Errorf("loading node requested again: %v", keys(o.requested))
	}
	assertRows(t, e.Rows(), "A@0+", "A1@1", "A2@1", "...@1", "B@0")
}

func TestEngineRepeatedScansAreAbsorbedByOwner(t *testing.T) {
	o := newOwner(testutil.Outline(abOutline))
	a := o.n(t, "A")
	o.expanded[a] = true
	o.status[a] = ChildrenStatus{HasMoreItems: true}
	e := New(o.props(), DefaultOptions())

	r := RenderedRange{OverscanStop: 4}
	e.OnRowsRendered(r)
	e.OnRowsRendered(r)
	if len(o.requested) != 2 {
		t.Errorf("each scan should request the anchor, got %d requests", len(o.requested))
	}
}

func TestEngineScansAfterRecompute(t *testing.T) {
	o := newOwner(testutil.Outline(abOutline))
	a := o.n(t, "A")
	o.status[a] = ChildrenStatus{HasMoreItems: true}
	e := New(o.props(), DefaultOptions())
	e.OnRowsRendered(RenderedRange{OverscanStop: 1})
	if len(o.requested) != 0 {
		t.Fatalf("collapsed A has no anchor, got %v", keys(o.requested))
	}

	// Expanding through the owner without a new rendered range still finds
	// the anchor that appeared inside the viewport.
	o.expanded[a] = true
	e.SetProps(o.props())
	if len(o.requested) != 1 || o.requested[0] != a {
		t.Errorf("requested %v after recompute, want [A]", keys(o.requested))
	}
}

func TestEngineAnchorOutsideWindowNotRequested(t *testing.T) {
	tree := testutil.Wide(60)
	o := newOwner(tree)
	o.status[tree.Root()] = ChildrenStatus{HasMoreItems: true}
	e := New(o.props(), Options{Overscan: 0, LoadMargin: 5})

	e.OnRowsRendered(RenderedRange{Start: 0, Stop: 9, OverscanStart: 0, OverscanStop: 9})
	if len(o.requested) != 0 {
		t.Fatalf("anchor at row 60 is far from rows 0-9, requested %d", len(o.requested))
	}
	e.OnRowsRendered(RenderedRange{Start: 50, Stop: 59, OverscanStart: 50, OverscanStop: 59})
	if len(o.requested) != 1 || o.requested[0] != tree.Root() {
		t.Errorf("expected root anchor request, got %d", len(o.requested))
	}
}

func TestToggleExpanded(t *testing.T) {
	tests := []struct {
		name        string
		status      ChildrenStatus
		wasExpanded bool
		wantRequest bool
	}{
		{"expand with more", ChildrenStatus{HasMoreItems: true}, false, true},
		{"expand while loading", ChildrenStatus{Loading: true, HasMoreItems: true}, false, false},
		{"expand fully loaded", ChildrenStatus{}, false, false},
		{"collapse with more", ChildrenStatus{HasMoreItems: true}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOwner(testutil.Outline(abOutline))
			a := o.n(t, "A")
			o.status[a] = tt.status
			e := New(o.props(), DefaultOptions())

			e.ToggleExpanded(a, tt.wasExpanded)
			if len(o.toggles) != 1 || o.toggles[0].node != a || o.toggles[0].expanded != !tt.wasExpanded {
				t.Fatalf("toggles = %+v", o.toggles)
			}
			if got := len(o.requested) == 1; got != tt.wantRequest {
				t.Errorf("requested = %v, want request %v", keys(o.requested), tt.wantRequest)
			}
		})
	}
}

func TestToggleRow(t *testing.T) {
	o := newOwner(testutil.Outline(abOutline))
	a := o.n(t, "A")
	o.status[a] = ChildrenStatus{HasMoreItems: true}
	e := New(o.props(), DefaultOptions())

	if !e.ToggleRow(0) {
		t.Fatal("ToggleRow(0) on an item should succeed")
	}
	e.SetProps(o.props())
	assertRows(t, e.Rows(), "A@0+", "A1@1", "A2@1", "~A@1", "B@0")

	if e.ToggleRow(3) {
		t.Error("anchor rows cannot be toggled")
	}
	if e.ToggleRow(99) || e.ToggleRow(-1) {
		t.Error("out of range rows cannot be toggled")
	}

	e.ToggleRow(0)
	e.SetProps(o.props())
	assertRows(t, e.Rows(), "A@0", "B@0")
}

type rejectAll struct {
	selection.MultipleFullSubtrees[node]
	calls int
}

func (r *rejectAll) Change(forest.Forest[node], selection.Selection, node, bool) (selection.Selection, bool) {
	r.calls++
	return selection.Selection{}, false
}

func TestOnItemCheckedChange(t *testing.T) {
	o := newOwner(testutil.Outline(abOutline))
	b := o.n(t, "B")
	e := New(o.props(), DefaultOptions())

	e.OnItemCheckedChange(b, false)
	if len(o.changes) != 1 || !o.changes[0].IsTerminal(forest.KeyPath{"B"}) {
		t.Fatalf("changes = %d", len(o.changes))
	}
	e.SetProps(o.props())
	if got := e.CheckState(e.Rows()[1]); got != selection.Checked {
		t.Errorf("B check state = %v, want checked", got)
	}
}

func TestOnItemCheckedChangeStartsFromEmptySelection(t *testing.T) {
	o := newOwner(testutil.Outline(abOutline))
	e := New(o.props(), DefaultOptions())
	e.OnItemCheckedChange(o.n(t, "A/A1"), false)
	if len(o.changes) != 1 || o.changes[0].Len() != 1 {
		t.Fatalf("expected a one-entry selection, got %d changes", len(o.changes))
	}
}

func TestOnItemCheckedChangeNoopSentinel(t *testing.T) {
	o := newOwner(testutil.Outline(abOutline))
	policy := &rejectAll{}
	o.mode = policy
	e := New(o.props(), DefaultOptions())

	e.OnItemCheckedChange(o.n(t, "B"), false)
	if policy.calls != 1 {
		t.Errorf("policy consulted %d times, want 1", policy.calls)
	}
	if len(o.changes) != 0 {
		t.Errorf("selection callback called %d times after a rejected change", len(o.changes))
	}
}

func TestOnItemCheckedChangeWithoutCallback(t *testing.T) {
	o := newOwner(testutil.Outline(abOutline))
	policy := &rejectAll{}
	o.mode = policy
	o.noSelectionFunc = true
	e := New(o.props(), DefaultOptions())

	e.OnItemCheckedChange(o.n(t, "B"), false)
	if policy.calls != 0 {
		t.Error("policy must not be consulted without a selection callback")
	}
}

func TestToggleCheckRow(t *testing.T) {
	o := newOwner(testutil.Outline(abOutline))
	o.status[o.tree.Root()] = ChildrenStatus{HasMoreItems: true}
	e := New(o.props(), DefaultOptions())

	if e.ToggleCheckRow(2) {
		t.Error("anchor rows have no checkbox")
	}
	if !e.ToggleCheckRow(0) || len(o.changes) != 1 {
		t.Error("item row checkbox should change the selection")
	}

	hidden := New(o.props(), Options{HideCheckboxes: true})
	if hidden.ToggleCheckRow(0) {
		t.Error("hidden checkboxes cannot be clicked")
	}
}

func TestCheckStateLockedUnderTerminal(t *testing.T) {
	o := newOwner(testutil.Outline(abOutline))
	o.expanded[o.n(t, "A")] = true
	o.sel = selection.Of(forest.KeyPath{"A"})
	e := New(o.props(), DefaultOptions())

	want := []selection.CheckState{selection.Checked, selection.CheckedLocked, selection.CheckedLocked, selection.Unchecked}
	for i, w := range want {
		if got := e.CheckState(e.Rows()[i]); got != w {
			t.Errorf("row %d = %v, want %v", i, got, w)
		}
	}
	if got := e.CheckState(Loading[node](0)); got != selection.Unchecked {
		t.Errorf("loading row = %v", got)
	}
}

func TestScrollToPath(t *testing.T) {
	o := newOwner(testutil.Outline(abOutline))
	e := New(o.props(), DefaultOptions())

	if e.ScrollToPath(forest.KeyPath{"B"}) {
		t.Error("ScrollToPath without a scroller should be a no-op")
	}

	s := &recordingScroller{}
	e.SetScroller(s)

	if !e.ScrollToPath(forest.KeyPath{"B"}) {
		t.Error("B is visible")
	}
	if e.ScrollToPath(forest.KeyPath{"A", "A2"}) {
		t.Error("A2 is under collapsed A")
	}
	if e.ScrollToPath(forest.KeyPath{"missing"}) {
		t.Error("missing path resolved")
	}
	if e.ScrollToPath(forest.KeyPath{}) {
		t.Error("the root is never a row")
	}
	if len(s.calls) != 1 || s.calls[0] != 1 {
		t.Fatalf("scroll calls = %v, want [1]", s.calls)
	}

	o.expanded[o.n(t, "A")] = true
	e.SetProps(o.props())
	if !e.ScrollToPath(forest.KeyPath{"A", "A2"}) || s.calls[len(s.calls)-1] != 2 {
		t.Errorf("scroll calls = %v, want last 2", s.calls)
	}
}

func TestOptionsNormalize(t *testing.T) {
	o := Options{ItemHeight: 0, Overscan: -3, LoadMargin: -1}.Normalize()
	if o.ItemHeight != MinItemHeight || o.Overscan != DefaultOverscanRowCount || o.LoadMargin != DefaultLoadMargin {
		t.Errorf("Normalize() = %+v", o)
	}
	if got := (Options{ItemHeight: 3}).Normalize().ItemHeight; got != 3 {
		t.Errorf("ItemHeight = %d, want 3", got)
	}
}

func TestIsLeaf(t *testing.T) {
	o := newOwner(testutil.Outline(abOutline))
	e := New(o.props(), DefaultOptions())
	if e.IsLeaf(o.n(t, "A")) || !e.IsLeaf(o.n(t, "B")) {
		t.Error("IsLeaf mismatch")
	}
	bare := New(Props[node]{Forest: o.tree}, DefaultOptions())
	if bare.IsLeaf(o.n(t, "B")) {
		t.Error("unknown leaf-ness must default to false")
	}
}
