package lazytree

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/testutil"
)

// drawOwner builds a random tree with random expansion, status and
// selection.
func drawOwner(t *rapid.T) *fakeOwner {
	cfg := testutil.DefaultConfig()
	cfg.Seed = rapid.Int64Range(1, 1<<40).Draw(t, "seed")
	cfg.MaxDepth = rapid.IntRange(1, 4).Draw(t, "depth")
	cfg.MaxFanout = rapid.IntRange(1, 5).Draw(t, "fanout")
	o := newOwner(testutil.New(cfg).Tree())

	var all []node
	o.tree.Walk(func(n *forest.Node, _ int) bool {
		all = append(all, n)
		return true
	})
	all = append(all, o.tree.Root())

	for i, n := range all {
		if rapid.Bool().Draw(t, "expanded") {
			o.expanded[n] = true
		}
		switch rapid.IntRange(0, 3).Draw(t, "status") {
		case 1:
			o.status[n] = ChildrenStatus{Loading: true}
		case 2:
			o.status[n] = ChildrenStatus{HasMoreItems: true}
		case 3:
			o.status[n] = ChildrenStatus{Loading: true, HasMoreItems: true}
		}
		if i%3 == 0 && rapid.Bool().Draw(t, "selected") {
			o.sel = o.sel.With(n.Path())
		}
	}
	return o
}

func TestPropertyCollapsedRootShowsDirectChildren(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		o := drawOwner(t)
		o.expanded = map[node]bool{}
		o.status = map[node]ChildrenStatus{}
		rows := Flatten(o.props()).Rows
		if len(rows) != len(o.tree.Children(o.tree.Root())) {
			t.Fatalf("%d rows for %d root children", len(rows), len(o.tree.Children(o.tree.Root())))
		}
		for _, r := range rows {
			if r.Depth != 0 || r.Kind != ItemRow {
				t.Fatalf("unexpected row %+v", r)
			}
		}
	})
}

func TestPropertyExpandKeepsPrefix(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		o := drawOwner(t)
		before := Flatten(o.props())
		var collapsed []int
		for i, r := range before.Rows {
			if r.Kind == ItemRow && !r.Expanded {
				collapsed = append(collapsed, i)
			}
		}
		if len(collapsed) == 0 {
			t.Skip("no collapsed row")
		}
		i := rapid.SampledFrom(collapsed).Draw(t, "row")
		target := before.Rows[i].Node
		o.expanded[target] = true
		after := Flatten(o.props())

		for j := 0; j < i; j++ {
			if describe(before.Rows[j:j+1])[0] != describe(after.Rows[j:j+1])[0] {
				t.Fatalf("row %d changed after expanding row %d", j, i)
			}
		}
		var prev = -1
		for _, c := range o.tree.Children(target) {
			pos, ok := after.IndexOf(c)
			if !ok {
				t.Fatalf("child %q of expanded node not shown", c.Key)
			}
			if pos <= prev {
				t.Fatalf("children out of order")
			}
			if after.Rows[pos].Depth != before.Rows[i].Depth+1 {
				t.Fatalf("child depth %d under parent depth %d", after.Rows[pos].Depth, before.Rows[i].Depth)
			}
			prev = pos
		}
	})
}

func TestPropertyStructuralInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		o := drawOwner(t)
		e := Flatten(o.props())

		seen := map[node]bool{}
		for i, r := range e.Rows {
			switch r.Kind {
			case ItemRow:
				if seen[r.Node] {
					t.Fatalf("node %q shown twice", r.Node.Key)
				}
				seen[r.Node] = true
				if got, ok := e.IndexOf(r.Node); !ok || got != i {
					t.Fatalf("index of %q = %d, want %d", r.Node.Key, got, i)
				}
			case AnchorRow:
				if o.status[r.Node].Loading {
					t.Fatalf("anchor for loading node %q", r.Node.Key)
				}
			}
			if i > 0 && r.Depth > e.Rows[i-1].Depth+1 {
				t.Fatalf("depth jumps from %d to %d at row %d", e.Rows[i-1].Depth, r.Depth, i)
			}
			// Synthetic rows close a children block and never follow one
			// another at the same depth.
			if r.Kind != ItemRow && i > 0 && e.Rows[i-1].Kind != ItemRow && e.Rows[i-1].Depth == r.Depth {
				t.Fatalf("two synthetic rows at depth %d", r.Depth)
			}
		}
		if len(e.Index) != len(seen) {
			t.Fatalf("index has %d entries for %d items", len(e.Index), len(seen))
		}
	})
}

func TestPropertyDefaultSelectedIsInherited(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		o := drawOwner(t)
		e := Flatten(o.props())
		for _, r := range e.Rows {
			if r.Kind != ItemRow || !r.DefaultSelected {
				continue
			}
			parent := r.Node.Parent()
			pos, ok := e.IndexOf(parent)
			if !ok {
				t.Fatalf("default-selected %q has no parent row", r.Node.Key)
			}
			pr := e.Rows[pos]
			if !pr.DefaultSelected && !o.sel.IsTerminal(parent.Path()) {
				t.Fatalf("%q is default-selected but its parent is neither terminal nor default-selected", r.Node.Key)
			}
		}
		for _, r := range e.Rows {
			if r.Kind == ItemRow && r.DefaultSelected && r.Expanded {
				for _, c := range o.tree.Children(r.Node) {
					pos, _ := e.IndexOf(c)
					if !e.Rows[pos].DefaultSelected {
						t.Fatalf("child %q of default-selected %q lost the flag", c.Key, r.Node.Key)
					}
				}
			}
		}
	})
}

func TestPropertyAnchorsInWindowRequestedOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		o := drawOwner(t)
		e := New(o.props(), DefaultOptions())
		n := e.Len()
		if n == 0 {
			t.Skip("no rows")
		}
		s := rapid.IntRange(0, n-1).Draw(t, "overscanStart")
		stop := rapid.IntRange(s, n-1).Draw(t, "overscanStop")
		e.OnRowsRendered(RenderedRange{Start: s, Stop: stop, OverscanStart: s, OverscanStop: stop})

		lo, hi := max(0, s-DefaultLoadMargin), min(n, stop+DefaultLoadMargin)
		counts := map[node]int{}
		for _, x := range o.requested {
			counts[x]++
		}
		for i, r := range e.Rows() {
			if r.Kind != AnchorRow {
				continue
			}
			want := 0
			if i >= lo && i < hi {
				want = 1
			}
			if counts[r.Node] != want {
				t.Fatalf("anchor %q at %d requested %d times, want %d (window [%d,%d))", r.Node.Key, i, counts[r.Node], want, lo, hi)
			}
		}
	})
}

func TestPropertyScrollToCollapsedDescendantIsNoop(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		o := drawOwner(t)
		e := New(o.props(), DefaultOptions())
		s := &recordingScroller{}
		e.SetScroller(s)

		var hidden []node
		o.tree.Walk(func(n *forest.Node, _ int) bool {
			if _, shown := e.Entries().IndexOf(n); !shown {
				hidden = append(hidden, n)
			}
			return true
		})
		if len(hidden) == 0 {
			t.Skip("every node is visible")
		}
		target := rapid.SampledFrom(hidden).Draw(t, "hidden")
		if e.ScrollToPath(target.Path()) || len(s.calls) != 0 {
			t.Fatalf("scrolled to hidden node %q", target.Key)
		}
	})
}
