package lazytree

import (
	"fmt"
	"strings"
	"testing"

	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/selection"
	"github.com/vanderheijden86/lazytree/pkg/testutil"
)

type node = *forest.Node

type toggle struct {
	node     node
	expanded bool
}

// fakeOwner keeps the tree state the engine reads through Props and records
// every callback it receives.
type fakeOwner struct {
	tree              *forest.Tree
	expanded          map[node]bool
	status            map[node]ChildrenStatus
	sel               selection.Selection
	mode              selection.Mode[node]
	expandedByDefault bool
	noSelectionFunc   bool

	requested []node
	toggles   []toggle
	changes   []selection.Selection
}

func newOwner(tree *forest.Tree) *fakeOwner {
	return &fakeOwner{
		tree:     tree,
		expanded: map[node]bool{},
		status:   map[node]ChildrenStatus{},
		mode:     selection.MultipleFullSubtrees[node]{},
	}
}

func (o *fakeOwner) props() Props[node] {
	p := Props[node]{
		Forest: o.tree,
		IsLeaf: func(n node) (bool, bool) { return n.Leaf, true },
		IsExpanded: func(n node) (bool, bool) {
			v, ok := o.expanded[n]
			return v, ok
		},
		ChildrenStatus: func(n node) ChildrenStatus { return o.status[n] },
		RequestMore:    func(n node) { o.requested = append(o.requested, n) },
		OnExpandedOrCollapsed: func(n node, expanded bool) {
			o.toggles = append(o.toggles, toggle{n, expanded})
			o.expanded[n] = expanded
		},
		Mode:              o.mode,
		Selection:         o.sel,
		ExpandedByDefault: o.expandedByDefault,
	}
	if !o.noSelectionFunc {
		p.OnSelectionChanged = func(s selection.Selection) {
			o.changes = append(o.changes, s)
			o.sel = s
		}
	}
	return p
}

func (o *fakeOwner) n(t testing.TB, path string) node {
	t.Helper()
	return testutil.MustLookup(t, o.tree, path)
}

// describe renders rows as compact strings such as "A@0+" (expanded item),
// "A1@1*" (default-selected item), "~A@1" (anchor) and "...@1" (loading).
func describe(rows []Row[node]) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		switch r.Kind {
		case ItemRow:
			s := fmt.Sprintf("%s@%d", r.Node.Key, r.Depth)
			if r.Expanded {
				s += "+"
			}
			if r.DefaultSelected {
				s += "*"
			}
			out[i] = s
		case LoadingRow:
			out[i] = fmt.Sprintf("...@%d", r.Depth)
		case AnchorRow:
			out[i] = fmt.Sprintf("~%s@%d", r.Node.Key, r.Depth)
		}
	}
	return out
}

func assertRows(t *testing.T, rows []Row[node], want ...string) {
	t.Helper()
	got := describe(rows)
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("rows mismatch\n got: %v\nwant: %v", got, want)
	}
}

func keys(nodes []node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key
	}
	return out
}

type recordingScroller struct {
	calls []int
}

func (s *recordingScroller) ScrollToRow(i int) { s.calls = append(s.calls, i) }
