package selection

import (
	"testing"

	"github.com/vanderheijden86/lazytree/pkg/forest"
)

func buildTree(t *testing.T) (*forest.Tree, map[string]*forest.Node) {
	t.Helper()
	tree := forest.NewTree("root")
	nodes := map[string]*forest.Node{}
	add := func(parent *forest.Node, key string) *forest.Node {
		n := &forest.Node{Key: key}
		if err := tree.Append(parent, n); err != nil {
			t.Fatalf("Append(%s): %v", key, err)
		}
		nodes[tree.KeyPath(n).String()] = n
		return n
	}
	a := add(tree.Root(), "a")
	add(a, "a1")
	add(a, "a2")
	add(tree.Root(), "b")
	return tree, nodes
}

func TestParseMode(t *testing.T) {
	for _, name := range []string{"", "multiple", "Multi", "single", "readonly", "ro"} {
		if _, err := ParseMode[*forest.Node](name); err != nil {
			t.Errorf("ParseMode(%q): %v", name, err)
		}
	}
	if _, err := ParseMode[*forest.Node]("bogus"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestMultipleFullSubtrees(t *testing.T) {
	tree, n := buildTree(t)
	mode := MultipleFullSubtrees[*forest.Node]{}

	sel, ok := mode.Change(tree, Empty(), n["a/a1"], false)
	if !ok || !sel.IsTerminal(kp("a/a1")) {
		t.Fatalf("select a1: ok=%v sel=%v", ok, sel.Terminals())
	}
	if got := mode.RenderSelected(tree, sel, n["a"], false); got != Partial {
		t.Errorf("a = %v, want partial", got)
	}
	if got := mode.RenderSelected(tree, sel, n["a/a1"], false); got != Checked {
		t.Errorf("a1 = %v, want checked", got)
	}
	if got := mode.RenderSelected(tree, sel, n["b"], false); got != Unchecked {
		t.Errorf("b = %v, want unchecked", got)
	}

	sel, ok = mode.Change(tree, sel, n["b"], false)
	if !ok || sel.Len() != 2 {
		t.Fatalf("select b: ok=%v len=%d", ok, sel.Len())
	}

	sel, ok = mode.Change(tree, sel, n["a"], false)
	if !ok || !sel.IsTerminal(kp("a")) || sel.IsTerminal(kp("a/a1")) {
		t.Fatalf("select a should fold a1: %v", sel.Terminals())
	}

	if got := mode.RenderSelected(tree, sel, n["a/a2"], true); got != CheckedLocked {
		t.Errorf("default-selected a2 = %v, want locked", got)
	}
	if _, ok := mode.Change(tree, sel, n["a/a2"], true); ok {
		t.Error("change on a locked row must be a no-op")
	}

	sel, ok = mode.Change(tree, sel, n["a"], false)
	if !ok || sel.IsTerminal(kp("a")) || !sel.IsTerminal(kp("b")) {
		t.Errorf("deselect a: %v", sel.Terminals())
	}
}

func TestSingleFullSubtree(t *testing.T) {
	tree, n := buildTree(t)
	mode := SingleFullSubtree[*forest.Node]{}

	sel, _ := mode.Change(tree, Empty(), n["a/a1"], false)
	sel, ok := mode.Change(tree, sel, n["b"], false)
	if !ok || sel.Len() != 1 || !sel.IsTerminal(kp("b")) {
		t.Fatalf("single mode should replace: %v", sel.Terminals())
	}
	sel, ok = mode.Change(tree, sel, n["b"], false)
	if !ok || !sel.IsEmpty() {
		t.Errorf("toggling the selected node should clear: %v", sel.Terminals())
	}
	if _, ok := mode.Change(tree, sel, n["a/a1"], true); ok {
		t.Error("default-selected change must be a no-op")
	}
}

func TestReadOnly(t *testing.T) {
	tree, n := buildTree(t)
	mode := ReadOnly[*forest.Node]{}
	sel := Of(kp("a"))
	if _, ok := mode.Change(tree, sel, n["b"], false); ok {
		t.Error("read-only change must be a no-op")
	}
	if got := mode.RenderSelected(tree, sel, n["a"], false); got != Checked {
		t.Errorf("a = %v, want checked", got)
	}
}
