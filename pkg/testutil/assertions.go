package testutil

import (
	"testing"

	"github.com/vanderheijden86/lazytree/pkg/forest"
)

// MustLookup resolves a key-path string or fails the test.
func MustLookup(t testing.TB, tree *forest.Tree, path string) *forest.Node {
	t.Helper()
	n, ok := tree.Lookup(path)
	if !ok {
		t.Fatalf("path %q not found in tree", path)
	}
	return n
}

// AssertTreeLen verifies the number of loaded nodes.
func AssertTreeLen(t testing.TB, tree *forest.Tree, expected int) {
	t.Helper()
	if got := tree.Len(); got != expected {
		t.Errorf("expected %d nodes, got %d", expected, got)
	}
}

// AssertChildKeys verifies the keys of parent's children, in order.
func AssertChildKeys(t testing.TB, tree *forest.Tree, parent string, keys ...string) {
	t.Helper()
	n := MustLookup(t, tree, parent)
	children := tree.Children(n)
	if len(children) != len(keys) {
		t.Errorf("%q: expected %d children, got %d", parent, len(keys), len(children))
		return
	}
	for i, c := range children {
		if c.Key != keys[i] {
			t.Errorf("%q child %d: expected %q, got %q", parent, i, keys[i], c.Key)
		}
	}
}
