package forest

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrEmptyKey      = errors.New("node key is empty")
	ErrDuplicateKey  = errors.New("duplicate sibling key")
	ErrUnknownParent = errors.New("parent does not belong to this tree")
	ErrAttached      = errors.New("node is already attached to a tree")
)

// Node is a single entry of a Tree. Key must be unique among siblings;
// Label and Detail are display data only.
type Node struct {
	Key    string
	Label  string
	Detail string
	Leaf   bool

	parent   *Node
	children []*Node
	path     KeyPath
}

// Parent returns the parent node, or nil for the root and detached nodes.
func (n *Node) Parent() *Node { return n.parent }

// Path returns the node's key-path. Detached nodes return nil.
func (n *Node) Path() KeyPath { return n.path }

// Tree is an in-memory forest whose children can be appended page by page.
// It is not safe for concurrent use; the UI goroutine owns it.
type Tree struct {
	root    *Node
	index   map[string]*Node
	version uint64
}

var _ Forest[*Node] = (*Tree)(nil)

// NewTree creates a tree with an empty root labelled label.
func NewTree(label string) *Tree {
	root := &Node{Label: label, path: KeyPath{}}
	return &Tree{
		root:  root,
		index: map[string]*Node{"": root},
	}
}

// Root returns the synthetic root. It is never rendered as a row.
func (t *Tree) Root() *Node { return t.root }

// Children returns the loaded children of n in insertion order.
func (t *Tree) Children(n *Node) []*Node {
	if n == nil {
		return nil
	}
	return n.children
}

// KeyPath returns the key-path of n.
func (t *Tree) KeyPath(n *Node) KeyPath {
	if n == nil {
		return nil
	}
	return n.path
}

// FromKeyPath resolves a key-path against the loaded part of the tree.
func (t *Tree) FromKeyPath(p KeyPath) (*Node, bool) {
	n, ok := t.index[p.String()]
	return n, ok
}

// Lookup resolves the string form of a key-path.
func (t *Tree) Lookup(path string) (*Node, bool) {
	p, err := ParseKeyPath(path)
	if err != nil {
		return nil, false
	}
	return t.FromKeyPath(p)
}

// Append attaches nodes as the last children of parent. Either every node is
// attached or, on error, none is.
func (t *Tree) Append(parent *Node, nodes ...*Node) error {
	if parent == nil || t.index[parent.path.String()] != parent {
		return ErrUnknownParent
	}

	seen := make(map[string]struct{}, len(parent.children)+len(nodes))
	for _, c := range parent.children {
		seen[c.Key] = struct{}{}
	}
	for _, n := range nodes {
		if n.parent != nil || n.path != nil {
			return fmt.Errorf("%w: %q", ErrAttached, n.Key)
		}
		if n.Key == "" {
			return ErrEmptyKey
		}
		if _, dup := seen[n.Key]; dup {
			return fmt.Errorf("%w: %q under %q", ErrDuplicateKey, n.Key, parent.path.String())
		}
		seen[n.Key] = struct{}{}
	}

	for _, n := range nodes {
		n.parent = parent
		n.path = parent.path.Child(n.Key)
		t.index[n.path.String()] = n
		parent.children = append(parent.children, n)
	}
	if len(nodes) > 0 {
		t.version++
	}
	return nil
}

// ResetChildren detaches every descendant of parent so its children can be
// loaded again from scratch.
func (t *Tree) ResetChildren(parent *Node) {
	if parent == nil || len(parent.children) == 0 {
		return
	}
	for _, c := range parent.children {
		t.detach(c)
	}
	parent.children = nil
	t.version++
}

func (t *Tree) detach(n *Node) {
	for _, c := range n.children {
		t.detach(c)
	}
	delete(t.index, n.path.String())
	n.parent = nil
	n.path = nil
	n.children = nil
}

// Walk visits loaded nodes depth-first in pre-order, starting with the root's
// children at depth 0. Returning false from fn skips the node's subtree.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				walk(n.children, depth+1)
			}
		}
	}
	walk(t.root.children, 0)
}

// Len returns the number of loaded nodes, excluding the root.
func (t *Tree) Len() int { return len(t.index) - 1 }

// Version increases on every structural change.
func (t *Tree) Version() uint64 { return t.version }
