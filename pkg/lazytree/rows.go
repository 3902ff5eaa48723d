// Package lazytree flattens the expanded part of a lazily loaded forest into
// rows for a windowed list, asks for more children as the viewport approaches
// unloaded continuations, and routes expand and checkbox interaction to the
// owner of the tree state.
//
// The package holds no tree state of its own. Everything it reads comes from
// Props, and everything it changes goes out through the callbacks in Props.
// After the owner applies a change it calls Engine.Refresh or Engine.SetProps.
package lazytree

// RowKind discriminates the three kinds of Row.
type RowKind int

const (
	// ItemRow shows a node.
	ItemRow RowKind = iota
	// LoadingRow is a spinner shown while a node's children are fetched.
	LoadingRow
	// AnchorRow marks children that exist but were not requested yet.
	AnchorRow
)

func (k RowKind) String() string {
	switch k {
	case ItemRow:
		return "item"
	case LoadingRow:
		return "loading"
	case AnchorRow:
		return "anchor"
	default:
		return "unknown"
	}
}

// Row is one line of the flattened tree. Node is set for item and anchor
// rows; for anchor rows it is the node whose children continue. Depth 0 is
// the level of the root's children.
type Row[N comparable] struct {
	Kind            RowKind
	Depth           int
	Node            N
	DefaultSelected bool
	Expanded        bool
}

// Item builds an item row.
func Item[N comparable](depth int, node N, defaultSelected, expanded bool) Row[N] {
	return Row[N]{Kind: ItemRow, Depth: depth, Node: node, DefaultSelected: defaultSelected, Expanded: expanded}
}

// Loading builds a loading row.
func Loading[N comparable](depth int) Row[N] {
	return Row[N]{Kind: LoadingRow, Depth: depth}
}

// Anchor builds an anchor row for owner.
func Anchor[N comparable](depth int, owner N) Row[N] {
	return Row[N]{Kind: AnchorRow, Depth: depth, Node: owner}
}

// HasNode reports whether Node is meaningful for this row.
func (r Row[N]) HasNode() bool { return r.Kind != LoadingRow }

// Entries is a flattened row list with its node index.
type Entries[N comparable] struct {
	Rows []Row[N]
	// Index maps the node of every item row to its position in Rows.
	Index map[N]int
}

// Len returns the number of rows.
func (e Entries[N]) Len() int { return len(e.Rows) }

// IndexOf returns the row position of node if it is shown as an item row.
func (e Entries[N]) IndexOf(node N) (int, bool) {
	i, ok := e.Index[node]
	return i, ok
}
