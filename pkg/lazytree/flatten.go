package lazytree

// Flatten computes the row list for the current props. It walks the
// expanded part of the forest depth-first, so a collapsed node costs one row
// whatever the size of its subtree. The same props always give the same rows.
func Flatten[N comparable](p Props[N]) Entries[N] {
	var rows []Row[N]
	if p.Forest != nil {
		rows = appendChildren(rows, p, p.Forest.Root(), 0, false)
	}

	index := make(map[N]int, len(rows))
	for i, r := range rows {
		if r.Kind == ItemRow {
			index[r.Node] = i
		}
	}
	return Entries[N]{Rows: rows, Index: index}
}

// appendChildren emits the children of parent at depth followed by at most
// one loading or anchor row for parent.
func appendChildren[N comparable](rows []Row[N], p Props[N], parent N, depth int, defaultSelected bool) []Row[N] {
	for _, child := range p.Forest.Children(parent) {
		rows = appendItem(rows, p, child, depth, defaultSelected)
	}

	status := p.status(parent)
	switch {
	case status.Loading:
		rows = append(rows, Loading[N](depth))
	case status.HasMoreItems:
		rows = append(rows, Anchor(depth, parent))
	}
	return rows
}

func appendItem[N comparable](rows []Row[N], p Props[N], node N, depth int, defaultSelected bool) []Row[N] {
	expanded := p.expanded(node)
	rows = append(rows, Item(depth, node, defaultSelected, expanded))
	if !expanded {
		return rows
	}

	// A terminal entry selects the whole subtree, so everything below
	// inherits it.
	inherited := defaultSelected || p.Selection.IsTerminal(p.Forest.KeyPath(node))
	return appendChildren(rows, p, node, depth+1, inherited)
}
