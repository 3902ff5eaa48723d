package lazytree

import (
	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/selection"
)

// Layout defaults.
const (
	MinItemHeight           = 1
	DefaultOverscanRowCount = 10
	DefaultLoadMargin       = 10
)

// ChildrenStatus is the loading state of a node's children as reported by
// the owner. Loading takes precedence over HasMoreItems.
type ChildrenStatus struct {
	Loading      bool
	HasMoreItems bool
}

// Props is everything the engine reads from and reports to the owner of the
// tree state. Nil funcs are allowed: unknown lookups fall back to false and
// missing callbacks are skipped.
type Props[N comparable] struct {
	Forest forest.Forest[N]

	// IsLeaf and IsExpanded return known=false when the owner has no opinion.
	IsLeaf     func(N) (leaf, known bool)
	IsExpanded func(N) (expanded, known bool)

	ChildrenStatus func(N) ChildrenStatus
	RequestMore    func(N)

	OnExpandedOrCollapsed func(node N, expanded bool)

	Mode               selection.Mode[N]
	Selection          selection.Selection
	OnSelectionChanged func(selection.Selection)

	// ExpandedByDefault applies to nodes IsExpanded knows nothing about.
	ExpandedByDefault bool
}

func (p Props[N]) expanded(n N) bool {
	if p.IsExpanded != nil {
		if v, ok := p.IsExpanded(n); ok {
			return v
		}
	}
	return p.ExpandedByDefault
}

func (p Props[N]) leaf(n N) bool {
	if p.IsLeaf == nil {
		return false
	}
	v, ok := p.IsLeaf(n)
	return ok && v
}

func (p Props[N]) status(n N) ChildrenStatus {
	if p.ChildrenStatus == nil {
		return ChildrenStatus{}
	}
	return p.ChildrenStatus(n)
}

// Options controls layout and prefetch distances.
type Options struct {
	// ItemHeight is the height of every row in lines. Values below
	// MinItemHeight are raised to it.
	ItemHeight     int
	HideCheckboxes bool
	// Overscan is the number of rows rendered beyond each edge of the viewport.
	Overscan int
	// LoadMargin widens the anchor scan beyond the overscanned range.
	LoadMargin int
}

// DefaultOptions returns the layout used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ItemHeight: MinItemHeight,
		Overscan:   DefaultOverscanRowCount,
		LoadMargin: DefaultLoadMargin,
	}
}

// Normalize applies the item height floor and replaces negative distances
// with their defaults.
func (o Options) Normalize() Options {
	if o.ItemHeight < MinItemHeight {
		o.ItemHeight = MinItemHeight
	}
	if o.Overscan < 0 {
		o.Overscan = DefaultOverscanRowCount
	}
	if o.LoadMargin < 0 {
		o.LoadMargin = DefaultLoadMargin
	}
	return o
}
