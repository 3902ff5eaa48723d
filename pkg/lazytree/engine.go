package lazytree

import (
	"github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/metrics"
	"github.com/vanderheijden86/lazytree/pkg/selection"
)

// Scroller is the part of the windowed list the engine drives.
type Scroller interface {
	ScrollToRow(i int)
}

// Engine holds the current row list of one tree view together with the
// last rendered range. It is not safe for concurrent use.
type Engine[N comparable] struct {
	props    Props[N]
	opts     Options
	entries  Entries[N]
	prefetch *Prefetcher[N]
	scroller Scroller
}

// New creates an engine and computes the initial rows. No anchor is
// requested until the first OnRowsRendered.
func New[N comparable](props Props[N], opts Options) *Engine[N] {
	opts = opts.Normalize()
	e := &Engine[N]{
		props:    props,
		opts:     opts,
		prefetch: NewPrefetcher[N](opts.LoadMargin),
	}
	e.recompute()
	return e
}

// SetScroller attaches the windowed list used by ScrollToPath.
func (e *Engine[N]) SetScroller(s Scroller) { e.scroller = s }

// Props returns the current props.
func (e *Engine[N]) Props() Props[N] { return e.props }

// Options returns the normalized options.
func (e *Engine[N]) Options() Options { return e.opts }

// SetProps replaces the props, recomputes the rows and scans the last
// rendered range for anchors.
func (e *Engine[N]) SetProps(p Props[N]) {
	e.props = p
	e.Refresh()
}

// Refresh recomputes the rows from the current props and scans the last
// rendered range. Call it after the state behind the props has changed.
func (e *Engine[N]) Refresh() {
	e.recompute()
	e.scan()
}

func (e *Engine[N]) recompute() {
	defer metrics.Timer(metrics.Flatten)()
	e.entries = Flatten(e.props)
}

func (e *Engine[N]) scan() {
	defer metrics.Timer(metrics.PrefetchScan)()
	if n := e.prefetch.Scan(e.entries.Rows, e.props.RequestMore); n > 0 {
		debug.Log("lazytree: requested more children for %d anchor(s)", n)
	}
}

// Entries returns the current row list and index.
func (e *Engine[N]) Entries() Entries[N] { return e.entries }

// Rows returns the current row list.
func (e *Engine[N]) Rows() []Row[N] { return e.entries.Rows }

// Len returns the number of rows.
func (e *Engine[N]) Len() int { return len(e.entries.Rows) }

// Row returns row i.
func (e *Engine[N]) Row(i int) (Row[N], bool) {
	if i < 0 || i >= len(e.entries.Rows) {
		return Row[N]{}, false
	}
	return e.entries.Rows[i], true
}

// OnRowsRendered records the overscanned range reported by the windowed
// list and requests more children for every anchor near it.
func (e *Engine[N]) OnRowsRendered(r RenderedRange) {
	e.prefetch.Record(r)
	e.scan()
}

// ToggleExpanded reports the flipped expansion of node to the owner. When a
// node is expanded and the owner says more children are available and not
// already loading, they are requested right away without waiting for the
// viewport scan.
func (e *Engine[N]) ToggleExpanded(node N, wasExpanded bool) {
	expanded := !wasExpanded
	if e.props.OnExpandedOrCollapsed != nil {
		e.props.OnExpandedOrCollapsed(node, expanded)
	}
	if !expanded || e.props.RequestMore == nil {
		return
	}
	if status := e.props.status(node); !status.Loading && status.HasMoreItems {
		e.props.RequestMore(node)
	}
}

// ToggleRow toggles the item row at i. It reports false for other rows.
func (e *Engine[N]) ToggleRow(i int) bool {
	r, ok := e.Row(i)
	if !ok || r.Kind != ItemRow {
		return false
	}
	e.ToggleExpanded(r.Node, r.Expanded)
	return true
}

// OnItemCheckedChange applies a checkbox click through the selection mode
// and reports the new selection. Clicks the mode rejects are dropped.
func (e *Engine[N]) OnItemCheckedChange(node N, defaultSelected bool) {
	if e.props.OnSelectionChanged == nil || e.props.Mode == nil || e.props.Forest == nil {
		return
	}
	next, ok := e.props.Mode.Change(e.props.Forest, e.props.Selection, node, defaultSelected)
	if !ok {
		return
	}
	e.props.OnSelectionChanged(next)
}

// ToggleCheckRow clicks the checkbox of the item row at i. It reports false
// for other rows and when checkboxes are hidden.
func (e *Engine[N]) ToggleCheckRow(i int) bool {
	r, ok := e.Row(i)
	if !ok || r.Kind != ItemRow || e.opts.HideCheckboxes {
		return false
	}
	e.OnItemCheckedChange(r.Node, r.DefaultSelected)
	return true
}

// CheckState returns the checkbox state of an item row.
func (e *Engine[N]) CheckState(r Row[N]) selection.CheckState {
	if r.Kind != ItemRow || e.props.Mode == nil || e.props.Forest == nil {
		return selection.Unchecked
	}
	return e.props.Mode.RenderSelected(e.props.Forest, e.props.Selection, r.Node, r.DefaultSelected)
}

// IsLeaf reports whether the owner marked node as a leaf.
func (e *Engine[N]) IsLeaf(node N) bool { return e.props.leaf(node) }

// ScrollToPath scrolls the windowed list to the node at path. Nothing
// happens when the path does not resolve or the node is not currently
// shown as an item row, for example under a collapsed ancestor.
func (e *Engine[N]) ScrollToPath(path forest.KeyPath) bool {
	if e.props.Forest == nil || e.scroller == nil {
		return false
	}
	node, ok := e.props.Forest.FromKeyPath(path)
	if !ok {
		return false
	}
	i, ok := e.entries.IndexOf(node)
	if !ok {
		return false
	}
	e.scroller.ScrollToRow(i)
	return true
}
