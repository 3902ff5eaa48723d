package selection

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/lazytree/pkg/forest"
)

// Mode is a selection policy. RenderSelected computes the checkbox state of a
// node; Change computes the selection after the node's checkbox is clicked.
// Change returns ok=false when the click has no effect under the policy, in
// which case the returned selection must be ignored.
type Mode[N comparable] interface {
	RenderSelected(f forest.Forest[N], sel Selection, node N, defaultSelected bool) CheckState
	Change(f forest.Forest[N], sel Selection, node N, defaultSelected bool) (Selection, bool)
}

// Mode names accepted by ParseMode.
const (
	ModeMultiple = "multiple"
	ModeSingle   = "single"
	ModeReadOnly = "readonly"
)

// ParseMode returns the policy registered under name.
func ParseMode[N comparable](name string) (Mode[N], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ModeMultiple, "multi":
		return MultipleFullSubtrees[N]{}, nil
	case ModeSingle:
		return SingleFullSubtree[N]{}, nil
	case ModeReadOnly, "read-only", "ro":
		return ReadOnly[N]{}, nil
	default:
		return nil, fmt.Errorf("unknown selection mode %q (want %s, %s or %s)", name, ModeMultiple, ModeSingle, ModeReadOnly)
	}
}

func renderSubtreeState(sel Selection, path forest.KeyPath, defaultSelected bool) CheckState {
	switch {
	case defaultSelected:
		return CheckedLocked
	case sel.IsTerminal(path):
		return Checked
	case sel.HasDescendant(path):
		return Partial
	default:
		return Unchecked
	}
}

// MultipleFullSubtrees lets any number of subtrees be selected. Selecting a
// node selects everything below it, and the rows below render locked.
type MultipleFullSubtrees[N comparable] struct{}

func (MultipleFullSubtrees[N]) RenderSelected(f forest.Forest[N], sel Selection, node N, defaultSelected bool) CheckState {
	return renderSubtreeState(sel, f.KeyPath(node), defaultSelected)
}

func (MultipleFullSubtrees[N]) Change(f forest.Forest[N], sel Selection, node N, defaultSelected bool) (Selection, bool) {
	if defaultSelected {
		return Selection{}, false
	}
	path := f.KeyPath(node)
	if sel.IsTerminal(path) {
		return sel.Without(path), true
	}
	return sel.With(path), true
}

// SingleFullSubtree keeps at most one selected subtree.
type SingleFullSubtree[N comparable] struct{}

func (SingleFullSubtree[N]) RenderSelected(f forest.Forest[N], sel Selection, node N, defaultSelected bool) CheckState {
	return renderSubtreeState(sel, f.KeyPath(node), defaultSelected)
}

func (SingleFullSubtree[N]) Change(f forest.Forest[N], sel Selection, node N, defaultSelected bool) (Selection, bool) {
	if defaultSelected {
		return Selection{}, false
	}
	path := f.KeyPath(node)
	if sel.IsTerminal(path) {
		return Empty(), true
	}
	return Of(path), true
}

// ReadOnly renders an existing selection but never changes it.
type ReadOnly[N comparable] struct{}

func (ReadOnly[N]) RenderSelected(f forest.Forest[N], sel Selection, node N, defaultSelected bool) CheckState {
	return renderSubtreeState(sel, f.KeyPath(node), defaultSelected)
}

func (ReadOnly[N]) Change(forest.Forest[N], Selection, N, bool) (Selection, bool) {
	return Selection{}, false
}
