// Package selection holds tree selections and the policies that decide how a
// checkbox click changes them.
package selection

import (
	"sort"

	"github.com/vanderheijden86/lazytree/pkg/forest"
)

// CheckState is the rendered state of a row's checkbox.
type CheckState int

const (
	Unchecked CheckState = iota
	Partial
	Checked
	// CheckedLocked is checked and not interactive.
	CheckedLocked
)

func (s CheckState) String() string {
	switch s {
	case Partial:
		return "partial"
	case Checked:
		return "checked"
	case CheckedLocked:
		return "locked"
	default:
		return "unchecked"
	}
}

// IsChecked reports whether the checkbox shows a check mark.
func (s CheckState) IsChecked() bool { return s == Checked || s == CheckedLocked }

// Selection is an immutable set of terminal entries. A terminal entry selects
// its node together with the whole subtree below it, loaded or not. Ancestors
// of a terminal entry are implicitly partially selected.
//
// The zero value is the empty selection.
type Selection struct {
	terminals map[string]forest.KeyPath
}

// Empty returns a selection with no entries.
func Empty() Selection { return Selection{} }

// Of returns a selection whose terminal entries are the given paths. Paths
// nested below another given path are folded into their ancestor.
func Of(paths ...forest.KeyPath) Selection {
	s := Selection{}
	for _, p := range paths {
		s = s.With(p)
	}
	return s
}

// Len returns the number of terminal entries.
func (s Selection) Len() int { return len(s.terminals) }

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool { return len(s.terminals) == 0 }

// IsTerminal reports whether p itself is a terminal entry.
func (s Selection) IsTerminal(p forest.KeyPath) bool {
	_, ok := s.terminals[p.String()]
	return ok
}

// Covers reports whether p or one of its ancestors is a terminal entry.
func (s Selection) Covers(p forest.KeyPath) bool {
	for i := len(p); i >= 0; i-- {
		if _, ok := s.terminals[p[:i].String()]; ok {
			return true
		}
	}
	return false
}

// HasDescendant reports whether a terminal entry lies strictly below p.
func (s Selection) HasDescendant(p forest.KeyPath) bool {
	for _, t := range s.terminals {
		if len(t) > len(p) && t.HasPrefix(p) {
			return true
		}
	}
	return false
}

// With returns a copy of s where p is terminal. Terminal entries below p are
// dropped because p now covers them.
func (s Selection) With(p forest.KeyPath) Selection {
	next := s.without(p)
	if next.terminals == nil {
		next.terminals = make(map[string]forest.KeyPath, 1)
	}
	next.terminals[p.String()] = append(forest.KeyPath(nil), p...)
	return next
}

// Without returns a copy of s with p and every terminal entry below p removed.
func (s Selection) Without(p forest.KeyPath) Selection {
	return s.without(p)
}

func (s Selection) without(p forest.KeyPath) Selection {
	next := Selection{terminals: make(map[string]forest.KeyPath, len(s.terminals))}
	for k, t := range s.terminals {
		if t.HasPrefix(p) {
			continue
		}
		next.terminals[k] = t
	}
	return next
}

// Terminals returns the terminal entries sorted by their string form.
func (s Selection) Terminals() []forest.KeyPath {
	keys := make([]string, 0, len(s.terminals))
	for k := range s.terminals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]forest.KeyPath, len(keys))
	for i, k := range keys {
		out[i] = s.terminals[k]
	}
	return out
}

// Equal reports whether both selections have the same terminal entries.
func (s Selection) Equal(other Selection) bool {
	if len(s.terminals) != len(other.terminals) {
		return false
	}
	for k := range s.terminals {
		if _, ok := other.terminals[k]; !ok {
			return false
		}
	}
	return true
}
