package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/lazytree"
	"github.com/vanderheijden86/lazytree/pkg/selection"
)

// Row glyphs.
const (
	GlyphExpanded  = "▾"
	GlyphCollapsed = "▸"
	GlyphLeaf      = " "
	moreHint       = "more…"
	loadingHint    = "Loading…"
)

// CheckboxGlyph returns the checkbox text for a check state. Locked rows use
// the checked glyph and are told apart by style.
func CheckboxGlyph(s selection.CheckState) string {
	switch s {
	case selection.Checked, selection.CheckedLocked:
		return "[x]"
	case selection.Partial:
		return "[-]"
	default:
		return "[ ]"
	}
}

// ExpandGlyph returns the toggle glyph. Leaves get a blank of the same width.
func ExpandGlyph(leaf, expanded bool) string {
	switch {
	case leaf:
		return GlyphLeaf
	case expanded:
		return GlyphExpanded
	default:
		return GlyphCollapsed
	}
}

// RowState is what the renderer needs to know about a row beyond the row
// itself.
type RowState struct {
	Check    selection.CheckState
	Leaf     bool
	Selected bool
}

// RowRenderer maps rows to single lines of text. It is a pure function of
// its fields and the row, so the same row always renders the same way.
type RowRenderer struct {
	Theme          Theme
	IndentWidth    int
	HideCheckboxes bool
	// Width truncates lines; zero disables truncation.
	Width int
	// Spinner is the current spinner frame for loading and anchor rows.
	Spinner string
	// ItemRenderer returns the content of an item row. Nil shows the label
	// followed by the muted detail.
	ItemRenderer func(*forest.Node) string
	// EmptyRenderer returns the placeholder for an empty tree. Nil shows
	// "No items".
	EmptyRenderer func() string
	// Plain disables styling.
	Plain bool
}

type segment struct {
	text  string
	style *lipgloss.Style
}

// Render renders one row.
func (r RowRenderer) Render(row lazytree.Row[*forest.Node], st RowState) string {
	indent := strings.Repeat(" ", row.Depth*max(0, r.IndentWidth))
	segs := []segment{{text: indent}}

	switch row.Kind {
	case lazytree.ItemRow:
		segs = append(segs, segment{text: ExpandGlyph(st.Leaf, row.Expanded) + " ", style: &r.Theme.Expander})
		if !r.HideCheckboxes {
			segs = append(segs, segment{text: CheckboxGlyph(st.Check), style: r.checkStyle(st.Check)}, segment{text: " "})
		}
		segs = append(segs, r.itemContent(row.Node)...)
	case lazytree.LoadingRow:
		segs = append(segs,
			segment{text: r.spinnerFrame(), style: &r.Theme.SpinnerStyle},
			segment{text: " " + loadingHint, style: &r.Theme.MutedText})
	case lazytree.AnchorRow:
		segs = append(segs,
			segment{text: r.spinnerFrame(), style: &r.Theme.SpinnerStyle},
			segment{text: " " + moreHint, style: &r.Theme.MutedText})
	}

	line := r.join(r.truncate(segs))
	if st.Selected && !r.Plain {
		line = r.Theme.Selected.Render(line)
	}
	return line
}

// RenderEmpty renders the placeholder for an empty row list.
func (r RowRenderer) RenderEmpty() string {
	if r.EmptyRenderer != nil {
		return r.EmptyRenderer()
	}
	if r.Plain {
		return "No items"
	}
	return r.Theme.MutedText.Render("No items")
}

func (r RowRenderer) itemContent(n *forest.Node) []segment {
	if n == nil {
		return nil
	}
	if r.ItemRenderer != nil {
		return []segment{{text: r.ItemRenderer(n)}}
	}
	segs := []segment{{text: n.Label, style: &r.Theme.Base}}
	if n.Label == "" {
		segs[0].text = n.Key
	}
	if n.Detail != "" {
		segs = append(segs, segment{text: "  " + n.Detail, style: &r.Theme.MutedText})
	}
	return segs
}

func (r RowRenderer) checkStyle(s selection.CheckState) *lipgloss.Style {
	switch s {
	case selection.Checked:
		return &r.Theme.CheckedBox
	case selection.Partial:
		return &r.Theme.PartialBox
	case selection.CheckedLocked:
		return &r.Theme.LockedBox
	default:
		return &r.Theme.MutedText
	}
}

func (r RowRenderer) spinnerFrame() string {
	if r.Spinner == "" {
		return "⋯"
	}
	return r.Spinner
}

// truncate cuts the segments to Width cells, ending with an ellipsis.
func (r RowRenderer) truncate(segs []segment) []segment {
	if r.Width <= 0 {
		return segs
	}
	total := 0
	for _, s := range segs {
		total += runewidth.StringWidth(s.text)
	}
	if total <= r.Width {
		return segs
	}
	remaining := r.Width
	out := make([]segment, 0, len(segs))
	for _, s := range segs {
		w := runewidth.StringWidth(s.text)
		if w < remaining {
			out = append(out, s)
			remaining -= w
			continue
		}
		s.text = runewidth.Truncate(s.text, remaining-1, "") + "…"
		out = append(out, s)
		break
	}
	return out
}

func (r RowRenderer) join(segs []segment) string {
	var sb strings.Builder
	for _, s := range segs {
		if s.style == nil || r.Plain || r.Theme.Renderer == nil {
			sb.WriteString(s.text)
			continue
		}
		sb.WriteString(s.style.Render(s.text))
	}
	return sb.String()
}
