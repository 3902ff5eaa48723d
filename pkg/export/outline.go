// Package export writes the visible rows of a tree as a Markdown outline or
// as JSON.
package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/lazytree"
	"github.com/vanderheijden86/lazytree/pkg/selection"
)

// Record is one exported row.
type Record struct {
	Depth           int    `json:"depth"`
	Kind            string `json:"kind"`
	KeyPath         string `json:"key_path,omitempty"`
	Label           string `json:"label,omitempty"`
	Leaf            bool   `json:"leaf,omitempty"`
	Expanded        bool   `json:"expanded,omitempty"`
	DefaultSelected bool   `json:"default_selected,omitempty"`
	Check           string `json:"check,omitempty"`
}

// FromEngine snapshots the engine's current rows. Check is left empty when
// checkboxes are hidden.
func FromEngine(e *lazytree.Engine[*forest.Node]) []Record {
	hide := e.Options().HideCheckboxes
	rows := e.Rows()
	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		rec := Record{Depth: r.Depth, Kind: r.Kind.String()}
		if r.HasNode() && r.Node != nil {
			rec.KeyPath = r.Node.Path().String()
		}
		if r.Kind == lazytree.ItemRow {
			rec.Label = r.Node.Label
			rec.Leaf = e.IsLeaf(r.Node)
			rec.Expanded = r.Expanded
			rec.DefaultSelected = r.DefaultSelected
			if !hide {
				rec.Check = e.CheckState(r).String()
			}
		}
		records = append(records, rec)
	}
	return records
}

// OutlineOptions tunes Markdown output.
type OutlineOptions struct {
	Title string
	// IndentWidth is the number of spaces per level. Zero means 2.
	IndentWidth int
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"\n", " ",
)

// Markdown renders records as a nested list. Item rows carry a task marker
// when they have a check state.
func Markdown(records []Record, opts OutlineOptions) string {
	indent := opts.IndentWidth
	if indent <= 0 {
		indent = 2
	}

	var sb strings.Builder
	if opts.Title != "" {
		sb.WriteString(fmt.Sprintf("# %s\n\n", markdownEscaper.Replace(opts.Title)))
	}
	if len(records) == 0 {
		sb.WriteString("*No items*\n")
		return sb.String()
	}
	for _, rec := range records {
		sb.WriteString(strings.Repeat(" ", rec.Depth*indent))
		sb.WriteString("- ")
		switch rec.Kind {
		case lazytree.LoadingRow.String():
			sb.WriteString("*loading…*")
		case lazytree.AnchorRow.String():
			sb.WriteString("*more…*")
		default:
			if marker := checkMarker(rec.Check); marker != "" {
				sb.WriteString(marker)
				sb.WriteByte(' ')
			}
			sb.WriteString(markdownEscaper.Replace(rec.Label))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func checkMarker(check string) string {
	switch check {
	case selection.Checked.String(), selection.CheckedLocked.String():
		return "[x]"
	case selection.Partial.String():
		return "[-]"
	case selection.Unchecked.String():
		return "[ ]"
	default:
		return ""
	}
}

// SaveMarkdownToFile writes the outline to filename.
func SaveMarkdownToFile(records []Record, opts OutlineOptions, filename string) error {
	return os.WriteFile(filename, []byte(Markdown(records, opts)), 0644)
}
