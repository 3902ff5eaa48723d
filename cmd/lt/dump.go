package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vanderheijden86/lazytree/pkg/config"
	"github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/export"
	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/lazytree"
	"github.com/vanderheijden86/lazytree/pkg/loader"
	"github.com/vanderheijden86/lazytree/pkg/selection"
)

type dumpOptions struct {
	Format string // md or json
	Depth  int
	Output string // file; empty writes to w
}

// runDump loads Depth levels of src synchronously, expands every node whose
// children were loaded and writes the resulting rows.
func runDump(ctx context.Context, w io.Writer, src loader.Source, cfg config.Config, mode selection.Mode[*forest.Node], opts dumpOptions) error {
	format := strings.ToLower(opts.Format)
	switch format {
	case "md", "markdown", "json":
	default:
		return fmt.Errorf("unknown dump format %q (want md or json)", opts.Format)
	}

	store := loader.NewStore(forest.NewTree(src.Name()), cfg.Loading.PageSize)
	expanded := make(map[string]bool)
	start := time.Now()
	err := loader.LoadDepth(ctx, store, src, opts.Depth, func(n *forest.Node) {
		expanded[n.Path().String()] = true
	})
	if err != nil {
		return err
	}
	debug.LogTiming(fmt.Sprintf("dump: loading %d levels", opts.Depth), time.Since(start))

	e := lazytree.New(lazytree.Props[*forest.Node]{
		Forest: store.Tree(),
		IsLeaf: func(n *forest.Node) (bool, bool) { return n.Leaf, true },
		IsExpanded: func(n *forest.Node) (bool, bool) {
			return expanded[n.Path().String()], true
		},
		ChildrenStatus: store.Status,
		Mode:           mode,
	}, cfg.TreeOptions())
	records := export.FromEngine(e)

	if format == "json" {
		if opts.Output == "" {
			return export.WriteJSON(w, records)
		}
		f, err := os.Create(opts.Output)
		if err != nil {
			return err
		}
		if err := export.WriteJSON(f, records); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	outline := export.OutlineOptions{Title: src.Name(), IndentWidth: cfg.Tree.IndentWidth}
	if opts.Output != "" {
		return export.SaveMarkdownToFile(records, outline, opts.Output)
	}
	return export.RenderMarkdown(w, export.Markdown(records, outline), 0)
}
