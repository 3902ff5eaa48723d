package ui_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/lazytree"
	"github.com/vanderheijden86/lazytree/pkg/loader"
	"github.com/vanderheijden86/lazytree/pkg/testutil"
	"github.com/vanderheijden86/lazytree/pkg/ui"
)

// treeSource serves the children of a prebuilt tree page by page.
type treeSource struct {
	tree    *forest.Tree
	fail    map[string]error
	panicOn string
	delay   time.Duration

	// failures makes the first N fetches fail.
	failures atomic.Int64
	calls    atomic.Int64
}

func newTreeSource(tree *forest.Tree) *treeSource {
	return &treeSource{tree: tree, fail: map[string]error{}}
}

func outlineSource(text string) *treeSource {
	return newTreeSource(testutil.Outline(text))
}

func (s *treeSource) Name() string { return "test" }

func (s *treeSource) Close() error { return nil }

func (s *treeSource) Children(ctx context.Context, parent forest.KeyPath, offset, limit int) (loader.Page, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return loader.Page{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	key := parent.String()
	if key == s.panicOn && s.panicOn != "" {
		panic("source exploded")
	}
	if err := s.fail[key]; err != nil {
		return loader.Page{}, err
	}
	if s.failures.Add(-1) >= 0 {
		return loader.Page{}, fmt.Errorf("transient failure")
	}
	n, ok := s.tree.FromKeyPath(parent)
	if !ok {
		return loader.Page{}, fmt.Errorf("no node %q", key)
	}
	kids := s.tree.Children(n)
	end := min(len(kids), offset+limit)
	page := loader.Page{HasMore: end < len(kids)}
	for _, c := range kids[min(offset, end):end] {
		page.Entries = append(page.Entries, loader.Entry{Key: c.Key, Label: c.Label, Detail: c.Detail, Leaf: c.Leaf})
	}
	return page, nil
}

func newModel(t *testing.T, opts ui.Options) ui.Model {
	t.Helper()
	opts.Plain = true
	m, err := ui.NewModel(opts)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

// update feeds one message and returns the new model.
func update(m ui.Model, msg tea.Msg) ui.Model {
	next, _ := m.Update(msg)
	return next.(ui.Model)
}

// drain delivers worker messages until no fetch is in flight.
func drain(t *testing.T, m ui.Model) ui.Model {
	t.Helper()
	w := m.Worker()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case msg := <-w.Messages():
			m = update(m, msg)
			continue
		case <-deadline:
			t.Fatalf("timed out with %d fetches in flight", w.InFlight())
		default:
		}
		if w.InFlight() == 0 && len(w.Messages()) == 0 {
			return m
		}
		time.Sleep(time.Millisecond)
	}
}

func press(m ui.Model, keys ...string) ui.Model {
	for _, k := range keys {
		m = update(m, keyMsg(k))
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// shape renders rows as "depth:kind:key" for compact comparison.
func shape(rows []lazytree.Row[*forest.Node]) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		switch r.Kind {
		case lazytree.ItemRow:
			out[i] = fmt.Sprintf("%d:%s", r.Depth, r.Node.Key)
		default:
			out[i] = fmt.Sprintf("%d:%s", r.Depth, r.Kind)
		}
	}
	return out
}

func assertShape(t *testing.T, rows []lazytree.Row[*forest.Node], want ...string) {
	t.Helper()
	got := shape(rows)
	if len(got) != len(want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rows = %v, want %v", got, want)
		}
	}
}
