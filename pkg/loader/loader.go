// Package loader owns the paged children state of a lazily loaded tree and
// the plumbing that fetches pages from a Source.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/metrics"
)

// DefaultPageSize is the number of children fetched per request.
const DefaultPageSize = 50

// Entry is one child returned by a Source.
type Entry struct {
	Key    string
	Label  string
	Detail string
	Leaf   bool
}

// Page is a slice of a node's children. HasMore reports whether children
// beyond this page exist.
type Page struct {
	Entries []Entry
	HasMore bool
}

// Source produces the children of a node one page at a time. Parent is the
// key-path of the node; the root has the empty path.
type Source interface {
	Name() string
	Children(ctx context.Context, parent forest.KeyPath, offset, limit int) (Page, error)
	Close() error
}

// Request asks for one page of children. Generation ties the request to the
// node state it was issued for so results for invalidated nodes are dropped.
type Request struct {
	Path       forest.KeyPath
	Offset     int
	Limit      int
	Generation uint64
}

// Key identifies the request for duplicate suppression.
func (r Request) Key() string {
	return fmt.Sprintf("%s#%d@%d", r.Path.String(), r.Offset, r.Generation)
}

// Result is the outcome of a Request.
type Result struct {
	Request
	Page    Page
	Err     error
	Elapsed time.Duration
}

// Fetch runs req against src on the calling goroutine.
func Fetch(ctx context.Context, src Source, req Request) Result {
	defer metrics.Timer(metrics.PageFetch)()
	start := time.Now()
	page, err := src.Children(ctx, req.Path, req.Offset, req.Limit)
	res := Result{Request: req, Page: page, Elapsed: time.Since(start)}
	if err != nil {
		res.Err = fmt.Errorf("loading children of %q: %w", req.Path.String(), err)
	}
	debug.Log("loader: %s offset=%d got=%d more=%v in %v", req.Path.String(), req.Offset, len(page.Entries), page.HasMore, res.Elapsed)
	return res
}

// LoadDepth synchronously loads every page of the root's children and of
// their descendants down to depth levels below the root. visit is called for
// every node whose children were loaded. It stops at the first failed fetch.
func LoadDepth(ctx context.Context, s *Store, src Source, depth int, visit func(*forest.Node)) error {
	level := []*forest.Node{s.Tree().Root()}
	for d := 0; d < depth && len(level) > 0; d++ {
		var next []*forest.Node
		for _, n := range level {
			if err := loadAll(ctx, s, src, n); err != nil {
				return err
			}
			if visit != nil && n != s.Tree().Root() && !n.Leaf {
				visit(n)
			}
			next = append(next, s.Tree().Children(n)...)
		}
		level = next
	}
	return nil
}

func loadAll(ctx context.Context, s *Store, src Source, n *forest.Node) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		req, ok := s.BeginLoad(n)
		if !ok {
			return s.Err(n)
		}
		if err := s.Apply(Fetch(ctx, src, req)); err != nil {
			return err
		}
	}
}
