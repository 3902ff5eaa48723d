package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/lazytree"
)

// ErrStale is returned by Apply for results of invalidated requests.
var ErrStale = errors.New("stale page result")

type childrenState struct {
	loading    bool
	exhausted  bool
	offset     int
	err        error
	generation uint64
}

// Store tracks which children of each node are loaded. It mutates the tree
// it wraps and, like the tree, must only be used from one goroutine.
type Store struct {
	tree     *forest.Tree
	pageSize int
	states   map[string]*childrenState

	// generation only grows so a recreated path never reuses one.
	generation uint64
}

// NewStore wraps tree. Non-positive page sizes use DefaultPageSize.
func NewStore(tree *forest.Tree, pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{
		tree:     tree,
		pageSize: pageSize,
		states:   make(map[string]*childrenState),
	}
}

// Tree returns the wrapped tree.
func (s *Store) Tree() *forest.Tree { return s.tree }

// PageSize returns the number of children requested per page.
func (s *Store) PageSize() int { return s.pageSize }

func (s *Store) state(n *forest.Node) *childrenState {
	key := n.Path().String()
	st, ok := s.states[key]
	if !ok {
		st = s.newState()
		s.states[key] = st
	}
	return st
}

func (s *Store) newState() *childrenState {
	s.generation++
	return &childrenState{generation: s.generation}
}

// Status reports the children status of n. Nodes never asked for are
// assumed to have more children unless they are leaves; failed nodes report
// nothing more until they are invalidated.
func (s *Store) Status(n *forest.Node) lazytree.ChildrenStatus {
	if n == nil || n.Leaf {
		return lazytree.ChildrenStatus{}
	}
	st, ok := s.states[n.Path().String()]
	if !ok {
		return lazytree.ChildrenStatus{HasMoreItems: true}
	}
	return lazytree.ChildrenStatus{
		Loading:      st.loading,
		HasMoreItems: !st.exhausted && st.err == nil,
	}
}

// Err returns the error of the last failed fetch for n.
func (s *Store) Err(n *forest.Node) error {
	if n == nil {
		return nil
	}
	if st, ok := s.states[n.Path().String()]; ok {
		return st.err
	}
	return nil
}

// BeginLoad marks n as loading and returns the request for its next page.
// It reports false when nothing should be fetched.
func (s *Store) BeginLoad(n *forest.Node) (Request, bool) {
	if n == nil || n.Leaf || n.Path() == nil {
		return Request{}, false
	}
	st := s.state(n)
	if st.loading || st.exhausted || st.err != nil {
		return Request{}, false
	}
	st.loading = true
	return Request{
		Path:       append(forest.KeyPath(nil), n.Path()...),
		Offset:     st.offset,
		Limit:      s.pageSize,
		Generation: st.generation,
	}, true
}

// Apply records the result of a request started by BeginLoad. A failed
// fetch is stored on the node and also returned.
func (s *Store) Apply(res Result) error {
	n, ok := s.tree.FromKeyPath(res.Path)
	if !ok {
		return fmt.Errorf("%w: %q no longer exists", ErrStale, res.Path.String())
	}
	st, ok := s.states[n.Path().String()]
	if !ok || st.generation != res.Generation || !st.loading || st.offset != res.Offset {
		return fmt.Errorf("%w: %q", ErrStale, res.Path.String())
	}
	st.loading = false

	if res.Err != nil {
		st.err = res.Err
		return res.Err
	}

	nodes := make([]*forest.Node, 0, len(res.Page.Entries))
	for _, e := range res.Page.Entries {
		nodes = append(nodes, &forest.Node{Key: e.Key, Label: e.Label, Detail: e.Detail, Leaf: e.Leaf})
	}
	if err := s.tree.Append(n, nodes...); err != nil {
		st.err = fmt.Errorf("adding children of %q: %w", res.Path.String(), err)
		return st.err
	}
	debug.LogIf(len(nodes) == 0 && res.Page.HasMore, "store: %q returned an empty page claiming more", res.Path.String())
	st.offset += len(nodes)
	// A page without entries cannot advance the offset, so it ends the
	// children even if the source claims more.
	st.exhausted = !res.Page.HasMore || len(nodes) == 0
	return nil
}

// Invalidate drops the loaded children of n and everything known about
// them. Results of requests already in flight for n become stale.
func (s *Store) Invalidate(n *forest.Node) {
	if n == nil || n.Path() == nil {
		return
	}
	prefix := n.Path().String()
	for key := range s.states {
		if key == prefix || prefix == "" || strings.HasPrefix(key, prefix+"/") {
			delete(s.states, key)
		}
	}
	s.tree.ResetChildren(n)
	s.states[prefix] = s.newState()
}

// Stats returns the number of loaded nodes, nodes currently loading and
// nodes whose last fetch failed.
func (s *Store) Stats() (loaded, loading, failed int) {
	for _, st := range s.states {
		if st.loading {
			loading++
		}
		if st.err != nil {
			failed++
		}
	}
	return s.tree.Len(), loading, failed
}
