// Package forest provides the hierarchical data structure browsed by the
// lazy tree: a single synthetic root whose descendants are addressed by
// key-paths, with children that can arrive one page at a time.
package forest

import (
	"net/url"
	"strings"
)

// KeyPath identifies a node by the keys of every node on the way down from
// the root. The root itself has the empty key-path.
type KeyPath []string

// ParseKeyPath parses the slash-separated form produced by KeyPath.String.
// Leading and trailing slashes are ignored, so "/a/b" and "a/b/" are equal.
func ParseKeyPath(s string) (KeyPath, error) {
	s = strings.Trim(s, "/")
	if s == "" {
		return KeyPath{}, nil
	}
	parts := strings.Split(s, "/")
	path := make(KeyPath, 0, len(parts))
	for _, p := range parts {
		key, err := url.PathUnescape(p)
		if err != nil {
			return nil, err
		}
		path = append(path, key)
	}
	return path, nil
}

// String joins the escaped keys with "/". Keys containing a slash survive
// the round trip through ParseKeyPath.
func (p KeyPath) String() string {
	escaped := make([]string, len(p))
	for i, key := range p {
		escaped[i] = url.PathEscape(key)
	}
	return strings.Join(escaped, "/")
}

// IsRoot reports whether the path addresses the root.
func (p KeyPath) IsRoot() bool { return len(p) == 0 }

// Parent returns the path of the parent node. The root is its own parent.
func (p KeyPath) Parent() KeyPath {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1:len(p)-1]
}

// Child returns a new path one level below p.
func (p KeyPath) Child(key string) KeyPath {
	out := make(KeyPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, key)
}

// HasPrefix reports whether prefix is p or an ancestor of p.
func (p KeyPath) HasPrefix(prefix KeyPath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both paths address the same node.
func (p KeyPath) Equal(other KeyPath) bool {
	return len(p) == len(other) && p.HasPrefix(other)
}

// Forest is the read side of a tree as seen by the flattener and the
// selection policies.
type Forest[N comparable] interface {
	Root() N
	Children(n N) []N
	KeyPath(n N) KeyPath
	FromKeyPath(p KeyPath) (N, bool)
}
