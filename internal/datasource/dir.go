package datasource

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/loader"
)

// DirSource lists a directory tree on the local filesystem. Keys are entry
// names, so a node's key-path is its path relative to the root.
type DirSource struct {
	root    string
	ignores []ignorePattern
}

type ignorePattern struct {
	glob    string
	dirOnly bool
	// anchored patterns contain a slash and match the relative path.
	anchored bool
}

// NewDirSource opens the directory at path.
func NewDirSource(path string) (*DirSource, error) {
	abs, err := filepath.Abs(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("opening directory source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening directory source: %s is not a directory", abs)
	}
	ignores, err := readGitignore(filepath.Join(abs, ".gitignore"))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading .gitignore: %w", err)
	}
	return &DirSource{root: abs, ignores: ignores}, nil
}

// Name returns the root directory.
func (s *DirSource) Name() string { return s.root }

// Root returns the absolute root directory.
func (s *DirSource) Root() string { return s.root }

// LocalPath maps a key-path to the directory it names.
func (s *DirSource) LocalPath(p forest.KeyPath) string {
	return filepath.Join(append([]string{s.root}, p...)...)
}

// KeyPathFor maps a directory inside the root back to its key-path.
func (s *DirSource) KeyPathFor(dir string) (forest.KeyPath, bool) {
	rel, err := filepath.Rel(s.root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, false
	}
	if rel == "." {
		return forest.KeyPath{}, true
	}
	return forest.KeyPath(strings.Split(filepath.ToSlash(rel), "/")), true
}

// Children lists one page of the directory named by parent.
func (s *DirSource) Children(ctx context.Context, parent forest.KeyPath, offset, limit int) (loader.Page, error) {
	if err := ctx.Err(); err != nil {
		return loader.Page{}, err
	}
	dir := s.LocalPath(parent)
	des, err := os.ReadDir(dir)
	if err != nil {
		return loader.Page{}, err
	}

	entries := make([]loader.Entry, 0, len(des))
	for _, de := range des {
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		rel := strings.Join(append(append([]string{}, parent...), name), "/")
		isDir := de.IsDir()
		if de.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(dir, name)); err == nil {
				isDir = info.IsDir()
			}
		}
		if s.ignored(name, rel, isDir) {
			continue
		}
		e := loader.Entry{Key: name, Label: name, Leaf: !isDir}
		if !isDir {
			if info, err := de.Info(); err == nil {
				e.Detail = humanSize(info.Size())
			}
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Leaf != entries[j].Leaf {
			return !entries[i].Leaf
		}
		return entries[i].Key < entries[j].Key
	})

	page := paginate(entries, offset, limit)
	debug.Log("dir: %s offset=%d limit=%d total=%d", dir, offset, limit, len(entries))
	return page, nil
}

// Close is a no-op.
func (s *DirSource) Close() error { return nil }

func (s *DirSource) ignored(name, rel string, isDir bool) bool {
	for _, p := range s.ignores {
		if p.dirOnly && !isDir {
			continue
		}
		target := name
		if p.anchored {
			target = rel
		}
		if ok, _ := filepath.Match(p.glob, target); ok {
			return true
		}
	}
	return false
}

// readGitignore parses the root .gitignore. Negations are not supported.
func readGitignore(path string) ([]ignorePattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []ignorePattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p, ok := parseIgnoreLine(scanner.Text()); ok {
			patterns = append(patterns, p)
		}
	}
	return patterns, scanner.Err()
}

func parseIgnoreLine(line string) (ignorePattern, bool) {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return ignorePattern{}, false
	}
	var p ignorePattern
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.Contains(line, "/") {
		p.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if line == "" {
		return ignorePattern{}, false
	}
	p.glob = line
	return p, true
}

func paginate(entries []loader.Entry, offset, limit int) loader.Page {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return loader.Page{}
	}
	end := len(entries)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]loader.Entry, end-offset)
	copy(out, entries[offset:end])
	return loader.Page{Entries: out, HasMore: end < len(entries)}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
