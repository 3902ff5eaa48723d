// Package testutil provides forest fixtures for tests and benchmarks.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/vanderheijden86/lazytree/pkg/forest"
)

// GeneratorConfig controls random forest generation.
type GeneratorConfig struct {
	Seed      int64   // Random seed for determinism (0 = use current time)
	KeyPrefix string  // Prefix for node keys (default: "n")
	MaxDepth  int     // Deepest level below the root (default: 3)
	MaxFanout int     // Upper bound of children per node (default: 5)
	LeafRatio float64 // Probability that a non-bottom node is a leaf (default: 0.3)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:      42,
		KeyPrefix: "n",
		MaxDepth:  3,
		MaxFanout: 5,
		LeafRatio: 0.3,
	}
}

// Generator creates forest fixtures.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "n"
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 3
	}
	if cfg.MaxFanout <= 0 {
		cfg.MaxFanout = 5
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Tree generates a random forest. Keys are unique across the whole tree,
// so a key also identifies its node in assertions.
func (g *Generator) Tree() *forest.Tree {
	tree := forest.NewTree("root")
	next := 0
	var grow func(parent *forest.Node, depth int)
	grow = func(parent *forest.Node, depth int) {
		fanout := 1 + g.rng.Intn(g.cfg.MaxFanout)
		for i := 0; i < fanout; i++ {
			key := fmt.Sprintf("%s%d", g.cfg.KeyPrefix, next)
			next++
			leaf := depth == g.cfg.MaxDepth-1 || g.rng.Float64() < g.cfg.LeafRatio
			n := &forest.Node{Key: key, Label: strings.ToUpper(key), Leaf: leaf}
			if err := tree.Append(parent, n); err != nil {
				panic(err)
			}
			if !leaf {
				grow(n, depth+1)
			}
		}
	}
	grow(tree.Root(), 0)
	return tree
}

// Wide returns a root with n leaf children named c0..c{n-1}.
func Wide(n int) *forest.Tree {
	tree := forest.NewTree("root")
	nodes := make([]*forest.Node, n)
	for i := range nodes {
		key := fmt.Sprintf("c%d", i)
		nodes[i] = &forest.Node{Key: key, Label: key, Leaf: true}
	}
	if err := tree.Append(tree.Root(), nodes...); err != nil {
		panic(err)
	}
	return tree
}

// Outline builds a tree from an indented outline, two spaces per level:
//
//	A
//	  A1
//	  A2
//	B
//
// A trailing "." marks a leaf ("B."). Keys are the trimmed line text.
func Outline(text string) *forest.Tree {
	tree := forest.NewTree("root")
	stack := []*forest.Node{tree.Root()}
	for lineNo, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " "))
		if indent%2 != 0 {
			panic(fmt.Sprintf("outline line %d: odd indentation", lineNo+1))
		}
		depth := indent / 2
		if depth > len(stack)-1 {
			panic(fmt.Sprintf("outline line %d: skipped a level", lineNo+1))
		}
		stack = stack[:depth+1]

		leaf := strings.HasSuffix(trimmed, ".")
		key := strings.TrimSuffix(trimmed, ".")
		n := &forest.Node{Key: key, Label: key, Leaf: leaf}
		if err := tree.Append(stack[depth], n); err != nil {
			panic(fmt.Sprintf("outline line %d: %v", lineNo+1, err))
		}
		stack = append(stack, n)
	}
	return tree
}
