package datasource

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/loader"
)

// Default shape of "synthetic" without arguments.
const (
	DefaultSyntheticFanout = 200
	DefaultSyntheticDepth  = 4
)

// SyntheticConfig shapes a synthetic tree.
type SyntheticConfig struct {
	Fanout  int
	Depth   int
	Seed    int64
	Latency time.Duration
}

// ParseSyntheticArg parses "FANOUT,DEPTH". Missing parts keep their defaults.
func ParseSyntheticArg(arg string) (SyntheticConfig, error) {
	cfg := SyntheticConfig{Fanout: DefaultSyntheticFanout, Depth: DefaultSyntheticDepth, Seed: 1}
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return cfg, nil
	}
	parts := strings.Split(arg, ",")
	if len(parts) > 2 {
		return cfg, fmt.Errorf("synthetic source: want FANOUT,DEPTH, got %q", arg)
	}
	vals := []*int{&cfg.Fanout, &cfg.Depth}
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil || v < 1 {
			return cfg, fmt.Errorf("synthetic source: invalid number %q", part)
		}
		*vals[i] = v
	}
	return cfg, nil
}

// SyntheticSource generates a tree where every node at level < Depth has
// exactly Fanout children. Keys are child positions, labels are derived
// from a rand.Rand seeded by the parent path so pages are stable.
type SyntheticSource struct {
	cfg SyntheticConfig
}

// NewSyntheticSource returns a source shaped by cfg.
func NewSyntheticSource(cfg SyntheticConfig) *SyntheticSource {
	if cfg.Fanout < 1 {
		cfg.Fanout = DefaultSyntheticFanout
	}
	if cfg.Depth < 1 {
		cfg.Depth = DefaultSyntheticDepth
	}
	return &SyntheticSource{cfg: cfg}
}

// Name describes the shape.
func (s *SyntheticSource) Name() string {
	return fmt.Sprintf("synthetic:%d,%d", s.cfg.Fanout, s.cfg.Depth)
}

// Config returns the effective configuration.
func (s *SyntheticSource) Config() SyntheticConfig { return s.cfg }

var syntheticWords = []string{
	"alpha", "bravo", "cedar", "delta", "ember", "fjord", "garnet", "harbor",
	"indigo", "juniper", "kestrel", "lumen", "meadow", "nimbus", "onyx", "pylon",
	"quartz", "raven", "sierra", "tundra", "umber", "vertex", "willow", "zephyr",
}

// Children returns one page of the children of parent, after the
// configured latency.
func (s *SyntheticSource) Children(ctx context.Context, parent forest.KeyPath, offset, limit int) (loader.Page, error) {
	if s.cfg.Latency > 0 {
		timer := time.NewTimer(s.cfg.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return loader.Page{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return loader.Page{}, err
	}

	if len(parent) >= s.cfg.Depth {
		return loader.Page{}, nil
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = loader.DefaultPageSize
	}
	end := offset + limit
	if end > s.cfg.Fanout {
		end = s.cfg.Fanout
	}
	if offset >= end {
		return loader.Page{}, nil
	}

	r := rand.New(rand.NewSource(s.cfg.Seed ^ pathHash(parent)))
	// Advance to offset so a page does not depend on earlier pages.
	for i := 0; i < offset; i++ {
		r.Intn(len(syntheticWords))
	}
	leaf := len(parent)+1 >= s.cfg.Depth
	page := loader.Page{HasMore: end < s.cfg.Fanout}
	for i := offset; i < end; i++ {
		word := syntheticWords[r.Intn(len(syntheticWords))]
		page.Entries = append(page.Entries, loader.Entry{
			Key:    strconv.Itoa(i),
			Label:  fmt.Sprintf("%s %d", word, i),
			Detail: fmt.Sprintf("level %d", len(parent)+1),
			Leaf:   leaf,
		})
	}
	return page, nil
}

// Close is a no-op.
func (s *SyntheticSource) Close() error { return nil }

func pathHash(p forest.KeyPath) int64 {
	h := fnv.New64a()
	h.Write([]byte(p.String()))
	return int64(h.Sum64())
}
