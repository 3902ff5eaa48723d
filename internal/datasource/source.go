// Package datasource provides the children sources lt can browse: local
// directory trees, SQLite node tables and a synthetic generator.
package datasource

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vanderheijden86/lazytree/pkg/loader"
)

// SourceType identifies the type of data source.
type SourceType string

const (
	// SourceTypeDir browses a directory tree on the local filesystem.
	SourceTypeDir SourceType = "dir"
	// SourceTypeSQLite reads a nodes table from a SQLite database.
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeSynthetic generates a deterministic tree on the fly.
	SourceTypeSynthetic SourceType = "synthetic"
)

// ErrUnknownSource is returned for source strings Open cannot interpret.
var ErrUnknownSource = errors.New("unknown source type")

// Spec is a parsed source string of the form "type:arg".
type Spec struct {
	Type SourceType
	Arg  string
}

// String returns the source string.
func (s Spec) String() string {
	if s.Arg == "" {
		return string(s.Type)
	}
	return string(s.Type) + ":" + s.Arg
}

// ParseSpec parses "dir:PATH", "sqlite:FILE" or "synthetic[:FANOUT,DEPTH]".
// A bare path without a type prefix is a directory, and a bare path ending
// in .db or .sqlite is a database.
func ParseSpec(raw string) (Spec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Spec{Type: SourceTypeDir, Arg: "."}, nil
	}
	typ, arg, found := strings.Cut(raw, ":")
	if found {
		switch SourceType(strings.ToLower(typ)) {
		case SourceTypeDir:
			if arg == "" {
				arg = "."
			}
			return Spec{Type: SourceTypeDir, Arg: arg}, nil
		case SourceTypeSQLite:
			if arg == "" {
				return Spec{}, fmt.Errorf("sqlite source needs a database path")
			}
			return Spec{Type: SourceTypeSQLite, Arg: arg}, nil
		case SourceTypeSynthetic:
			return Spec{Type: SourceTypeSynthetic, Arg: arg}, nil
		}
		// Windows drive letters look like a type prefix.
		if len(typ) != 1 {
			return Spec{}, fmt.Errorf("%w: %q", ErrUnknownSource, typ)
		}
	}
	if raw == string(SourceTypeSynthetic) {
		return Spec{Type: SourceTypeSynthetic}, nil
	}
	lower := strings.ToLower(raw)
	if strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite") {
		return Spec{Type: SourceTypeSQLite, Arg: raw}, nil
	}
	return Spec{Type: SourceTypeDir, Arg: raw}, nil
}

// Options tune the sources created by Open.
type Options struct {
	// Latency is added to every synthetic fetch to make loading visible.
	Latency time.Duration
}

// Open parses raw and opens the matching source.
func Open(raw string, opts Options) (loader.Source, error) {
	spec, err := ParseSpec(raw)
	if err != nil {
		return nil, err
	}
	return OpenSpec(spec, opts)
}

// OpenSpec opens the source described by spec.
func OpenSpec(spec Spec, opts Options) (loader.Source, error) {
	switch spec.Type {
	case SourceTypeDir:
		return NewDirSource(spec.Arg)
	case SourceTypeSQLite:
		return NewSQLiteSource(spec.Arg)
	case SourceTypeSynthetic:
		cfg, err := ParseSyntheticArg(spec.Arg)
		if err != nil {
			return nil, err
		}
		cfg.Latency = opts.Latency
		return NewSyntheticSource(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, spec.Type)
	}
}
