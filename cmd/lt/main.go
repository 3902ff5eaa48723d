package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	_ "github.com/vanderheijden86/lazytree/internal/ttyguard"

	"github.com/vanderheijden86/lazytree/internal/datasource"
	"github.com/vanderheijden86/lazytree/pkg/config"
	"github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/metrics"
	"github.com/vanderheijden86/lazytree/pkg/selection"
	"github.com/vanderheijden86/lazytree/pkg/ui"
	"github.com/vanderheijden86/lazytree/pkg/version"
	"github.com/vanderheijden86/lazytree/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// cliFlags holds the parsed command line. set records which flags were given
// so only those override the config file.
type cliFlags struct {
	source         string
	configPath     string
	mode           string
	hideCheckboxes bool
	expanded       bool
	itemHeight     int
	pageSize       int
	latency        time.Duration
	noWatch        bool
	gotoPath       string

	dump      string
	dumpDepth int
	output    string

	seedSQLite string
	seedFanout int
	seedDepth  int

	initConfig  bool
	metricsPath string
	cpuProfile  string
	version     bool
	help        bool

	set map[string]bool
}

func newFlagSet(f *cliFlags, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("lt", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&f.source, "source", "", "Tree source: dir:PATH, sqlite:FILE or synthetic:FANOUT,DEPTH")
	fs.StringVar(&f.configPath, "config", "", "Config file (default $LT_CONFIG or ~/.config/lt/config.yaml)")
	fs.StringVar(&f.mode, "mode", "", "Selection mode: multiple, single or readonly")
	fs.BoolVar(&f.hideCheckboxes, "hide-checkboxes", false, "Hide checkboxes")
	fs.BoolVar(&f.expanded, "expanded", false, "Expand nodes by default")
	fs.IntVar(&f.itemHeight, "item-height", 0, "Row height in lines")
	fs.IntVar(&f.pageSize, "page-size", 0, "Children fetched per request")
	fs.DurationVar(&f.latency, "latency", 0, "Artificial delay per synthetic fetch (e.g. 200ms)")
	fs.BoolVar(&f.noWatch, "no-watch", false, "Do not watch expanded directories")
	fs.StringVar(&f.gotoPath, "goto", "", "Key-path to scroll to once loaded (e.g. src/pkg)")
	fs.StringVar(&f.dump, "dump", "", "Print the tree as md or json instead of starting the TUI")
	fs.IntVar(&f.dumpDepth, "dump-depth", 2, "Levels loaded and expanded for --dump")
	fs.StringVar(&f.output, "output", "", "Write --dump output to FILE instead of stdout")
	fs.StringVar(&f.seedSQLite, "seed-sqlite", "", "Create a SQLite database with a synthetic nodes table and exit")
	fs.IntVar(&f.seedFanout, "seed-fanout", 20, "Children per node for --seed-sqlite")
	fs.IntVar(&f.seedDepth, "seed-depth", 3, "Levels for --seed-sqlite")
	fs.BoolVar(&f.initConfig, "init-config", false, "Interactively write the config file and exit")
	fs.StringVar(&f.metricsPath, "metrics", "", "Write timing metrics as JSON to FILE on exit (- for stderr)")
	fs.StringVar(&f.cpuProfile, "cpu-profile", "", "Write CPU profile to file")
	fs.BoolVar(&f.version, "version", false, "Show version")
	fs.BoolVar(&f.help, "help", false, "Show help")
	return fs
}

func parseFlags(args []string, out io.Writer) (cliFlags, *flag.FlagSet, error) {
	var f cliFlags
	fs := newFlagSet(&f, out)
	if err := fs.Parse(args); err != nil {
		return f, fs, err
	}
	f.set = make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, fs, nil
}

// applyFlags overlays the flags given on the command line onto cfg.
func applyFlags(cfg config.Config, f cliFlags) config.Config {
	if f.set["source"] {
		cfg.Source = f.source
	}
	if f.set["mode"] {
		cfg.Selection.Mode = f.mode
	}
	if f.set["hide-checkboxes"] {
		cfg.Tree.HideCheckboxes = f.hideCheckboxes
	}
	if f.set["expanded"] {
		cfg.Tree.ExpandedByDefault = f.expanded
	}
	if f.set["item-height"] {
		cfg.Tree.ItemHeight = f.itemHeight
	}
	if f.set["page-size"] {
		cfg.Loading.PageSize = f.pageSize
	}
	if f.set["latency"] {
		cfg.Loading.LatencyMS = int(f.latency / time.Millisecond)
	}
	if f.set["no-watch"] {
		cfg.Watch.Enabled = !f.noWatch
	}
	return cfg
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	f, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if f.help {
		fmt.Fprintln(stdout, "Usage: lt [options]")
		fmt.Fprintln(stdout, "\nBrowse large trees that load one page of children at a time.")
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}

	if f.version {
		fmt.Fprintf(stdout, "lt %s\n", version.Version)
		return 0
	}

	// CPU profiling support
	if f.cpuProfile != "" {
		pf, err := os.Create(f.cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "Could not create CPU profile: %v\n", err)
			return 1
		}
		defer pf.Close()
		if err := pprof.StartCPUProfile(pf); err != nil {
			fmt.Fprintf(stderr, "Could not start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	if f.metricsPath != "" {
		defer writeMetrics(f.metricsPath, stderr)
	}

	if f.seedSQLite != "" {
		n, err := datasource.Seed(f.seedSQLite, f.seedFanout, f.seedDepth)
		if err != nil {
			fmt.Fprintf(stderr, "Error seeding %s: %v\n", f.seedSQLite, err)
			return 1
		}
		fmt.Fprintf(stdout, "Wrote %d nodes to %s\n", n, f.seedSQLite)
		return 0
	}

	cfgPath := f.configPath
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	cfg = applyFlags(cfg, f)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid options: %v\n", err)
		return 2
	}

	if f.initConfig {
		cfg, err = config.RunWizard(stdout, cfg)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if err := config.SaveTo(cfg, cfgPath); err != nil {
			fmt.Fprintf(stderr, "Error saving config: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Saved %s\n", cfgPath)
		return 0
	}

	mode, err := selection.ParseMode[*forest.Node](cfg.Selection.Mode)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	var initialPath forest.KeyPath
	if f.gotoPath != "" {
		initialPath, err = forest.ParseKeyPath(f.gotoPath)
		if err != nil {
			fmt.Fprintf(stderr, "Invalid --goto path %q: %v\n", f.gotoPath, err)
			return 2
		}
	}

	src, err := datasource.Open(cfg.Source, datasource.Options{Latency: cfg.Latency()})
	if err != nil {
		fmt.Fprintf(stderr, "Error opening source: %v\n", err)
		return 1
	}
	defer src.Close()

	if f.dump != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err := runDump(ctx, stdout, src, cfg, mode, dumpOptions{
			Format: f.dump,
			Depth:  f.dumpDepth,
			Output: f.output,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if debug.Enabled() {
		if logFile, err := openDebugLog(); err == nil {
			defer logFile.Close()
			debug.SetOutput(logFile)
		}
		debug.Section("lt " + version.Version)
		debug.Dump("config", cfg)
	}

	var w *watcher.Watcher
	if dir, ok := src.(*datasource.DirSource); ok && cfg.Watch.Enabled {
		w, err = watcher.NewWatcher(dir.Root(),
			watcher.WithDebounceDuration(cfg.Debounce()),
			watcher.WithOnError(func(err error) { debug.Log("watcher: %v", err) }),
		)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			fmt.Fprintf(stderr, "Warning: not watching %s: %v\n", dir.Root(), err)
			w = nil
		} else {
			defer w.Stop()
		}
	}

	m, err := ui.NewModel(ui.Options{
		Source:            src,
		PageSize:          cfg.Loading.PageSize,
		MaxConcurrent:     cfg.Loading.MaxConcurrent,
		MaxRetries:        cfg.Loading.MaxRetries,
		Mode:              mode,
		Tree:              cfg.TreeOptions(),
		IndentWidth:       cfg.Tree.IndentWidth,
		ExpandedByDefault: cfg.Tree.ExpandedByDefault,
		Watcher:           w,
		InitialPath:       initialPath,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer m.Close()

	if err := runTUIProgram(m); err != nil {
		fmt.Fprintf(stderr, "Error running lt: %v\n", err)
		return 1
	}
	return 0
}

// openDebugLog sends Bubble Tea's and lt's debug output to LT_DEBUG_FILE, or
// to debug.log in the state directory.
func openDebugLog() (*os.File, error) {
	path := os.Getenv("LT_DEBUG_FILE")
	if path == "" {
		path = filepath.Join(config.StateDir(), "debug.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return tea.LogToFile(path, "lt")
}

func writeMetrics(path string, stderr io.Writer) {
	if path == "-" {
		if err := metrics.WriteJSON(stderr); err != nil {
			fmt.Fprintf(stderr, "Error writing metrics: %v\n", err)
		}
		return
	}
	out, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error writing metrics: %v\n", err)
		return
	}
	defer out.Close()
	if err := metrics.WriteJSON(out); err != nil {
		fmt.Fprintf(stderr, "Error writing metrics: %v\n", err)
	}
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set LT_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("LT_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
