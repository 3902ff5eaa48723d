package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// isTerminal checks if stdin is connected to a terminal.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// wizardAnswers holds the raw form values before they are parsed into a
// Config.
type wizardAnswers struct {
	Source         string
	Mode           string
	PageSize       string
	HideCheckboxes bool
	Expanded       bool
	Watch          bool
}

func answersFrom(cfg Config) wizardAnswers {
	return wizardAnswers{
		Source:         cfg.Source,
		Mode:           cfg.Selection.Mode,
		PageSize:       strconv.Itoa(cfg.Loading.PageSize),
		HideCheckboxes: cfg.Tree.HideCheckboxes,
		Expanded:       cfg.Tree.ExpandedByDefault,
		Watch:          cfg.Watch.Enabled,
	}
}

// apply copies the answers onto cfg and validates the result.
func (a wizardAnswers) apply(cfg Config) (Config, error) {
	if s := strings.TrimSpace(a.Source); s != "" {
		cfg.Source = s
	}
	if a.Mode != "" {
		cfg.Selection.Mode = a.Mode
	}
	if s := strings.TrimSpace(a.PageSize); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return cfg, fmt.Errorf("page size %q: %w", s, err)
		}
		cfg.Loading.PageSize = n
	}
	cfg.Tree.HideCheckboxes = a.HideCheckboxes
	cfg.Tree.ExpandedByDefault = a.Expanded
	cfg.Watch.Enabled = a.Watch
	return cfg, cfg.Validate()
}

func validatePageSize(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

// RunWizard asks for the common settings, starting from cfg, and returns the
// updated configuration. Nothing is written to disk.
func RunWizard(out io.Writer, cfg Config) (Config, error) {
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "lt configuration")
	fmt.Fprintln(out, "────────────────")
	fmt.Fprintf(out, "Answers are saved to %s\n\n", ConfigPath())

	a := answersFrom(cfg)
	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Source").
				Description("dir:PATH, sqlite:FILE or synthetic:FANOUT,DEPTH").
				Value(&a.Source).
				Placeholder("dir:."),
			huh.NewSelect[string]().
				Title("Selection mode").
				Options(
					huh.NewOption("Multiple subtrees", "multiple"),
					huh.NewOption("Single subtree", "single"),
					huh.NewOption("Read only", "readonly"),
				).
				Value(&a.Mode),
			huh.NewInput().
				Title("Page size").
				Description("Children fetched per request").
				Value(&a.PageSize).
				Validate(validatePageSize),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Hide checkboxes?").
				Value(&a.HideCheckboxes),
			huh.NewConfirm().
				Title("Expand nodes by default?").
				Value(&a.Expanded),
			huh.NewConfirm().
				Title("Watch directories for changes?").
				Value(&a.Watch),
		),
	)

	if err := form.Run(); err != nil {
		return cfg, err
	}
	fmt.Fprintln(out, "")
	return a.apply(cfg)
}
