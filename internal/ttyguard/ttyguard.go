// Package ttyguard marks non-interactive invocations before any terminal
// library runs its init.
//
// Lipgloss and termenv may probe the terminal for its background color,
// writing OSC/DSR control sequences to stdout. That is harmless in a real
// terminal but corrupts piped --dump output. Setting CI=1 early disables the
// probing. Import this package for its side effect from main.
package ttyguard

import (
	"os"
	"strings"
)

func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if !ShouldSuppressTTYQueries(os.Args, os.Getenv("LT_TEST_MODE") != "") {
		return
	}
	_ = os.Setenv("CI", "1")
}

// ShouldSuppressTTYQueries reports whether args describe a run that never
// starts the TUI.
func ShouldSuppressTTYQueries(args []string, envTest bool) bool {
	if envTest {
		return true
	}
	for _, arg := range args {
		if strings.HasPrefix(arg, "--dump") || strings.HasPrefix(arg, "-dump") {
			return true
		}
		if strings.HasPrefix(arg, "--seed-sqlite") || strings.HasPrefix(arg, "-seed-sqlite") {
			return true
		}
		switch arg {
		case "--version", "-version", "--help", "-help", "-h":
			return true
		}
	}
	return false
}
