package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// GotoPrompt is the one-line input that asks for a key-path to scroll to.
type GotoPrompt struct {
	input           textinput.Model
	theme           Theme
	submitRequested bool
	cancelRequested bool
}

// NewGotoPrompt creates a focused prompt.
func NewGotoPrompt(theme Theme) GotoPrompt {
	ti := textinput.New()
	ti.Prompt = "go to: "
	ti.Placeholder = "a/b/c"
	ti.CharLimit = 1024
	ti.PromptStyle = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(theme.Subtext)
	ti.Focus()
	return GotoPrompt{input: ti, theme: theme}
}

// Update handles input for the prompt.
func (p GotoPrompt) Update(msg tea.Msg) (GotoPrompt, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			p.submitRequested = true
			return p, nil
		case "esc", "ctrl+c":
			p.cancelRequested = true
			return p, nil
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

// Value returns the entered text.
func (p GotoPrompt) Value() string { return p.input.Value() }

// SetValue replaces the entered text.
func (p *GotoPrompt) SetValue(s string) { p.input.SetValue(s) }

// IsSubmitRequested returns true once enter was pressed.
func (p GotoPrompt) IsSubmitRequested() bool { return p.submitRequested }

// IsCancelRequested returns true once esc was pressed.
func (p GotoPrompt) IsCancelRequested() bool { return p.cancelRequested }

// View renders the prompt line.
func (p GotoPrompt) View() string { return p.input.View() }
