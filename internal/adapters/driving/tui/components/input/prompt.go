// Package input provides text input components for the TUI.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
)

// questionLimit caps a single question. Whole conversations are resent each turn.
const questionLimit = 2000

// Prompt wraps a bubbles textinput for entering questions.
type Prompt struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
}

// NewPrompt creates a new question input.
func NewPrompt(s *styles.Styles) *Prompt {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about the document..."
	ti.Focus()
	ti.CharLimit = questionLimit
	ti.Width = 50

	return &Prompt{
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Init initialises the input.
func (p *Prompt) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (p *Prompt) Update(msg tea.Msg) (*Prompt, tea.Cmd) {
	var cmd tea.Cmd
	p.textinput, cmd = p.textinput.Update(msg)
	return p, cmd
}

// View renders the input.
func (p *Prompt) View() string {
	label := p.styles.UserLabel.Render("Ask: ")
	field := p.styles.InputField.Render(p.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the current input value.
func (p *Prompt) Value() string {
	return p.textinput.Value()
}

// SetValue sets the input value.
func (p *Prompt) SetValue(value string) {
	p.textinput.SetValue(value)
}

// Take returns the trimmed question and clears the input. The boolean is
// false when the input holds only whitespace.
func (p *Prompt) Take() (string, bool) {
	q := strings.TrimSpace(p.textinput.Value())
	if q == "" {
		return "", false
	}
	p.textinput.Reset()
	return q, true
}

// Focus sets focus on the input.
func (p *Prompt) Focus() tea.Cmd {
	return p.textinput.Focus()
}

// Blur removes focus from the input.
func (p *Prompt) Blur() {
	p.textinput.Blur()
}

// Focused returns whether the input is focused.
func (p *Prompt) Focused() bool {
	return p.textinput.Focused()
}

// SetWidth sets the width of the input.
func (p *Prompt) SetWidth(width int) {
	p.width = width
	// Account for label, border and padding.
	inputWidth := width - 12
	if inputWidth < 20 {
		inputWidth = 20
	}
	p.textinput.Width = inputWidth
}

// Width returns the current width.
func (p *Prompt) Width() int {
	return p.width
}
