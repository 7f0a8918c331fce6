// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
)

// State represents the chat state for display.
type State string

const (
	StateReady     State = "ready"
	StateThinking  State = "thinking"
	StateStreaming State = "streaming"
	StateError     State = "error"
	StateHelp      State = "help"
)

// Bar displays chat status and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	state    State
	message  string
	document string
	turns    int
	width    int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(_ tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	inner := s.width - s.styles.StatusBar.GetHorizontalFrameSize()
	padding := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateThinking:
		return s.styles.Muted.Render("Thinking...")
	case StateStreaming:
		return s.styles.Normal.Render("Answering...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return s.styles.Error.Render("Error")
	case StateHelp:
		return s.styles.Normal.Render("Help")
	case StateReady:
	}

	parts := make([]string, 0, 2)
	if s.document != "" {
		parts = append(parts, s.document)
	}
	if s.turns > 0 {
		parts = append(parts, fmt.Sprintf("%d questions", s.turns))
	}
	if len(parts) == 0 {
		return s.styles.Muted.Render("Ready")
	}
	return s.styles.Normal.Render(strings.Join(parts, " · "))
}

func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()
	if s.state == StateThinking || s.state == StateStreaming {
		bindings = s.keymap.StreamingHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets the error message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetDocument sets the document the chat is scoped to.
func (s *Bar) SetDocument(id string) {
	s.document = id
}

// SetTurns sets the number of questions asked.
func (s *Bar) SetTurns(n int) {
	s.turns = n
}

// Turns returns the number of questions asked.
func (s *Bar) Turns() int {
	return s.turns
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets state and message; the document is kept.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.turns = 0
}
