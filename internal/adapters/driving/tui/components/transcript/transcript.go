// Package transcript renders the scrolling conversation history.
package transcript

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// View shows completed turns followed by the answer being streamed.
type View struct {
	styles   *styles.Styles
	viewport viewport.Model
	turns    []domain.Message
	pending  strings.Builder
	notes    map[int]string
	width    int
}

// New creates an empty transcript.
func New(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	v := &View{
		styles:   s,
		viewport: viewport.New(80, 20),
		notes:    make(map[int]string),
		width:    80,
	}
	v.refresh()
	return v
}

// Update forwards scrolling input to the viewport.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// View renders the visible part of the transcript.
func (v *View) View() string {
	return v.viewport.View()
}

// SetSize resizes the transcript area.
func (v *View) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	v.width = width
	v.viewport.Width = width
	v.viewport.Height = height
	v.refresh()
}

// AddUser appends a user turn.
func (v *View) AddUser(text string) {
	v.turns = append(v.turns, domain.Message{Role: domain.RoleUser, Content: text})
	v.refresh()
}

// AppendPending adds streamed text to the answer in progress.
func (v *View) AppendPending(text string) {
	v.pending.WriteString(text)
	v.refresh()
}

// Pending returns the answer in progress.
func (v *View) Pending() string {
	return v.pending.String()
}

// CommitPending turns the answer in progress into an assistant turn. A note,
// such as an interruption reason, is shown under it. Empty answers without a
// note are dropped.
func (v *View) CommitPending(note string) {
	text := v.pending.String()
	v.pending.Reset()
	if text == "" && note == "" {
		v.refresh()
		return
	}
	v.turns = append(v.turns, domain.Message{Role: domain.RoleAssistant, Content: text})
	if note != "" {
		v.notes[len(v.turns)-1] = note
	}
	v.refresh()
}

// Messages returns the completed conversation.
func (v *View) Messages() []domain.Message {
	out := make([]domain.Message, len(v.turns))
	copy(out, v.turns)
	return out
}

// Reset clears the conversation.
func (v *View) Reset() {
	v.turns = nil
	v.pending.Reset()
	v.notes = make(map[int]string)
	v.refresh()
}

// ScrollUp scrolls up one page.
func (v *View) ScrollUp() {
	v.viewport.ViewUp()
}

// ScrollDown scrolls down one page.
func (v *View) ScrollDown() {
	v.viewport.ViewDown()
}

func (v *View) refresh() {
	v.viewport.SetContent(v.render())
	v.viewport.GotoBottom()
}

func (v *View) render() string {
	body := v.styles.Normal.Width(max(v.width-2, 10))
	var sb strings.Builder
	for i, m := range v.turns {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(v.label(m.Role))
		sb.WriteByte('\n')
		sb.WriteString(body.Render(m.Content))
		if note, ok := v.notes[i]; ok {
			sb.WriteByte('\n')
			sb.WriteString(v.styles.Warning.Render(note))
		}
	}
	if v.pending.Len() > 0 {
		if len(v.turns) > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(v.label(domain.RoleAssistant))
		sb.WriteByte('\n')
		sb.WriteString(body.Render(v.pending.String()))
	}
	if sb.Len() == 0 {
		return v.styles.Muted.Render("Ask a question about the document to get started.")
	}
	return sb.String()
}

func (v *View) label(role domain.Role) string {
	if role == domain.RoleUser {
		return v.styles.UserLabel.Render("You")
	}
	return v.styles.AssistantLabel.Render("Assistant")
}
