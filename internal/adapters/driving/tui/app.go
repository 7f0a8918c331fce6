package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Rows taken by everything except the transcript: title, input box, status bar.
const chromeHeight = 6

// App is the chat TUI following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	prompt     *input.Prompt
	transcript *transcript.View
	statusBar  *status.Bar
	help       help.Model
	showHelp   bool

	// tokens is the stream being consumed; nil when idle.
	tokens <-chan domain.Token
	cancel context.CancelFunc

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a chat TUI over the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	bar := status.NewBar(s, km)
	bar.SetDocument(ports.FileID)

	return &App{
		ports:      ports,
		ctx:        context.Background(),
		styles:     s,
		keymap:     km,
		prompt:     input.NewPrompt(s),
		transcript: transcript.New(s),
		statusBar:  bar,
		help:       help.New(),
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.prompt.Init(),
		tea.SetWindowTitle("docchat - "+a.ports.FileID),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.QuestionSubmitted:
		return a, a.startChat(msg.Text)

	case messages.StreamStarted:
		if !a.Streaming() {
			// Stopped while waiting for the first token.
			go drain(msg.Tokens)
			return a, nil
		}
		a.tokens = msg.Tokens
		a.statusBar.SetState(status.StateStreaming)
		return a, waitForToken(a.tokens)

	case messages.TokenReceived:
		if a.tokens == nil {
			return a, nil
		}
		a.transcript.AppendPending(msg.Text)
		return a, waitForToken(a.tokens)

	case messages.StreamEnded:
		if a.tokens == nil {
			return a, nil
		}
		a.finishStream(msg.Err)
		return a, nil

	case messages.ErrorOccurred:
		a.stopStream()
		a.setError(msg.Err)
		return a, nil
	}

	var cmd tea.Cmd
	a.transcript, cmd = a.transcript.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, a.keymap.Quit):
		a.stopStream()
		return a, tea.Quit

	case keymap.Matches(keyStr, a.keymap.Cancel):
		if a.Streaming() {
			a.stopStream()
			a.transcript.CommitPending("(stopped)")
			a.statusBar.SetState(status.StateReady)
		}
		return a, nil

	case keymap.Matches(keyStr, a.keymap.Help):
		a.showHelp = !a.showHelp
		a.layout()
		return a, nil

	case keymap.Matches(keyStr, a.keymap.Clear):
		if !a.Streaming() {
			a.transcript.Reset()
			a.statusBar.Clear()
			a.err = nil
		}
		return a, nil

	case keymap.Matches(keyStr, a.keymap.ScrollUp):
		a.transcript.ScrollUp()
		return a, nil

	case keymap.Matches(keyStr, a.keymap.ScrollDown):
		a.transcript.ScrollDown()
		return a, nil

	case keymap.Matches(keyStr, a.keymap.Send):
		if a.Streaming() {
			return a, nil
		}
		question, ok := a.prompt.Take()
		if !ok {
			return a, nil
		}
		return a, func() tea.Msg { return messages.QuestionSubmitted{Text: question} }
	}

	var cmd tea.Cmd
	a.prompt, cmd = a.prompt.Update(msg)
	return a, cmd
}

// startChat records the question and asks the chat service for a stream.
func (a *App) startChat(question string) tea.Cmd {
	a.err = nil
	a.transcript.AddUser(question)
	a.statusBar.SetTurns(a.statusBar.Turns() + 1)
	a.statusBar.SetState(status.StateThinking)

	req := domain.ChatRequest{Messages: a.transcript.Messages(), FileID: a.ports.FileID}
	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel
	chat := a.ports.Chat

	return func() tea.Msg {
		tokens, err := chat.Chat(ctx, req)
		if err != nil {
			return messages.ErrorOccurred{Err: err}
		}
		return messages.StreamStarted{Tokens: tokens}
	}
}

// waitForToken reads the next token off the stream.
func waitForToken(tokens <-chan domain.Token) tea.Cmd {
	if tokens == nil {
		return nil
	}
	return func() tea.Msg {
		tok, ok := <-tokens
		switch {
		case !ok:
			return messages.StreamEnded{}
		case tok.Err != nil:
			return messages.StreamEnded{Err: tok.Err}
		default:
			return messages.TokenReceived{Text: tok.Text}
		}
	}
}

func (a *App) finishStream(err error) {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.tokens = nil

	if err != nil {
		a.transcript.CommitPending("(interrupted)")
		a.setError(err)
		return
	}
	a.transcript.CommitPending("")
	a.statusBar.SetState(status.StateReady)
}

// stopStream cancels generation. Remaining tokens are drained in the
// background so the producer can exit.
func (a *App) stopStream() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.tokens != nil {
		go drain(a.tokens)
		a.tokens = nil
	}
}

func drain(tokens <-chan domain.Token) {
	for range tokens {
	}
}

func (a *App) setError(err error) {
	a.err = err
	a.statusBar.SetState(status.StateError)
	a.statusBar.SetMessage(errorMessage(err))
}

// errorMessage turns pipeline errors into a short status line.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate limited, try again shortly"
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, domain.ErrUpstreamUnavailable):
		return "model unavailable"
	case errors.Is(err, domain.ErrStoreUnavailable), domain.IsTransient(err):
		return "vector store unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	default:
		return err.Error()
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	title := a.styles.Title.Render("docchat") + a.styles.Muted.Render("  "+a.ports.FileID)
	parts := []string{title, a.transcript.View(), a.prompt.View()}
	if a.showHelp {
		parts = append(parts, a.help.FullHelpView(a.keymap.FullHelp()))
	}
	parts = append(parts, a.statusBar.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// SetDimensions sets the terminal dimensions and lays out the components.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.layout()
}

func (a *App) layout() {
	chrome := chromeHeight
	if a.showHelp {
		chrome += len(a.keymap.FullHelp()[0])
	}
	a.help.Width = a.width
	a.prompt.SetWidth(a.width)
	a.statusBar.SetWidth(a.width)
	a.transcript.SetSize(a.width, a.height-chrome)
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Streaming reports whether an answer is in progress.
func (a *App) Streaming() bool {
	return a.cancel != nil
}

// Messages returns the completed conversation.
func (a *App) Messages() []domain.Message {
	return a.transcript.Messages()
}

// Pending returns the answer being streamed.
func (a *App) Pending() string {
	return a.transcript.Pending()
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}
