package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui"
	"github.com/custodia-labs/docchat/internal/app"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

var chatFileID string

// isTerminal reports whether stdout is interactive.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask questions about an ingested document",
	Long: `Ask questions about a document indexed with 'docchat ingest'.

With a question argument the answer is streamed to stdout and the command
exits. Without one, an interactive chat opens when stdout is a terminal;
otherwise the question is read from stdin.

Controls (interactive):
  Enter   - Send
  Esc     - Stop the current answer
  Ctrl+L  - New chat
  Ctrl+H  - Toggle help
  Ctrl+C  - Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatFileID, "file-id", "", "document to chat about (required)")
	_ = chatCmd.MarkFlagRequired("file-id")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(a)

	if len(args) == 0 && isTerminal() {
		return runChatTUI(cmd, a)
	}

	question := ""
	if len(args) == 1 {
		question = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading question: %w", err)
		}
		question = string(data)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return errors.New("no question given")
	}

	return streamAnswer(cmd, a, question)
}

// streamAnswer prints a single answer as it is generated.
func streamAnswer(cmd *cobra.Command, a *app.App, question string) error {
	tokens, err := a.Chat.Chat(cmd.Context(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: question}},
		FileID:   chatFileID,
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	out := cmd.OutOrStdout()
	for tok := range tokens {
		if tok.Err != nil {
			fmt.Fprintln(out)
			return fmt.Errorf("answer interrupted: %w", tok.Err)
		}
		fmt.Fprint(out, tok.Text)
	}
	fmt.Fprintln(out)
	return nil
}

func runChatTUI(cmd *cobra.Command, a *app.App) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	ui, err := tui.NewApp(&tui.Ports{Chat: a.Chat, FileID: chatFileID})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	if err := ui.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
