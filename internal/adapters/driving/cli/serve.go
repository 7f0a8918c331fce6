package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driving/httpserver"
	"github.com/custodia-labs/docchat/internal/app"
	"github.com/custodia-labs/docchat/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Routes:
  POST /api/embed  {"fileUrl": "...", "fileId": "..."}   index a document
  POST /api/chat   {"messages": [...], "fileId": "..."}  stream an answer
  GET  /health

Prompt files are watched and reloaded while the server runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, app.Options{ValidateProviders: true})
	if err != nil {
		return err
	}
	defer closeApp(a)

	go func() {
		if err := a.Prompts.Watch(ctx); err != nil {
			logger.Warn("Prompt reload disabled: %v", err)
		}
	}()

	addr := serveAddr
	if addr == "" {
		addr = a.Settings.Server.Addr
	}
	srv := httpserver.New(a.Ingestion, a.Chat, httpserver.Config{
		Addr:        addr,
		ChatTimeout: a.Settings.Server.ChatTimeout,
	})

	fmt.Fprintf(cmd.OutOrStdout(), "docchat listening on %s\n", srv.Addr())
	return srv.Run(ctx)
}
