// Package cli provides the docchat command line interface.
// It is a driving adapter: commands translate flags and arguments into
// calls on the ingestion and chat pipelines.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/app"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// AppFactory assembles the pipelines for a command.
type AppFactory func(ctx context.Context, opts app.Options) (*app.App, error)

var (
	settingsService driving.SettingsService
	appFactory      AppFactory = app.New
	verbose         bool
	storeOverride   string
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents",
	Long: `docchat indexes PDF, text and CSV files into a vector store and answers
questions about them, grounding each answer in the most relevant passages
of the selected document.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&storeOverride, "store", "", "vector store backend for this run (pgvector, sqlite, memory)")
}

// SetSettingsService sets the settings service used by every command.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetAppFactory replaces how commands assemble the pipelines.
func SetAppFactory(f AppFactory) {
	appFactory = f
}

// SetVersion sets the reported version.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// openApp resolves settings and assembles the pipelines.
func openApp(ctx context.Context, opts app.Options) (*app.App, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if storeOverride != "" {
		backend := domain.StoreBackend(storeOverride)
		if !backend.IsValid() {
			return nil, fmt.Errorf("%w: unknown store %q", domain.ErrInvalidInput, storeOverride)
		}
		settings.Store.Backend = backend
	}
	opts.Settings = settings
	return appFactory(ctx, opts)
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		logger.Warn("Closing resources: %v", err)
	}
}
