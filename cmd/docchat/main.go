// Command docchat indexes documents and answers questions about them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/adapters/driving/cli"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	var configStore driven.ConfigStore
	fileStore, err := file.NewConfigStore("")
	if err != nil {
		// Read-only homes (containers) still run from defaults and env.
		logger.Warn("Config file unavailable, settings will not persist: %v", err)
		configStore = memory.NewConfigStore(nil)
	} else {
		configStore = fileStore
	}

	cli.SetVersion(version)
	cli.SetSettingsService(services.NewSettingsService(configStore, ai.NewConfigValidator()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx)
}
