package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and configure AI providers, the vector store and pipeline tuning.

Settings live in ~/.docchat/config.toml. OPENAI_API_KEY, ANTHROPIC_API_KEY,
DATABASE_URL, DOCCHAT_STORE and DOCCHAT_ADDR override stored values and may
be placed in a .env file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	RunE:  runConfigEmbedding,
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	RunE:  runConfigLLM,
}

var configStoreCmd = &cobra.Command{
	Use:   "store <pgvector|sqlite|memory> [dsn-or-path]",
	Short: "Select the vector store",
	Long: `Select the vector store backend.

  pgvector  PostgreSQL with pgvector; takes a connection string
  sqlite    local file; takes a path (default ~/.docchat/vectors.db)
  memory    process-local, lost on exit`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigStore,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configLLMCmd)
	configCmd.AddCommand(configStoreCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.ResolvedDimensions())
	if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayKey(settings.Embedding.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.GateModel != "" {
		cmd.Printf("  Gate Model: %s\n", settings.LLM.GateModel)
	}
	if settings.LLM.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Backend: %s\n", settings.Store.Backend)
	cmd.Printf("  Collection: %s\n", settings.Store.Collection)
	switch settings.Store.Backend {
	case domain.StoreBackendPgvector:
		cmd.Printf("  DSN: %s\n", displayKey(settings.Store.DSN))
	case domain.StoreBackendSQLite:
		path := settings.Store.Path
		if path == "" {
			path = "(default)"
		}
		cmd.Printf("  Path: %s\n", path)
	}
	cmd.Println()

	ing := settings.Ingestion
	cmd.Println("[Ingestion]")
	cmd.Printf("  Chunks: %d chars, %d overlap\n", ing.ChunkSize, ing.ChunkOverlap)
	cmd.Printf("  Embedding: %d concurrent, %d per call\n", ing.EmbedConcurrency, ing.EmbedBatchSize)
	cmd.Printf("  Batches: %d records, %d workers, %s apart\n", ing.BatchSize, ing.Concurrency, ing.InterBatchDelay)
	cmd.Printf("  Retries: %d attempts, backoff %s to %s\n", ing.MaxAttempts, ing.InitialBackoff, ing.MaxBackoff)
	cmd.Printf("  Deadline: %s\n", ing.Deadline)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Printf("  Chat Timeout: %s\n", settings.Server.ChatTimeout)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docchat config embedding' or 'docchat config llm' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureLLMProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runConfigStore(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	backend := domain.StoreBackend(args[0])
	var target string
	if len(args) == 2 {
		target = args[1]
	}
	if backend == domain.StoreBackendPgvector && target == "" {
		return errors.New("pgvector requires a connection string")
	}

	if err := settingsService.SetStore(backend, target); err != nil {
		return fmt.Errorf("failed to set store: %w", err)
	}
	cmd.Printf("Vector store set to: %s\n", backend)
	return nil
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [2]: ")
	idx := parseChoice(readLine(reader), len(providers), 2)
	selected := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key (blank keeps current or env): ")
		apiKey = readSecret(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	if err := settingsService.SetEmbeddingProvider(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n", selected.Description(), model)
	cmd.Println("Changing the embedding model needs a fresh collection; re-ingest your documents.")
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [2]: ")
	idx := parseChoice(readLine(reader), len(providers), 2)
	selected := providers[idx-1]

	defaultModel := domain.DefaultLLMModels()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key (blank keeps current or env): ")
		apiKey = readSecret(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	if err := settingsService.SetLLMProvider(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n", selected.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readSecret reads without echo when in is the terminal.
func readSecret(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	return readLine(reader)
}

func displayKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
