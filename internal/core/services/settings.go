package services

import (
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMGateModel    = "llm.gate_model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyStoreBackend    = "store.backend"
	keyStoreDSN        = "store.dsn"
	keyStorePath       = "store.path"
	keyStoreCollection = "store.collection"
	keyChunkSize       = "ingestion.chunk_size"
	keyChunkOverlap    = "ingestion.chunk_overlap"
	keyEmbedConc       = "ingestion.embed_concurrency"
	keyEmbedBatch      = "ingestion.embed_batch_size"
	keyBatchSize       = "ingestion.batch_size"
	keyConcurrency     = "ingestion.concurrency"
	keyInterBatchDelay = "ingestion.inter_batch_delay"
	keyMaxAttempts     = "ingestion.max_attempts"
	keyInitialBackoff  = "ingestion.initial_backoff"
	keyMaxBackoff      = "ingestion.max_backoff"
	keyDeadline        = "ingestion.deadline"
	keyTopK            = "retrieval.top_k"
	keyServerAddr      = "server.addr"
	keyChatTimeout     = "server.chat_timeout"
)

// Environment variables that override stored settings.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvDatabaseURL  = "DATABASE_URL"
	EnvStoreBackend = "DOCCHAT_STORE"
	EnvServerAddr   = "DOCCHAT_ADDR"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
// Values come from the config store, then defaults, then environment overrides.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()
	ing := defaults.Ingestion

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.configStore.GetInt(keyEmbedDims),
		},
		LLM: domain.LLMSettings{
			Provider:  s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:     s.getString(keyLLMModel, defaults.LLM.Model),
			GateModel: s.configStore.GetString(keyLLMGateModel),
			BaseURL:   s.configStore.GetString(keyLLMBaseURL),
			APIKey:    s.configStore.GetString(keyLLMAPIKey),
		},
		Store: domain.StoreSettings{
			Backend:    s.getBackend(defaults.Store.Backend),
			DSN:        s.configStore.GetString(keyStoreDSN),
			Path:       s.configStore.GetString(keyStorePath),
			Collection: s.getString(keyStoreCollection, defaults.Store.Collection),
		},
		Ingestion: domain.IngestionSettings{
			ChunkSize:        s.getInt(keyChunkSize, ing.ChunkSize),
			ChunkOverlap:     s.getInt(keyChunkOverlap, ing.ChunkOverlap),
			EmbedConcurrency: s.getInt(keyEmbedConc, ing.EmbedConcurrency),
			EmbedBatchSize:   s.getInt(keyEmbedBatch, ing.EmbedBatchSize),
			BatchSize:        s.getInt(keyBatchSize, ing.BatchSize),
			Concurrency:      s.getInt(keyConcurrency, ing.Concurrency),
			InterBatchDelay:  s.getDuration(keyInterBatchDelay, ing.InterBatchDelay),
			MaxAttempts:      s.getInt(keyMaxAttempts, ing.MaxAttempts),
			InitialBackoff:   s.getDuration(keyInitialBackoff, ing.InitialBackoff),
			MaxBackoff:       s.getDuration(keyMaxBackoff, ing.MaxBackoff),
			Deadline:         s.getDuration(keyDeadline, ing.Deadline),
		},
		Retrieval: domain.RetrievalSettings{
			TopK: s.getInt(keyTopK, defaults.Retrieval.TopK),
		},
		Server: domain.ServerSettings{
			Addr:        s.getString(keyServerAddr, defaults.Server.Addr),
			ChatTimeout: s.getDuration(keyChatTimeout, defaults.Server.ChatTimeout),
		},
	}

	s.applyEnv(settings)
	return settings, nil
}

// applyEnv layers environment variables over stored settings.
// Keys only fill in blanks, so an explicit config value wins.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	openaiKey := s.getenv(EnvOpenAIKey)
	if settings.Embedding.APIKey == "" && settings.Embedding.Provider == domain.AIProviderOpenAI {
		settings.Embedding.APIKey = openaiKey
	}
	if settings.LLM.APIKey == "" {
		switch settings.LLM.Provider {
		case domain.AIProviderOpenAI:
			settings.LLM.APIKey = openaiKey
		case domain.AIProviderAnthropic:
			settings.LLM.APIKey = s.getenv(EnvAnthropicKey)
		}
	}
	if v := s.getenv(EnvStoreBackend); v != "" && domain.StoreBackend(v).IsValid() {
		settings.Store.Backend = domain.StoreBackend(v)
	}
	if settings.Store.DSN == "" {
		settings.Store.DSN = s.getenv(EnvDatabaseURL)
	}
	if v := s.getenv(EnvServerAddr); v != "" {
		settings.Server.Addr = v
	}
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key string
		val any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMGateModel, settings.LLM.GateModel},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyStoreBackend, settings.Store.Backend.String()},
		{keyStoreDSN, settings.Store.DSN},
		{keyStorePath, settings.Store.Path},
		{keyStoreCollection, settings.Store.Collection},
		{keyChunkSize, settings.Ingestion.ChunkSize},
		{keyChunkOverlap, settings.Ingestion.ChunkOverlap},
		{keyEmbedConc, settings.Ingestion.EmbedConcurrency},
		{keyEmbedBatch, settings.Ingestion.EmbedBatchSize},
		{keyBatchSize, settings.Ingestion.BatchSize},
		{keyConcurrency, settings.Ingestion.Concurrency},
		{keyInterBatchDelay, settings.Ingestion.InterBatchDelay.String()},
		{keyMaxAttempts, settings.Ingestion.MaxAttempts},
		{keyInitialBackoff, settings.Ingestion.InitialBackoff.String()},
		{keyMaxBackoff, settings.Ingestion.MaxBackoff.String()},
		{keyDeadline, settings.Ingestion.Deadline.String()},
		{keyTopK, settings.Retrieval.TopK},
		{keyServerAddr, settings.Server.Addr},
		{keyChatTimeout, settings.Server.ChatTimeout.String()},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when set so env-provided keys never land on disk.
	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.getenv(EnvOpenAIKey) {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" && settings.LLM.APIKey != s.getenv(EnvOpenAIKey) &&
		settings.LLM.APIKey != s.getenv(EnvAnthropicKey) {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if provider.RequiresAPIKey() && apiKey == "" && settings.Embedding.APIKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	if apiKey != "" {
		settings.Embedding.APIKey = apiKey
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if provider.RequiresAPIKey() && apiKey == "" && settings.LLM.APIKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	if apiKey != "" {
		settings.LLM.APIKey = apiKey
	}

	return s.Save(settings)
}

// SetStore configures the vector store backend.
// dsnOrPath is a connection string for pgvector and a file path for sqlite.
func (s *SettingsService) SetStore(backend domain.StoreBackend, dsnOrPath string) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid store backend: %s", backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Store.Backend = backend
	switch backend {
	case domain.StoreBackendPgvector:
		settings.Store.DSN = dsnOrPath
	case domain.StoreBackendSQLite:
		settings.Store.Path = dsnOrPath
	}

	return s.Save(settings)
}

// Validate checks that current settings can run both pipelines.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: configure an embedding provider", domain.ErrEmbeddingUnavailable)
	}
	if settings.Embedding.ResolvedDimensions() == 0 {
		return fmt.Errorf("unknown dimensions for embedding model %q: set embedding.dimensions",
			settings.Embedding.Model)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: configure an LLM provider", domain.ErrLLMUnavailable)
	}
	if settings.Store.Backend == domain.StoreBackendPgvector && settings.Store.DSN == "" {
		return fmt.Errorf("%w: pgvector requires store.dsn or %s", domain.ErrStoreUnavailable, EnvDatabaseURL)
	}

	ing := settings.Ingestion
	switch {
	case ing.BatchSize <= 0:
		return fmt.Errorf("ingestion.batch_size must be positive")
	case ing.Concurrency <= 0:
		return fmt.Errorf("ingestion.concurrency must be positive")
	case ing.MaxAttempts <= 0:
		return fmt.Errorf("ingestion.max_attempts must be positive")
	case ing.ChunkOverlap >= ing.ChunkSize:
		return fmt.Errorf("ingestion.chunk_overlap must be smaller than chunk_size")
	case settings.Retrieval.TopK <= 0:
		return fmt.Errorf("retrieval.top_k must be positive")
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getDuration reads a duration string like "250ms" or "5m".
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StoreBackend) domain.StoreBackend {
	val := s.configStore.GetString(keyStoreBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.StoreBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
