package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's native vector size when non-zero.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ResolvedDimensions returns the vector size for the configured model.
func (e EmbeddingSettings) ResolvedDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	return EmbeddingDimensions()[e.Model]
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the generation model name.
	Model string

	// GateModel is the model used for intent classification.
	// Empty means use Model.
	GateModel string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StoreBackend selects the vector store implementation.
type StoreBackend string

// Available vector store backends.
const (
	// StoreBackendPgvector is PostgreSQL with the pgvector extension.
	StoreBackendPgvector StoreBackend = "pgvector"

	// StoreBackendSQLite is a local SQLite file with in-process scoring.
	StoreBackendSQLite StoreBackend = "sqlite"

	// StoreBackendMemory is a process-local map, lost on exit.
	StoreBackendMemory StoreBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreBackendPgvector, StoreBackendSQLite, StoreBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StoreBackend) String() string {
	return string(b)
}

// StoreSettings holds vector store configuration.
type StoreSettings struct {
	// Backend selects the implementation.
	Backend StoreBackend

	// DSN is the PostgreSQL connection string (pgvector backend).
	DSN string

	// Path is the database file path (sqlite backend).
	Path string

	// Collection is the table name holding chunk records.
	Collection string
}

// IngestionSettings controls splitting, embedding and batch insertion.
type IngestionSettings struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by adjacent chunks.
	ChunkOverlap int

	// EmbedConcurrency caps in-flight embedding calls.
	EmbedConcurrency int

	// EmbedBatchSize is the number of texts per embedding call.
	EmbedBatchSize int

	// BatchSize is the number of records per insert call.
	BatchSize int

	// Concurrency is the number of insert workers.
	Concurrency int

	// InterBatchDelay spaces out batch dispatches.
	InterBatchDelay time.Duration

	// MaxAttempts is the total number of insert attempts per batch.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries.
	MaxBackoff time.Duration

	// Deadline bounds the wall time of a whole ingestion.
	Deadline time.Duration
}

// RetrievalSettings controls scoped similarity search.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per query.
	TopK int
}

// ServerSettings controls the HTTP entry points.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// ChatTimeout bounds a single chat request.
	ChatTimeout time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Store     StoreSettings
	Ingestion IngestionSettings
	Retrieval RetrievalSettings
	Server    ServerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Providers default to OpenAI but stay unconfigured until an API key is set.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    "text-embedding-3-large",
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    "gpt-4o-mini",
		},
		Store: StoreSettings{
			Backend:    StoreBackendSQLite,
			Collection: "interview_cosine_3072",
		},
		Ingestion: DefaultIngestionSettings(),
		Retrieval: RetrievalSettings{TopK: 5},
		Server: ServerSettings{
			Addr:        ":8080",
			ChatTimeout: 2 * time.Minute,
		},
	}
}

// DefaultIngestionSettings returns the ingestion defaults.
func DefaultIngestionSettings() IngestionSettings {
	return IngestionSettings{
		ChunkSize:        1000,
		ChunkOverlap:     200,
		EmbedConcurrency: 10,
		EmbedBatchSize:   512,
		BatchSize:        20,
		Concurrency:      5,
		InterBatchDelay:  100 * time.Millisecond,
		MaxAttempts:      4,
		InitialBackoff:   250 * time.Millisecond,
		MaxBackoff:       5 * time.Second,
		Deadline:         5 * time.Minute,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-large",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
