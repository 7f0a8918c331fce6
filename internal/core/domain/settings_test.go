package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAIProvider(t *testing.T) {
	assert.True(t, AIProviderOpenAI.IsValid())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderOllama.IsLocal())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.False(t, AIProvider("cohere").IsValid())
	assert.Equal(t, "Unknown", AIProvider("cohere").Description())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		want     bool
	}{
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"ollama", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"anthropic has no embeddings", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}, false},
		{"empty", EmbeddingSettings{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.settings.IsConfigured())
		})
	}
}

func TestEmbeddingSettings_ResolvedDimensions(t *testing.T) {
	assert.Equal(t, 3072, EmbeddingSettings{Model: "text-embedding-3-large"}.ResolvedDimensions())
	assert.Equal(t, 256, EmbeddingSettings{Model: "text-embedding-3-large", Dimensions: 256}.ResolvedDimensions())
	assert.Equal(t, 0, EmbeddingSettings{Model: "unknown"}.ResolvedDimensions())
}

func TestStoreBackend_IsValid(t *testing.T) {
	assert.True(t, StoreBackendPgvector.IsValid())
	assert.True(t, StoreBackendSQLite.IsValid())
	assert.True(t, StoreBackendMemory.IsValid())
	assert.False(t, StoreBackend("qdrant").IsValid())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, "text-embedding-3-large", s.Embedding.Model)
	assert.Equal(t, 3072, s.Embedding.ResolvedDimensions())
	assert.Equal(t, 5, s.Retrieval.TopK)
	assert.Equal(t, StoreBackendSQLite, s.Store.Backend)
	assert.Equal(t, "interview_cosine_3072", s.Store.Collection)
	assert.False(t, s.Embedding.IsConfigured(), "no api key by default")
}

func TestDefaultIngestionSettings(t *testing.T) {
	s := DefaultIngestionSettings()

	assert.Equal(t, 1000, s.ChunkSize)
	assert.Equal(t, 200, s.ChunkOverlap)
	assert.Equal(t, 10, s.EmbedConcurrency)
	assert.Equal(t, 20, s.BatchSize)
	assert.Equal(t, 5, s.Concurrency)
	assert.Equal(t, 4, s.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, s.InterBatchDelay)
	assert.Equal(t, 5*time.Minute, s.Deadline)
}
