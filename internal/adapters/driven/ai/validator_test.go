package ai

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestConfigValidator_Unconfigured(t *testing.T) {
	validator := NewConfigValidator()

	assert.NoError(t, validator.ValidateEmbedding(nil))
	assert.NoError(t, validator.ValidateEmbedding(&domain.EmbeddingSettings{Model: "m"}))
	assert.NoError(t, validator.ValidateLLM(nil))
	assert.NoError(t, validator.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOpenAI}))
}

func TestConfigValidator_PingsProvider(t *testing.T) {
	up := newOllamaServer(t, http.StatusOK)
	down := newOllamaServer(t, http.StatusBadGateway)
	validator := NewConfigValidator()

	assert.NoError(t, validator.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: up.URL}))

	err := validator.ValidateEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama, BaseURL: down.URL, Model: "all-minilm",
	})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}
