// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Services holds the AI adapters used by both pipelines.
type Services struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
}

// Close releases all resources held by the services.
func (s *Services) Close() {
	if s.Embedding != nil {
		_ = s.Embedding.Close()
	}
	if s.LLM != nil {
		_ = s.LLM.Close()
	}
}

// CreateServices builds the embedding and LLM adapters. Both providers must be
// configured. When validate is true each is pinged before being returned.
func CreateServices(ctx context.Context, embedding *domain.EmbeddingSettings, llm *domain.LLMSettings, validate bool) (*Services, error) {
	if embedding == nil || !embedding.IsConfigured() {
		return nil, fmt.Errorf("%w: embedding provider is not configured", domain.ErrEmbeddingUnavailable)
	}
	if llm == nil || !llm.IsConfigured() {
		return nil, fmt.Errorf("%w: LLM provider is not configured", domain.ErrLLMUnavailable)
	}

	embedSvc, err := CreateEmbeddingService(embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	llmSvc, err := CreateLLMService(llm)
	if err != nil {
		_ = embedSvc.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}

	services := &Services{Embedding: embedSvc, LLM: llmSvc}
	if !validate {
		return services, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := embedSvc.Ping(pingCtx); err != nil {
		services.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docchat config show' to check settings",
			domain.ErrEmbeddingUnavailable, err)
	}
	if err := llmSvc.Ping(pingCtx); err != nil {
		services.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docchat config show' to check settings",
			domain.ErrLLMUnavailable, err)
	}
	return services, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the embedding adapter selected by settings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("embedding settings are required")
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		svc, err := ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", settings.Provider)
	}
}

// CreateLLMService creates the LLM adapter selected by settings.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil {
		return nil, fmt.Errorf("LLM settings are required")
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderAnthropic:
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", settings.Provider)
	}
}
