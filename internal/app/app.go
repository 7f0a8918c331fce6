// Package app wires adapters and services into the two pipelines.
// Clients are built once per App and shared by every request it serves.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/adapters/driven/fetcher"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/loaders"
	"github.com/custodia-labs/docchat/internal/splitter"
)

// Options controls how an App is assembled.
type Options struct {
	// Settings are the resolved application settings (required).
	Settings *domain.AppSettings

	// PromptDir overrides the prompt directory. Empty uses ~/.docchat/prompts.
	PromptDir string

	// AllowFileURLs lets ingestion read file:// URLs. Keep off for servers.
	AllowFileURLs bool

	// ValidateProviders pings the AI providers before returning.
	ValidateProviders bool

	// Progress is called after each inserted batch settles.
	Progress func(done, total int)

	// Embedding, LLM and Store replace the adapters built from Settings.
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
	Store     driven.VectorStore
}

// App holds the assembled pipelines and the resources behind them.
type App struct {
	Settings  *domain.AppSettings
	Ingestion *services.IngestionService
	Chat      *services.ChatService
	Prompts   *file.PromptStore
	Store     driven.VectorStore

	closers []func() error
}

// New assembles both pipelines from opts.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Settings == nil {
		return nil, errors.New("app: settings are required")
	}
	settings := opts.Settings
	a := &App{Settings: settings}

	embedding, llm := opts.Embedding, opts.LLM
	if embedding == nil || llm == nil {
		svcs, err := ai.CreateServices(ctx, &settings.Embedding, &settings.LLM, opts.ValidateProviders)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { svcs.Close(); return nil })
		if embedding == nil {
			embedding = svcs.Embedding
		}
		if llm == nil {
			llm = svcs.LLM
		}
	}

	store := opts.Store
	if store == nil {
		var err error
		store, err = storage.Open(ctx, settings.Store, embedding.Dimensions())
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
	}
	if store.Dimensions() != embedding.Dimensions() {
		_ = a.Close()
		return nil, fmt.Errorf("store holds %d-dimension vectors but %s produces %d: %w",
			store.Dimensions(), embedding.ModelName(), embedding.Dimensions(), domain.ErrDimensionMismatch)
	}
	a.Store = store

	prompts, err := file.NewPromptStore(opts.PromptDir)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Prompts = prompts

	ing := settings.Ingestion
	embedder := services.NewEmbedder(embedding, services.EmbedderConfig{
		MaxConcurrency: ing.EmbedConcurrency,
		BatchSize:      ing.EmbedBatchSize,
		Backoff:        services.Backoff{Initial: ing.InitialBackoff, Max: ing.MaxBackoff},
	})
	inserter := services.NewBatchInserter(store, services.BatchInserterConfig{
		BatchSize:       ing.BatchSize,
		Concurrency:     ing.Concurrency,
		InterBatchDelay: ing.InterBatchDelay,
		MaxAttempts:     ing.MaxAttempts,
		Backoff:         services.Backoff{Initial: ing.InitialBackoff, Max: ing.MaxBackoff},
		Deadline:        ing.Deadline,
		Progress:        opts.Progress,
	})
	a.Ingestion = services.NewIngestionService(
		fetcher.New(fetcher.Config{AllowFiles: opts.AllowFileURLs}),
		loaders.Default(),
		splitter.New(splitter.WithChunkSize(ing.ChunkSize), splitter.WithOverlap(ing.ChunkOverlap)),
		embedder,
		inserter,
	)

	gateModel := settings.LLM.GateModel
	if gateModel == "" {
		gateModel = settings.LLM.Model
	}
	a.Chat = services.NewChatService(
		services.NewIntentGate(llm, prompts, gateModel),
		services.NewRetriever(embedder, store, settings.Retrieval.TopK),
		services.NewChatStreamer(llm, prompts, settings.LLM.Model),
	)

	return a, nil
}

// Close releases every resource New opened, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
