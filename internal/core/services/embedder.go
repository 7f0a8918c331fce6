package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Default embedder configuration values.
const (
	DefaultEmbedConcurrency = 10
	DefaultEmbedBatchSize   = 512
	DefaultEmbedAttempts    = 3
)

// EmbedderConfig configures fan-out and retry for embedding calls.
type EmbedderConfig struct {
	// MaxConcurrency caps in-flight EmbedBatch calls (default 10).
	MaxConcurrency int

	// BatchSize is the number of texts per EmbedBatch call (default 512).
	BatchSize int

	// MaxAttempts is the total tries per sub-batch on transient errors (default 3).
	MaxAttempts int

	// Backoff spaces retries.
	Backoff Backoff
}

// Embedder wraps an EmbeddingService with bounded, order-preserving fan-out.
type Embedder struct {
	svc            driven.EmbeddingService
	maxConcurrency int
	batchSize      int
	maxAttempts    int
	backoff        Backoff
}

// NewEmbedder creates an embedder over svc.
func NewEmbedder(svc driven.EmbeddingService, cfg EmbedderConfig) *Embedder {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultEmbedConcurrency
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultEmbedBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultEmbedAttempts
	}
	if cfg.Backoff.Initial == 0 {
		cfg.Backoff = Backoff{Initial: 500 * time.Millisecond, Max: 8 * time.Second}
	}
	return &Embedder{
		svc:            svc,
		maxConcurrency: cfg.MaxConcurrency,
		batchSize:      cfg.BatchSize,
		maxAttempts:    cfg.MaxAttempts,
		backoff:        cfg.Backoff,
	}
}

// Dimensions returns the vector size of the underlying model.
func (e *Embedder) Dimensions() int {
	return e.svc.Dimensions()
}

// EmbedOne embeds a single text, retrying transient failures.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	_, err := retryTransient(ctx, e.maxAttempts, e.backoff, func(ctx context.Context) error {
		v, err := e.svc.Embed(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	}, logEmbedRetry(-1))
	if err != nil {
		return nil, &domain.EmbeddingError{Op: "embed one", Offset: -1, Err: err}
	}
	if err := e.checkVector(vec); err != nil {
		return nil, &domain.EmbeddingError{Op: "embed one", Offset: -1, Err: err}
	}
	return vec, nil
}

// EmbedMany embeds texts in sub-batches with at most MaxConcurrency calls in
// flight. The result has one vector per text in input order regardless of
// completion order. Any sub-batch that fails after retries fails the call.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrency)

	calls := 0
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		calls++
		g.Go(func() error {
			return e.embedRange(gctx, texts, out, start, end)
		})
	}
	logger.Debug("Embedding %d texts in %d calls (max %d in flight)", len(texts), calls, e.maxConcurrency)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// embedRange embeds texts[start:end] and writes each vector into its input slot.
func (e *Embedder) embedRange(ctx context.Context, texts []string, out [][]float32, start, end int) error {
	var vecs [][]float32
	_, err := retryTransient(ctx, e.maxAttempts, e.backoff, func(ctx context.Context) error {
		v, err := e.svc.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return err
		}
		vecs = v
		return nil
	}, logEmbedRetry(start))
	if err != nil {
		return &domain.EmbeddingError{Op: "embed many", Offset: start, Err: err}
	}

	if len(vecs) != end-start {
		return &domain.EmbeddingError{
			Op:     "embed many",
			Offset: start,
			Err:    fmt.Errorf("got %d vectors for %d texts", len(vecs), end-start),
		}
	}
	for i, v := range vecs {
		if err := e.checkVector(v); err != nil {
			return &domain.EmbeddingError{Op: "embed many", Offset: start + i, Err: err}
		}
		out[start+i] = v
	}
	return nil
}

func (e *Embedder) checkVector(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("empty vector")
	}
	if dims := e.svc.Dimensions(); dims > 0 && len(v) != dims {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(v), dims)
	}
	return nil
}

func logEmbedRetry(offset int) func(int, error, time.Duration) {
	return func(attempt int, err error, wait time.Duration) {
		logger.Warn("Embedding call at offset %d failed (attempt %d), retrying in %s: %v",
			offset, attempt, wait, err)
	}
}
