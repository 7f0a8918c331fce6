package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Default batch inserter configuration values.
const (
	DefaultBatchSize       = 20
	DefaultInsertWorkers   = 5
	DefaultInsertAttempts  = 4
	DefaultInterBatchDelay = 100 * time.Millisecond
	DefaultInsertDeadline  = 5 * time.Minute
	DefaultUpsertTimeout   = 30 * time.Second
)

// BatchInserterConfig configures partitioning, dispatch and retry.
type BatchInserterConfig struct {
	// BatchSize is the maximum number of records per Upsert call (default 20).
	BatchSize int

	// Concurrency is the number of workers issuing Upsert calls (default 5).
	Concurrency int

	// InterBatchDelay is the minimum spacing between dispatches (default 100ms).
	// A negative value disables spacing.
	InterBatchDelay time.Duration

	// MaxAttempts is the total Upsert calls per batch on transient errors (default 4).
	MaxAttempts int

	// Backoff spaces retries of a single batch.
	Backoff Backoff

	// Deadline bounds the whole Insert call including all retries (default 5m).
	Deadline time.Duration

	// UpsertTimeout bounds a single Upsert call (default 30s).
	UpsertTimeout time.Duration

	// Progress, when set, is called after each batch settles.
	Progress func(done, total int)
}

// BatchInserter writes chunk records to a vector store in bounded, paced,
// retried batches and reports the outcome of every batch.
type BatchInserter struct {
	store driven.VectorStore
	cfg   BatchInserterConfig
}

// NewBatchInserter creates a batch inserter over store.
func NewBatchInserter(store driven.VectorStore, cfg BatchInserterConfig) *BatchInserter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultInsertWorkers
	}
	switch {
	case cfg.InterBatchDelay == 0:
		cfg.InterBatchDelay = DefaultInterBatchDelay
	case cfg.InterBatchDelay < 0:
		cfg.InterBatchDelay = 0
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultInsertAttempts
	}
	if cfg.Backoff.Initial == 0 {
		cfg.Backoff = Backoff{Initial: 250 * time.Millisecond, Max: 5 * time.Second}
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultInsertDeadline
	}
	if cfg.UpsertTimeout <= 0 {
		cfg.UpsertTimeout = DefaultUpsertTimeout
	}
	return &BatchInserter{store: store, cfg: cfg}
}

// Partition splits records into consecutive batches of at most size records.
// Every record appears in exactly one batch, in input order.
func Partition(records []domain.ChunkRecord, size int) []domain.Batch {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([]domain.Batch, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, domain.Batch{
			Index:   len(batches),
			Records: records[start:end],
		})
	}
	return batches
}

// Insert writes records for documentID and returns only after every batch has
// either succeeded or exhausted its retries. The report is always returned.
// The error is nil on full success, *domain.IngestionError when every batch
// failed and *domain.PartialIngestionError otherwise.
func (b *BatchInserter) Insert(
	ctx context.Context,
	documentID string,
	records []domain.ChunkRecord,
) (*domain.IngestionReport, error) {
	batches := Partition(records, b.cfg.BatchSize)
	report := &domain.IngestionReport{
		DocumentID: documentID,
		Chunks:     len(records),
		Batches:    make([]domain.BatchOutcome, len(batches)),
	}
	if len(batches) == 0 {
		return report, nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Deadline)
	defer cancel()

	workers := min(b.cfg.Concurrency, len(batches))
	logger.Debug("Inserting %d records for %s: %d batches, %d workers",
		len(records), documentID, len(batches), workers)

	limiter := NewDispatchLimiter(b.cfg.InterBatchDelay)
	jobs := make(chan domain.Batch)
	var (
		wg   sync.WaitGroup
		done atomic.Int64
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				report.Batches[batch.Index] = b.insertBatch(ctx, limiter, batch)
				n := int(done.Add(1))
				if b.cfg.Progress != nil {
					b.cfg.Progress(n, len(batches))
				}
			}
		}()
	}

	for _, batch := range batches {
		jobs <- batch
	}
	close(jobs)
	wg.Wait()

	logger.Info("Inserted %d/%d batches for %s", report.Succeeded(), len(batches), documentID)
	return report, report.Err()
}

// insertBatch runs one batch through pacing and retry.
func (b *BatchInserter) insertBatch(
	ctx context.Context,
	limiter *DispatchLimiter,
	batch domain.Batch,
) domain.BatchOutcome {
	start := time.Now()
	outcome := domain.BatchOutcome{
		Index: batch.Index,
		Size:  len(batch.Records),
	}

	_, err := retryTransient(ctx, b.cfg.MaxAttempts, b.cfg.Backoff, func(ctx context.Context) error {
		if limiter.Paused() {
			logger.Debug("Batch %d waiting for store rate limit to clear", batch.Index)
		}
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		outcome.Attempts++

		callCtx, cancel := context.WithTimeout(ctx, b.cfg.UpsertTimeout)
		defer cancel()
		return b.store.Upsert(callCtx, batch.Records)
	}, func(attempt int, err error, wait time.Duration) {
		if errors.Is(err, domain.ErrRateLimited) || retryAfter(err) > 0 {
			limiter.Pause(wait)
		}
		logger.Warn("Batch %d failed (attempt %d/%d, dispatch paused: %t), retrying in %s: %v",
			batch.Index, attempt, b.cfg.MaxAttempts, limiter.Paused(), wait.Round(time.Millisecond), err)
	})

	outcome.Duration = time.Since(start)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
			err = fmt.Errorf("%w (insert deadline: %w)", err, ctx.Err())
		}
		outcome.Status = domain.BatchFailed
		outcome.Err = err
		logger.Warn("Batch %d permanently failed after %d attempts: %v", batch.Index, outcome.Attempts, err)
		return outcome
	}

	outcome.Status = domain.BatchSucceeded
	return outcome
}
