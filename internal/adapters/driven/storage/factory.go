// Package storage selects a driven.VectorStore implementation from settings.
package storage

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Open creates the vector store named by settings.Backend, sized for
// dimensions-long vectors.
func Open(ctx context.Context, settings domain.StoreSettings, dimensions int) (driven.VectorStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("store: vector dimensions must be positive, got %d", dimensions)
	}

	switch settings.Backend {
	case domain.StoreBackendPgvector:
		if settings.DSN == "" {
			return nil, fmt.Errorf("%w: pgvector requires a DSN", domain.ErrStoreUnavailable)
		}
		store, err := pgvector.NewStore(ctx, pgvector.Config{
			DSN:        settings.DSN,
			Collection: settings.Collection,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		logger.Debug("Using pgvector collection %s (%d dims)", settings.Collection, dimensions)
		return store, nil

	case domain.StoreBackendSQLite:
		store, err := sqlite.NewStore(sqlite.Config{
			Path:       settings.Path,
			Collection: settings.Collection,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		logger.Debug("Using sqlite store %s collection %s (%d dims)", store.Path(), settings.Collection, dimensions)
		return store, nil

	case domain.StoreBackendMemory:
		logger.Warn("Using in-memory vector store, data is lost on exit")
		return memory.NewVectorStore(dimensions), nil

	default:
		return nil, fmt.Errorf("unsupported store backend: %q", settings.Backend)
	}
}
