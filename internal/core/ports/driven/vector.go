package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// VectorStore persists chunk records and answers similarity queries.
// Every query is scoped to a single document; there is no unscoped search.
//
// Implementations wrap retryable failures in *domain.TransientStoreError.
type VectorStore interface {
	// Upsert writes one batch of records atomically.
	// Records with an existing ID are overwritten.
	Upsert(ctx context.Context, records []domain.ChunkRecord) error

	// Search returns up to k records of documentID closest to vector,
	// ordered closest first. An empty documentID is rejected with
	// domain.ErrMissingDocumentID.
	Search(ctx context.Context, documentID string, vector []float32, k int) ([]domain.ScoredChunk, error)

	// Count returns the number of records stored for documentID.
	Count(ctx context.Context, documentID string) (int, error)

	// DeleteDocument removes every record of documentID.
	DeleteDocument(ctx context.Context, documentID string) error

	// Dimensions returns the vector size the store was created with.
	Dimensions() int

	// Close releases resources.
	Close() error
}
