package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 5

// Retriever embeds a query and fetches the closest chunks of one document.
type Retriever struct {
	embedder *Embedder
	store    driven.VectorStore
	topK     int
}

// NewRetriever creates a retriever. topK <= 0 uses DefaultTopK.
func NewRetriever(embedder *Embedder, store driven.VectorStore, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, store: store, topK: topK}
}

// Retrieve returns up to topK chunks of documentID most similar to query,
// with their texts joined by newlines. No match yields an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query, documentID string) (*domain.RetrievalResult, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, domain.ErrMissingDocumentID
	}
	start := time.Now()

	vec, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := r.store.Search(ctx, documentID, vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", documentID, err)
	}
	if len(hits) > r.topK {
		hits = hits[:r.topK]
	}

	result := &domain.RetrievalResult{Chunks: hits}
	result.Context = strings.Join(result.Texts(), "\n")

	logger.Debug("Retrieved %d chunks for %s in %s", len(hits), documentID, time.Since(start).Round(time.Millisecond))
	return result, nil
}
