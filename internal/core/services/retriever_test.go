package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func seedStore(t *testing.T, store *mockVectorStore, documentID string, texts ...string) {
	t.Helper()
	records := make([]domain.ChunkRecord, len(texts))
	for i, text := range texts {
		records[i] = domain.ChunkRecord{
			ID:         ChunkID(documentID, i),
			DocumentID: documentID,
			Position:   i,
			Text:       text,
			Vector:     []float32{1, 0, 0, float32(i)},
		}
	}
	require.NoError(t, store.Upsert(context.Background(), records))
}

func TestRetriever_JoinsRankedTexts(t *testing.T) {
	store := newMockVectorStore()
	seedStore(t, store, "doc-a", "first", "second", "third")
	r := NewRetriever(NewEmbedder(&mockEmbeddingService{}, EmbedderConfig{}), store, 0)

	result, err := r.Retrieve(context.Background(), "question", "doc-a")

	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\nthird", result.Context)
	assert.Len(t, result.Chunks, 3)
	assert.Equal(t, DefaultTopK, store.lastSearch.k)
}

func TestRetriever_TopK(t *testing.T) {
	store := newMockVectorStore()
	seedStore(t, store, "doc-a", "a", "b", "c", "d", "e", "f", "g")
	r := NewRetriever(NewEmbedder(&mockEmbeddingService{}, EmbedderConfig{}), store, 5)

	result, err := r.Retrieve(context.Background(), "q", "doc-a")

	require.NoError(t, err)
	assert.Len(t, result.Chunks, 5)
	assert.Equal(t, "a\nb\nc\nd\ne", result.Context)
}

func TestRetriever_EmptyDocument(t *testing.T) {
	store := newMockVectorStore()
	r := NewRetriever(NewEmbedder(&mockEmbeddingService{}, EmbedderConfig{}), store, 5)

	result, err := r.Retrieve(context.Background(), "q", "unseen-doc")

	require.NoError(t, err)
	assert.Empty(t, result.Context)
	assert.Empty(t, result.Chunks)
}

func TestRetriever_ScopedToDocument(t *testing.T) {
	store := newMockVectorStore()
	seedStore(t, store, "doc-a", "a1", "a2")
	seedStore(t, store, "doc-b", "b1", "b2", "b3")
	r := NewRetriever(NewEmbedder(&mockEmbeddingService{}, EmbedderConfig{}), store, 10)

	result, err := r.Retrieve(context.Background(), "q", "doc-a")

	require.NoError(t, err)
	require.Len(t, result.Chunks, 2)
	for _, c := range result.Chunks {
		assert.Equal(t, "doc-a", c.Record.DocumentID)
	}
	assert.Equal(t, "doc-a", store.lastSearch.documentID)
}

func TestRetriever_Errors(t *testing.T) {
	t.Run("missing document id", func(t *testing.T) {
		r := NewRetriever(NewEmbedder(&mockEmbeddingService{}, EmbedderConfig{}), newMockVectorStore(), 5)

		_, err := r.Retrieve(context.Background(), "q", " ")

		assert.ErrorIs(t, err, domain.ErrMissingDocumentID)
	})

	t.Run("embedding failure", func(t *testing.T) {
		svc := &mockEmbeddingService{embedErr: errors.New("bad key")}
		r := NewRetriever(NewEmbedder(svc, EmbedderConfig{}), newMockVectorStore(), 5)

		_, err := r.Retrieve(context.Background(), "q", "doc-a")

		var embedErr *domain.EmbeddingError
		assert.ErrorAs(t, err, &embedErr)
	})

	t.Run("store failure", func(t *testing.T) {
		store := newMockVectorStore()
		store.searchErr = domain.ErrStoreUnavailable
		r := NewRetriever(NewEmbedder(&mockEmbeddingService{}, EmbedderConfig{}), store, 5)

		_, err := r.Retrieve(context.Background(), "q", "doc-a")

		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})
}
