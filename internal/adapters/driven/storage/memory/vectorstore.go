package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Records are partitioned by document so a search never sees another
// document's chunks.
type VectorStore struct {
	mu         sync.RWMutex
	dimensions int
	documents  map[string]map[string]domain.ChunkRecord
}

// NewVectorStore creates an in-memory store for vectors of the given size.
func NewVectorStore(dimensions int) *VectorStore {
	return &VectorStore{
		dimensions: dimensions,
		documents:  make(map[string]map[string]domain.ChunkRecord),
	}
}

// Upsert validates the whole batch before writing any of it.
func (s *VectorStore) Upsert(_ context.Context, records []domain.ChunkRecord) error {
	for _, rec := range records {
		if err := rec.Validate(s.dimensions); err != nil {
			return fmt.Errorf("record %s: %w", rec.ID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		doc, ok := s.documents[rec.DocumentID]
		if !ok {
			doc = make(map[string]domain.ChunkRecord)
			s.documents[rec.DocumentID] = doc
		}
		rec.Vector = append([]float32(nil), rec.Vector...)
		doc[rec.ID] = rec
	}
	return nil
}

// Search ranks the records of documentID by cosine similarity.
func (s *VectorStore) Search(_ context.Context, documentID string, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if documentID == "" {
		return nil, domain.ErrMissingDocumentID
	}
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("query: %w", domain.ErrDimensionMismatch)
	}

	s.mu.RLock()
	doc := s.documents[documentID]
	records := make([]domain.ChunkRecord, 0, len(doc))
	for _, rec := range doc {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	return vecmath.Rank(vector, records, k)
}

// Count returns the number of records stored for documentID.
func (s *VectorStore) Count(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents[documentID]), nil
}

// DeleteDocument removes every record of documentID.
func (s *VectorStore) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, documentID)
	return nil
}

// Dimensions returns the vector size.
func (s *VectorStore) Dimensions() int {
	return s.dimensions
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}
