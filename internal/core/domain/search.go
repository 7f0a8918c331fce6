package domain

// ScoredChunk is a single similarity search hit.
type ScoredChunk struct {
	// Record is the matched chunk record.
	Record ChunkRecord

	// Score is the similarity to the query, higher is closer.
	Score float64
}

// RetrievalResult is the per-request outcome of retrieval.
// It is never persisted.
type RetrievalResult struct {
	// Chunks are ranked closest first, at most the configured top K.
	Chunks []ScoredChunk

	// Context is the chunk texts joined by newlines.
	// Empty when nothing matched.
	Context string
}

// Texts returns the chunk texts in rank order.
func (r *RetrievalResult) Texts() []string {
	if r == nil {
		return nil
	}
	texts := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		texts[i] = c.Record.Text
	}
	return texts
}
