package domain

import "strings"

// Segment is a unit of text produced by a loader, such as a PDF page or a CSV row.
type Segment struct {
	// Text is the extracted content.
	Text string

	// Metadata holds structural hints from the source (e.g. "page", "row").
	Metadata map[string]any
}

// Chunk is a retrievable slice of a document produced by the splitter.
type Chunk struct {
	// Position is the ordinal position within the document, across all segments.
	Position int

	// Content is the chunk text. Never empty.
	Content string

	// Metadata is inherited from the segment the chunk came from.
	Metadata map[string]any
}

// ChunkRecord is a chunk as persisted in the vector store.
// Every record belongs to exactly one document and carries a vector
// whose length matches the embedding model in use.
type ChunkRecord struct {
	// ID is stable for a given (DocumentID, Position) so re-inserts overwrite.
	ID string

	// DocumentID is the partition key every search filters on.
	DocumentID string

	// Position is the chunk's ordinal position within the document.
	Position int

	// Text is the chunk content.
	Text string

	// Vector is the embedding of Text.
	Vector []float32
}

// Validate checks the record invariants against the expected dimensionality.
func (r ChunkRecord) Validate(dimensions int) error {
	switch {
	case r.DocumentID == "":
		return ErrMissingDocumentID
	case strings.TrimSpace(r.Text) == "":
		return ErrInvalidInput
	case dimensions > 0 && len(r.Vector) != dimensions:
		return ErrDimensionMismatch
	}
	return nil
}

// Batch groups records for a single insert call.
type Batch struct {
	// Index is the batch's position in the partition, starting at 0.
	Index int

	// Records are the chunk records in this batch.
	Records []ChunkRecord
}
