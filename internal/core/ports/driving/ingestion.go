package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// IngestionService indexes uploaded documents.
type IngestionService interface {
	// Ingest fetches, loads, splits, embeds and stores a document.
	// Returns domain.StatusDocumentStored on success. A partially stored
	// document returns a *domain.PartialIngestionError.
	Ingest(ctx context.Context, req domain.IngestRequest) (string, error)

	// IngestFile indexes an already fetched file under documentID and
	// returns the per-batch report alongside any error.
	IngestFile(ctx context.Context, documentID string, file *domain.RawFile) (*domain.IngestionReport, error)
}
