package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// TextSplitter turns loaded segments into overlapping chunks bounded in length.
type TextSplitter interface {
	// Split returns chunks in document order with positions assigned.
	Split(ctx context.Context, segments []domain.Segment) ([]domain.Chunk, error)
}
