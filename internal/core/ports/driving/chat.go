package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ChatService answers conversational questions about an ingested document.
type ChatService interface {
	// Chat validates the request, optionally retrieves context scoped to
	// req.FileID, and streams the generated answer. Failures before the
	// first token are returned directly and no stream is produced.
	// Cancelling ctx abandons generation.
	Chat(ctx context.Context, req domain.ChatRequest) (<-chan domain.Token, error)
}
