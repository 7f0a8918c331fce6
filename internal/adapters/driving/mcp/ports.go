package mcp

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// ChunkCounter reports how many chunks are stored for a document.
// driven.VectorStore satisfies it.
type ChunkCounter interface {
	Count(ctx context.Context, documentID string) (int, error)
}

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Ingestion indexes documents.
	Ingestion driving.IngestionService

	// Chat answers questions about an indexed document.
	Chat driving.ChatService

	// Chunks backs the document resource. Optional.
	Chunks ChunkCounter
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Ingestion == nil {
		return ErrMissingIngestionService
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
