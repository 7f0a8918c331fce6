package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService runs the conversational pipeline:
// intent gate, optional scoped retrieval, then streamed generation.
type ChatService struct {
	gate      *IntentGate
	retriever *Retriever
	streamer  *ChatStreamer
}

// NewChatService creates a chat pipeline.
func NewChatService(gate *IntentGate, retriever *Retriever, streamer *ChatStreamer) *ChatService {
	return &ChatService{gate: gate, retriever: retriever, streamer: streamer}
}

// Chat answers the last user message of req, grounded on req.FileID when the
// gate decides retrieval is needed.
func (s *ChatService) Chat(ctx context.Context, req domain.ChatRequest) (<-chan domain.Token, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger.Section("Chat")
	start := time.Now()
	question, _ := domain.LastUserMessage(req.Messages)
	logger.Debug("Received %d messages for %s", len(req.Messages), req.FileID)

	var grounding string
	if s.gate.ShouldRetrieve(ctx, question) {
		result, err := s.retriever.Retrieve(ctx, question, req.FileID)
		if err != nil {
			return nil, fmt.Errorf("retrieve: %w", err)
		}
		grounding = result.Context
		logger.Debug("Retrieved %d documents for context", len(result.Chunks))
	} else {
		logger.Debug("Retrieval skipped")
	}

	tokens, err := s.streamer.Stream(ctx, req.Messages, grounding)
	if err != nil {
		return nil, err
	}
	logger.Debug("Stream started after %s", time.Since(start).Round(time.Millisecond))
	return tokens, nil
}
