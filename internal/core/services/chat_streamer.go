package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// ChatStreamer composes the grounding system prompt and streams the answer.
type ChatStreamer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	model   string
}

// NewChatStreamer creates a streamer. model may be empty to use the LLM's default.
func NewChatStreamer(llm driven.LLMService, prompts driven.PromptStore, model string) *ChatStreamer {
	return &ChatStreamer{llm: llm, prompts: prompts, model: model}
}

// Stream prepends a system prompt built from contextText to messages and streams
// the generation. Failures before the first token are returned directly and
// no channel is produced. Cancelling ctx stops generation; the channel is then
// closed without an error token.
func (s *ChatStreamer) Stream(
	ctx context.Context,
	messages []domain.Message,
	contextText string,
) (<-chan domain.Token, error) {
	if err := domain.ValidateConversation(messages); err != nil {
		return nil, err
	}

	msgs := make([]driven.ChatMessage, 0, len(messages)+1)
	msgs = append(msgs, driven.ChatMessage{
		Role:    string(domain.RoleSystem),
		Content: renderSystemPrompt(s.prompts, contextText),
	})
	msgs = append(msgs, driven.ToChatMessages(messages)...)

	upstream, err := s.llm.Stream(ctx, msgs, driven.ChatOptions{Model: s.model})
	if err != nil {
		return nil, fmt.Errorf("start stream: %w", err)
	}

	first, ok, err := firstToken(ctx, upstream)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.Token)
	if !ok {
		close(out)
		return out, nil
	}

	go forwardTokens(ctx, first, upstream, out)
	return out, nil
}

// firstToken waits for the first token so start-up failures stay synchronous.
func firstToken(ctx context.Context, upstream <-chan domain.Token) (domain.Token, bool, error) {
	select {
	case <-ctx.Done():
		return domain.Token{}, false, fmt.Errorf("%w: %w", domain.ErrStreamAborted, ctx.Err())
	case tok, ok := <-upstream:
		if !ok {
			return domain.Token{}, false, nil
		}
		if tok.Err != nil {
			return domain.Token{}, false, fmt.Errorf("stream: %w", tok.Err)
		}
		return tok, true, nil
	}
}

// forwardTokens copies upstream to out until upstream closes or ctx ends.
func forwardTokens(ctx context.Context, first domain.Token, upstream <-chan domain.Token, out chan<- domain.Token) {
	defer close(out)

	send := func(tok domain.Token) bool {
		select {
		case out <- tok:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !send(first) {
		logger.Debug("Chat stream abandoned by caller")
		return
	}
	for tok := range upstream {
		if tok.Err != nil && isAbort(ctx, tok.Err) {
			logger.Debug("Chat stream abandoned by caller")
			return
		}
		if !send(tok) {
			logger.Debug("Chat stream abandoned by caller")
			return
		}
		if tok.Err != nil {
			logger.Warn("Chat stream failed mid-generation: %v", tok.Err)
			return
		}
	}
}

func isAbort(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, domain.ErrStreamAborted) ||
		errors.Is(err, context.Canceled)
}
