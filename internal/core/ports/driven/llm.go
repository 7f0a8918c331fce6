package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// LLMService provides language model operations for classification and answering.
//
// Implementations may include:
//   - OpenAI (GPT-4o family)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Complete runs a single non-streamed chat completion.
	Complete(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// Stream runs a streamed chat completion. Errors before the first token
	// are returned directly. The channel is closed when generation ends or
	// ctx is cancelled; a mid-stream failure arrives as a final Token with Err set.
	Stream(ctx context.Context, messages []ChatMessage, opts ChatOptions) (<-chan domain.Token, error)

	// ModelName returns the name of the default model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures a completion call.
type ChatOptions struct {
	// Model overrides the service's default model when set.
	Model string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// ResponseFormat constrains the output to a JSON schema when the
	// provider supports structured output. Providers without support ignore it.
	ResponseFormat *ResponseFormat
}

// ResponseFormat describes a structured output schema.
type ResponseFormat struct {
	// Name identifies the schema to the provider.
	Name string

	// Schema is a JSON schema document.
	Schema map[string]any
}

// ToChatMessages converts domain messages to the port format.
func ToChatMessages(messages []domain.Message) []ChatMessage {
	out := make([]ChatMessage, len(messages))
	for i, m := range messages {
		out[i] = ChatMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}
