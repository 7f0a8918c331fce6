// Package openai provides an LLM service adapter using the OpenAI API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/adapters/driven/httperr"
	"github.com/custodia-labs/docchat/internal/adapters/driven/llm/streamio"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

const provider = "openai"

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the default LLM model (default: gpt-4o-mini).
	Model string

	// Timeout bounds a non-streamed completion (default: 120s).
	// Streams are bounded by the caller's context only.
	Timeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// LLMService provides LLM operations using the OpenAI API.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
}

type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatCompletionMsg `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    *float64            `json:"temperature,omitempty"`
	Stream         bool                `json:"stream,omitempty"`
	ResponseFormat *responseFormat     `json:"response_format,omitempty"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &LLMService{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Complete runs a single chat completion. A ResponseFormat is sent as a
// strict json_schema so the reply is constrained to the schema.
func (s *LLMService) Complete(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.post(ctx, s.buildRequest(messages, opts, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", httperr.FromTransport(ctx, provider, fmt.Errorf("read response: %w", err))
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}

	choice := chatResp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("openai: model refused: %s", choice.Message.Refusal)
	}
	return choice.Message.Content, nil
}

// Stream runs a streamed chat completion over server-sent events.
// Non-200 responses are returned before any token is produced.
func (s *LLMService) Stream(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
) (<-chan domain.Token, error) {
	resp, err := s.post(ctx, s.buildRequest(messages, opts, true))
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.Token)
	go s.readStream(ctx, resp, ch)
	return ch, nil
}

func (s *LLMService) readStream(ctx context.Context, resp *http.Response, ch chan<- domain.Token) {
	defer close(ch)
	defer resp.Body.Close()

	finished := false
	err := streamio.ReadSSE(resp.Body, func(ev streamio.Event) error {
		if ev.Data == "[DONE]" {
			finished = true
			return streamio.ErrStop
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return fmt.Errorf("decode stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return fmt.Errorf("openai stream error: %s", chunk.Error.Message)
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				if !streamio.Send(ctx, ch, domain.Token{Text: choice.Delta.Content}) {
					return streamio.ErrStop
				}
			}
			if choice.FinishReason != nil {
				finished = true
			}
		}
		return nil
	})

	switch {
	case err != nil:
		streamio.Fail(ctx, ch, fmt.Errorf("openai: read stream: %w", err))
	case !finished && ctx.Err() == nil:
		streamio.Fail(ctx, ch, fmt.Errorf("openai: %w: stream ended early", domain.ErrUpstreamUnavailable))
	}
}

func (s *LLMService) buildRequest(messages []driven.ChatMessage, opts driven.ChatOptions, stream bool) chatCompletionRequest {
	chatMessages := make([]chatCompletionMsg, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatCompletionMsg{Role: msg.Role, Content: msg.Content}
	}

	model := s.model
	if opts.Model != "" {
		model = opts.Model
	}
	req := chatCompletionRequest{
		Model:    model,
		Messages: chatMessages,
		Stream:   stream,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	// Zero is meaningful for classification, so it is always sent.
	temperature := opts.Temperature
	req.Temperature = &temperature

	if rf := opts.ResponseFormat; rf != nil {
		req.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:   rf.Name,
				Schema: rf.Schema,
				Strict: true,
			},
		}
	}
	return req
}

// post sends a chat completion request and returns the response when the
// status is 200. Any other status is decoded into a classified error.
func (s *LLMService) post(ctx context.Context, reqBody chatCompletionRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if reqBody.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, httperr.FromTransport(ctx, provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		var errResp chatCompletionResponse
		msg := ""
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != nil {
			msg = errResp.Error.Message
		}
		return nil, httperr.FromResponse(provider, resp, body, msg)
	}
	return resp, nil
}

// ModelName returns the name of the default LLM model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return httperr.FromTransport(ctx, provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return httperr.FromResponse(provider, resp, body, "")
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
