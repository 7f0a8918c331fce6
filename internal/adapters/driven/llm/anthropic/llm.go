// Package anthropic provides an LLM service adapter using the Anthropic API.
package anthropic

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
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

const provider = "anthropic"

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the default LLM model (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout bounds a non-streamed completion (default: 120s).
	Timeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// LLMService provides LLM operations using the Anthropic Messages API.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
}

type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
	Stream      bool              `json:"stream,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string    `json:"stop_reason"`
	Error      *apiError `json:"error,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// streamEvent covers the event payloads the adapter reads:
// content_block_delta, message_stop and error.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *apiError `json:"error,omitempty"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
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

// Complete runs a single Messages call. Anthropic has no schema-constrained
// output mode here, so a ResponseFormat is expressed as a system instruction.
func (s *LLMService) Complete(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reqBody, err := s.buildRequest(messages, opts, false)
	if err != nil {
		return "", err
	}
	resp, err := s.post(ctx, reqBody)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var msgResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	var text strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic: no text content returned")
	}
	return text.String(), nil
}

// Stream runs a streamed Messages call and forwards text deltas.
func (s *LLMService) Stream(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
) (<-chan domain.Token, error) {
	reqBody, err := s.buildRequest(messages, opts, true)
	if err != nil {
		return nil, err
	}
	resp, err := s.post(ctx, reqBody)
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

	stopped := false
	err := streamio.ReadSSE(resp.Body, func(ev streamio.Event) error {
		var payload streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			return fmt.Errorf("decode %s event: %w", ev.Name, err)
		}
		switch payload.Type {
		case "content_block_delta":
			if payload.Delta.Type == "text_delta" && payload.Delta.Text != "" {
				if !streamio.Send(ctx, ch, domain.Token{Text: payload.Delta.Text}) {
					return streamio.ErrStop
				}
			}
		case "message_stop":
			stopped = true
			return streamio.ErrStop
		case "error":
			msg := "unknown error"
			if payload.Error != nil {
				msg = payload.Error.Type + ": " + payload.Error.Message
			}
			return fmt.Errorf("anthropic stream error: %s", msg)
		}
		return nil
	})

	switch {
	case err != nil:
		streamio.Fail(ctx, ch, fmt.Errorf("anthropic: read stream: %w", err))
	case !stopped && ctx.Err() == nil:
		streamio.Fail(ctx, ch, fmt.Errorf("anthropic: %w: stream ended early", domain.ErrUpstreamUnavailable))
	}
}

// buildRequest lifts system messages into the top-level system field.
func (s *LLMService) buildRequest(messages []driven.ChatMessage, opts driven.ChatOptions, stream bool) (messagesRequest, error) {
	var system []string
	var chatMessages []messagesMessage
	for _, msg := range messages {
		if msg.Role == string(domain.RoleSystem) {
			system = append(system, msg.Content)
			continue
		}
		chatMessages = append(chatMessages, messagesMessage{Role: msg.Role, Content: msg.Content})
	}

	if rf := opts.ResponseFormat; rf != nil {
		schema, err := json.Marshal(rf.Schema)
		if err != nil {
			return messagesRequest{}, fmt.Errorf("marshal response schema: %w", err)
		}
		system = append(system, "Reply with a single JSON object matching this schema and nothing else:\n"+string(schema))
	}

	model := s.model
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := opts.Temperature

	return messagesRequest{
		Model:       model,
		Messages:    chatMessages,
		MaxTokens:   maxTokens,
		System:      strings.Join(system, "\n\n"),
		Temperature: &temperature,
		Stream:      stream,
	}, nil
}

func (s *LLMService) post(ctx context.Context, reqBody messagesRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, httperr.FromTransport(ctx, provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		var errResp messagesResponse
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

// Ping validates the service is reachable by checking the /v1/models endpoint.
// This validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

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
