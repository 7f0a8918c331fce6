// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

const provider = "ollama"

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the default LLM model (default: llama3.2).
	Model string

	// Timeout bounds a non-streamed completion (default: 120s).
	Timeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// LLMService provides LLM operations using Ollama's /api/chat endpoint.
type LLMService struct {
	client  *http.Client
	baseURL string
	model   string
	timeout time.Duration
}

type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   any           `json:"format,omitempty"`
	Options  *options      `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is one NDJSON line of /api/chat output, or the whole
// body when streaming is off.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
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
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Complete runs a single non-streamed chat. A ResponseFormat schema is passed
// through Ollama's format field.
func (s *LLMService) Complete(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.post(ctx, s.buildRequest(messages, opts, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", chatResp.Error)
	}
	return chatResp.Message.Content, nil
}

// Stream runs a streamed chat. Ollama emits one JSON object per line until
// a line with done set.
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

	decoder := json.NewDecoder(resp.Body)
	for {
		var chunk chatResponse
		if err := decoder.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: stream ended early", domain.ErrUpstreamUnavailable)
			}
			streamio.Fail(ctx, ch, fmt.Errorf("ollama: read stream: %w", err))
			return
		}
		if chunk.Error != "" {
			streamio.Fail(ctx, ch, fmt.Errorf("ollama stream error: %s", chunk.Error))
			return
		}
		if chunk.Message.Content != "" {
			if !streamio.Send(ctx, ch, domain.Token{Text: chunk.Message.Content}) {
				return
			}
		}
		if chunk.Done {
			return
		}
	}
}

func (s *LLMService) buildRequest(messages []driven.ChatMessage, opts driven.ChatOptions, stream bool) chatRequest {
	chatMessages := make([]chatMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	model := s.model
	if opts.Model != "" {
		model = opts.Model
	}
	temperature := opts.Temperature
	req := chatRequest{
		Model:    model,
		Messages: chatMessages,
		Stream:   stream,
		Options: &options{
			NumPredict:  opts.MaxTokens,
			Temperature: &temperature,
		},
	}
	if opts.ResponseFormat != nil {
		req.Format = opts.ResponseFormat.Schema
	}
	return req
}

func (s *LLMService) post(ctx context.Context, reqBody chatRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, httperr.FromTransport(ctx, provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		var errResp chatResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, httperr.FromResponse(provider, resp, body, errResp.Error)
	}
	return resp, nil
}

// ModelName returns the name of the default LLM model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This validates connectivity without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

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
