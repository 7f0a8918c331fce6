package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockConfigStore implements driven.ConfigStore for testing.
type mockConfigStore struct {
	data   map[string]any
	setErr error
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{data: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	if s, ok := m.data[key].(string); ok {
		return s
	}
	return ""
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.data[key].(bool)
	return b
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	s, _ := m.data[key].([]string)
	return s
}

func (m *mockConfigStore) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockConfigStore) Save() error { return m.setErr }
func (m *mockConfigStore) Load() error { return nil }
func (m *mockConfigStore) Path() string {
	return "/tmp/docchat-test/config.toml"
}

// mockAIValidator implements driven.AIConfigValidator for testing.
type mockAIValidator struct {
	embedErr   error
	llmErr     error
	embedCalls int
	llmCalls   int
}

func (m *mockAIValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	m.embedCalls++
	return m.embedErr
}

func (m *mockAIValidator) ValidateLLM(_ *domain.LLMSettings) error {
	m.llmCalls++
	return m.llmErr
}

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Vectors are derived from the text so callers can check ordering.
type mockEmbeddingService struct {
	dims int

	// batchFn, when set, replaces the default EmbedBatch behaviour.
	batchFn func(ctx context.Context, call int, texts []string) ([][]float32, error)

	embedErr   error
	embedCalls atomic.Int64
	batchCalls atomic.Int64
}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	dims := m.Dimensions()
	v := make([]float32, dims)
	for i := range v {
		v[i] = float32(len(text) + i)
	}
	if dims > 0 {
		var sum int
		for _, r := range text {
			sum += int(r)
		}
		v[0] = float32(sum)
	}
	return v
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	call := int(m.batchCalls.Add(1))
	if m.batchFn != nil {
		return m.batchFn(ctx, call, texts)
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 4
}

func (m *mockEmbeddingService) ModelName() string          { return "mock-embed" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// mockVectorStore implements driven.VectorStore for testing.
type mockVectorStore struct {
	mu      sync.Mutex
	records map[string]domain.ChunkRecord
	dims    int

	// upsertFn, when set, decides the outcome of each Upsert call.
	upsertFn func(call int, records []domain.ChunkRecord) error

	upsertCalls atomic.Int64
	searchErr   error
	lastSearch  struct {
		documentID string
		k          int
	}
}

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{records: make(map[string]domain.ChunkRecord), dims: 4}
}

func (m *mockVectorStore) Upsert(_ context.Context, records []domain.ChunkRecord) error {
	call := int(m.upsertCalls.Add(1))
	if m.upsertFn != nil {
		if err := m.upsertFn(call, records); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[r.ID] = r
	}
	return nil
}

func (m *mockVectorStore) Search(_ context.Context, documentID string, _ []float32, k int) ([]domain.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSearch.documentID = documentID
	m.lastSearch.k = k
	if m.searchErr != nil {
		return nil, m.searchErr
	}

	var hits []domain.ScoredChunk
	for _, r := range m.records {
		if r.DocumentID == documentID {
			hits = append(hits, domain.ScoredChunk{Record: r, Score: 1 / float64(1+r.Position)})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *mockVectorStore) Count(_ context.Context, documentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

func (m *mockVectorStore) DeleteDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.records {
		if r.DocumentID == documentID {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *mockVectorStore) Dimensions() int { return m.dims }
func (m *mockVectorStore) Close() error    { return nil }

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	mu sync.Mutex

	completeReply string
	completeErr   error
	completeMsgs  []driven.ChatMessage
	completeOpts  driven.ChatOptions

	streamTokens []string
	streamErr    error
	// midStreamErr is sent after streamTokens when set.
	midStreamErr error
	// block keeps the stream open after streamTokens until ctx ends.
	block      bool
	streamMsgs []driven.ChatMessage
	streamDone chan struct{}
}

func (m *mockLLMService) Complete(_ context.Context, msgs []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeMsgs = msgs
	m.completeOpts = opts
	return m.completeReply, m.completeErr
}

func (m *mockLLMService) Stream(ctx context.Context, msgs []driven.ChatMessage, _ driven.ChatOptions) (<-chan domain.Token, error) {
	m.mu.Lock()
	m.streamMsgs = msgs
	m.streamDone = make(chan struct{})
	done := m.streamDone
	m.mu.Unlock()

	if m.streamErr != nil {
		close(done)
		return nil, m.streamErr
	}

	out := make(chan domain.Token)
	go func() {
		defer close(done)
		defer close(out)
		send := func(tok domain.Token) bool {
			select {
			case out <- tok:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, t := range m.streamTokens {
			if !send(domain.Token{Text: t}) {
				return
			}
		}
		if m.midStreamErr != nil {
			send(domain.Token{Err: m.midStreamErr})
			return
		}
		if m.block {
			<-ctx.Done()
			send(domain.Token{Err: fmt.Errorf("%w: %w", domain.ErrStreamAborted, ctx.Err())})
		}
	}()
	return out, nil
}

func (m *mockLLMService) systemPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.streamMsgs) == 0 {
		return ""
	}
	return m.streamMsgs[0].Content
}

func (m *mockLLMService) ModelName() string          { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
	err     error
	reloads int
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("prompt not found: " + name)
	}
	return p, nil
}

func (m *mockPromptStore) Reload() { m.reloads++ }

// mockFetcher implements driven.FileFetcher for testing.
type mockFetcher struct {
	file *domain.RawFile
	err  error
	urls []string
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (*domain.RawFile, error) {
	m.urls = append(m.urls, url)
	if m.err != nil {
		return nil, m.err
	}
	return m.file, nil
}

// mockLoaderRegistry implements driven.LoaderRegistry by splitting content on blank lines.
type mockLoaderRegistry struct {
	err error
}

func (m *mockLoaderRegistry) Load(_ context.Context, file *domain.RawFile) ([]domain.Segment, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(file.Content) == 0 {
		return nil, nil
	}
	return []domain.Segment{{Text: string(file.Content), Metadata: map[string]any{"source": file.URL}}}, nil
}

func (m *mockLoaderRegistry) Register(_ driven.Loader) {}

func (m *mockLoaderRegistry) SupportedMediaTypes() []domain.MediaType {
	return domain.SupportedMediaTypes()
}

// mockSplitter implements driven.TextSplitter by emitting one chunk per line.
type mockSplitter struct {
	err error
}

func (m *mockSplitter) Split(_ context.Context, segments []domain.Segment) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	var chunks []domain.Chunk
	for _, seg := range segments {
		for _, line := range splitLines(seg.Text) {
			chunks = append(chunks, domain.Chunk{Position: len(chunks), Content: line, Metadata: seg.Metadata})
		}
	}
	return chunks, nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if line := s[start:i]; line != "" {
				out = append(out, line)
			}
			start = i + 1
		}
	}
	return out
}

func mustDefaultPrompt(t *testing.T, name string) string {
	t.Helper()
	p, ok := driven.DefaultPrompt(name)
	require.True(t, ok, name)
	return p
}
