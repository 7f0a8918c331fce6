package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/app"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error

	setEmbedding []string
	setLLM       []string
	setStore     []string
}

func newMockSettings() *mockSettingsService {
	s := domain.DefaultAppSettings()
	s.Embedding.APIKey = "sk-test-embedding-key"
	s.LLM.APIKey = "sk-test-llm-key"
	return &mockSettingsService{settings: s}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.setEmbedding = []string{string(p), model, apiKey}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.setLLM = []string{string(p), model, apiKey}
	return nil
}

func (m *mockSettingsService) SetStore(b domain.StoreBackend, dsnOrPath string) error {
	m.setStore = []string{string(b), dsnOrPath}
	return nil
}

func (m *mockSettingsService) Validate() error                 { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error  { return nil }
func (m *mockSettingsService) ValidateLLMConfig() error        { return nil }

// fakeEmbedding maps text to a 2-d vector by keyword.
type fakeEmbedding struct{}

func (fakeEmbedding) vector(text string) []float32 {
	if strings.Contains(strings.ToLower(text), "refund") {
		return []float32{1, 0}
	}
	return []float32{0, 1}
}

func (f fakeEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	return f.vector(text), nil
}

func (f fakeEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (fakeEmbedding) Dimensions() int              { return 2 }
func (fakeEmbedding) ModelName() string            { return "fake-embed" }
func (fakeEmbedding) Ping(_ context.Context) error { return nil }
func (fakeEmbedding) Close() error                 { return nil }

// fakeLLM always asks for retrieval and answers with the system prompt it saw.
type fakeLLM struct {
	mu     sync.Mutex
	system string
}

func (f *fakeLLM) Complete(context.Context, []driven.ChatMessage, driven.ChatOptions) (string, error) {
	return `{"answer":"yes"}`, nil
}

func (f *fakeLLM) Stream(_ context.Context, msgs []driven.ChatMessage, _ driven.ChatOptions) (<-chan domain.Token, error) {
	f.mu.Lock()
	f.system = msgs[0].Content
	f.mu.Unlock()
	ch := make(chan domain.Token, 2)
	ch <- domain.Token{Text: "Refunds take "}
	ch <- domain.Token{Text: "14 days."}
	close(ch)
	return ch, nil
}

func (f *fakeLLM) systemPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.system
}

func (f *fakeLLM) ModelName() string            { return "fake-llm" }
func (f *fakeLLM) Ping(_ context.Context) error { return nil }
func (f *fakeLLM) Close() error                 { return nil }

// useFakes installs settings and an app factory backed by in-memory fakes.
// The store is shared across commands so ingest and chat see the same data.
func useFakes(t *testing.T) (*mockSettingsService, *fakeLLM, driven.VectorStore) {
	t.Helper()
	settings := newMockSettings()
	settings.settings.Ingestion.InterBatchDelay = -1
	settings.settings.Ingestion.BatchSize = 2
	llm := &fakeLLM{}
	store := memory.NewVectorStore(2)
	promptDir := t.TempDir()

	oldSettings, oldFactory, oldTerminal := settingsService, appFactory, isTerminal
	SetSettingsService(settings)
	SetAppFactory(func(ctx context.Context, opts app.Options) (*app.App, error) {
		opts.Embedding = fakeEmbedding{}
		opts.LLM = llm
		opts.Store = store
		opts.PromptDir = promptDir
		return app.New(ctx, opts)
	})
	isTerminal = func() bool { return false }
	t.Cleanup(func() {
		settingsService, appFactory, isTerminal = oldSettings, oldFactory, oldTerminal
	})
	return settings, llm, store
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	var in io.Reader = strings.NewReader(stdin)
	rootCmd.SetIn(in)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores defaults so flags set by one test do not leak into the next.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
