package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docchat", "prompts"), store.Dir())
	assert.NoDirExists(t, store.Dir(), "constructor must not touch disk")
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptQuestionCheck)
	require.NoError(t, err)

	for _, f := range []string{
		"question_check.txt",
		"chat_system.txt",
		"chat_system_no_context.txt",
		"README.md",
	} {
		assert.FileExists(t, filepath.Join(dir, f))
	}
}

func TestPromptStore_Load_ReturnsDefaultContent(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptChatSystem)

	require.NoError(t, err)
	assert.Contains(t, prompt, driven.ContextPlaceholder)
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Only answer about invoices.\n{{context}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_system.txt"), []byte(custom), 0600))
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptChatSystem)

	require.NoError(t, err)
	assert.Equal(t, custom, prompt)

	// Existing files are never overwritten by the defaults.
	data, err := os.ReadFile(filepath.Join(dir, "chat_system.txt"))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, _ = store.Load(driven.PromptQuestionCheck)

	require.NoError(t, os.Remove(filepath.Join(dir, "question_check.txt")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_system.txt"), []byte("  \n"), 0600))
	store.Reload()

	prompt, err := store.Load(driven.PromptQuestionCheck)
	require.NoError(t, err)
	expected, _ := driven.DefaultPrompt(driven.PromptQuestionCheck)
	assert.Equal(t, expected, prompt)

	prompt, err = store.Load(driven.PromptChatSystem)
	require.NoError(t, err)
	assert.Contains(t, prompt, driven.ContextPlaceholder)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent_prompt")

	assert.ErrorContains(t, err, "nonexistent_prompt")
}

func TestPromptStore_InitFailureUsesDefaults(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0600))
	store, err := NewPromptStore(filepath.Join(parent, "prompts"))
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptQuestionCheck)
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)

	_, err = store.Load("custom")
	assert.ErrorContains(t, err, "init failed")
}

func TestPromptStore_CachesUntilReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	first, err := store.Load(driven.PromptQuestionCheck)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "question_check.txt"), []byte("say yes"), 0600))

	cached, err := store.Load(driven.PromptQuestionCheck)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptQuestionCheck)
	require.NoError(t, err)
	assert.Equal(t, "say yes", fresh)
}

func TestPromptStore_TrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "question_check.txt"), []byte("\n\n  is it about the doc?  \n\n"), 0600))
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptQuestionCheck)

	require.NoError(t, err)
	assert.Equal(t, "is it about the doc?", prompt)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	const goroutines = 50
	results := make([]string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = store.Load(driven.PromptChatSystem)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestPromptStore_WatchReloadsEditedFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, err = store.Load(driven.PromptQuestionCheck)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "question_check.txt"), []byte("edited"), 0600))

	assert.Eventually(t, func() bool {
		p, err := store.Load(driven.PromptQuestionCheck)
		return err == nil && p == "edited"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
