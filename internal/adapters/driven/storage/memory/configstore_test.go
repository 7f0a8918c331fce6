package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SeedIsCopied(t *testing.T) {
	seed := map[string]any{"store.backend": "memory"}
	store := NewConfigStore(seed)

	seed["store.backend"] = "pgvector"

	assert.Equal(t, "memory", store.GetString("store.backend"))
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore(nil)

	require.NoError(t, store.Set("llm.model", "gpt-4o-mini"))
	require.NoError(t, store.Set("retrieval.top_k", int64(8)))
	require.NoError(t, store.Set("debug", true))

	assert.Equal(t, "gpt-4o-mini", store.GetString("llm.model"))
	assert.Equal(t, 8, store.GetInt("retrieval.top_k"))
	assert.True(t, store.GetBool("debug"))
	assert.Equal(t, []string{"debug", "llm.model", "retrieval.top_k"}, store.Keys())
}

func TestConfigStore_EmptyStringDeletes(t *testing.T) {
	store := NewConfigStore(map[string]any{"store.dsn": "postgres://db"})

	require.NoError(t, store.Set("store.dsn", ""))

	_, ok := store.Get("store.dsn")
	assert.False(t, ok)
}

func TestConfigStore_TypeMismatchReturnsZero(t *testing.T) {
	store := NewConfigStore(map[string]any{"k": "not a number"})

	assert.Equal(t, 0, store.GetInt("k"))
	assert.False(t, store.GetBool("k"))
	assert.Nil(t, store.GetStringSlice("k"))
	assert.Equal(t, "", store.GetString("missing"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"typed": []string{"a", "b"},
		"mixed": []any{"a", 1, "b"},
	})

	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("typed"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("mixed"))
}

func TestConfigStore_SaveLoadPath(t *testing.T) {
	store := NewConfigStore(nil)

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore(nil)
	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("key", n)
			_ = store.GetInt("key")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("key")
	assert.True(t, ok)
}
