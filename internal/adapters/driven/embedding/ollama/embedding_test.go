package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *EmbeddingService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewEmbeddingService(Config{BaseURL: server.URL + "/", Model: "tiny", Dimensions: 2})
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(Config{})

	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 768, svc.Dimensions())

	_, err = NewEmbeddingService(Config{Model: "mystery"})
	assert.ErrorContains(t, err, "unknown dimensions")
}

func TestEmbedBatch(t *testing.T) {
	var got embedRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"embeddings":[[1,0],[0,1]]}`))
	})

	vectors, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, embedRequest{Model: "tiny", Input: []string{"a", "b"}}, got)
}

func TestEmbed(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.5,0.5]]}`))
	})

	vector, err := svc.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vector)
}

func TestEmbedBatch_CountAndDimensionChecks(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,0]]}`))
	})
	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "got 1 embeddings for 2 inputs")

	svc = newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,0,0]]}`))
	})
	_, err = svc.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbedBatch_Errors(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"tiny\" not found"}`))
	})
	_, err := svc.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, `model "tiny" not found`)
	assert.False(t, domain.IsTransient(err))

	svc = newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err = svc.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	})

	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
