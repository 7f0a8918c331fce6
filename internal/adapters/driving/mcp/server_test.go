package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("missing ports returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingIngestionService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(validPorts())
		require.NoError(t, err)
		assert.NotNil(t, server)
	})

	t.Run("chunk counter registers document resource", func(t *testing.T) {
		ports := validPorts()
		ports.Chunks = &mockChunkCounter{}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestServer_RunHTTPStopsOnCancel(t *testing.T) {
	server, err := NewServer(validPorts())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- server.RunHTTP(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunHTTP did not return after cancel")
	}
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil ingestion service returns error", func(t *testing.T) {
		ports := &Ports{Chat: &mockChatService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingIngestionService)
	})

	t.Run("nil chat service returns error", func(t *testing.T) {
		ports := &Ports{Ingestion: &mockIngestionService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingChatService)
	})

	t.Run("required ports are valid", func(t *testing.T) {
		assert.NoError(t, validPorts().Validate())
	})
}
