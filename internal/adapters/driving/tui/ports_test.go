package tui

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// MockChatService implements driving.ChatService for testing.
type MockChatService struct {
	mu       sync.Mutex
	ChatFunc func(ctx context.Context, req domain.ChatRequest) (<-chan domain.Token, error)
	requests []domain.ChatRequest
}

func (m *MockChatService) Chat(ctx context.Context, req domain.ChatRequest) (<-chan domain.Token, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	ch := make(chan domain.Token)
	close(ch)
	return ch, nil
}

func (m *MockChatService) Requests() []domain.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChatRequest(nil), m.requests...)
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ports   *Ports
		wantErr error
	}{
		{"valid", &Ports{Chat: &MockChatService{}, FileID: "doc"}, nil},
		{"missing chat", &Ports{FileID: "doc"}, ErrMissingChatService},
		{"missing file id", &Ports{Chat: &MockChatService{}}, ErrMissingFileID},
		{"blank file id", &Ports{Chat: &MockChatService{}, FileID: "  "}, ErrMissingFileID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
