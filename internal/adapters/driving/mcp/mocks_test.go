package mcp

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	got domain.IngestRequest
	err error
}

func (m *mockIngestionService) Ingest(_ context.Context, req domain.IngestRequest) (string, error) {
	m.got = req
	if m.err != nil {
		return "", m.err
	}
	return domain.StatusDocumentStored, nil
}

func (m *mockIngestionService) IngestFile(
	_ context.Context,
	_ string,
	_ *domain.RawFile,
) (*domain.IngestionReport, error) {
	return nil, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	got    domain.ChatRequest
	tokens []domain.Token
	err    error
}

func (m *mockChatService) Chat(_ context.Context, req domain.ChatRequest) (<-chan domain.Token, error) {
	m.got = req
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.Token, len(m.tokens))
	for _, tok := range m.tokens {
		ch <- tok
	}
	close(ch)
	return ch, nil
}

// mockChunkCounter is a mock ChunkCounter.
type mockChunkCounter struct {
	counts map[string]int
	err    error
}

func (m *mockChunkCounter) Count(_ context.Context, documentID string) (int, error) {
	return m.counts[documentID], m.err
}

func validPorts() *Ports {
	return &Ports{Ingestion: &mockIngestionService{}, Chat: &mockChatService{}}
}
