package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// IngestInput is the input schema for the ingest_document tool.
type IngestInput struct {
	FileURL string `json:"file_url" jsonschema:"http(s) URL of the PDF, text or CSV file to index"`
	FileID  string `json:"file_id" jsonschema:"identifier to store the document under"`
}

// IngestOutput is the output schema for the ingest_document tool.
type IngestOutput struct {
	Status string `json:"status"`
	FileID string `json:"file_id"`
}

// HistoryMessage is one prior turn passed to ask_document.
type HistoryMessage struct {
	Role    string `json:"role" jsonschema:"user or assistant"`
	Content string `json:"content"`
}

// AskInput is the input schema for the ask_document tool.
type AskInput struct {
	FileID   string           `json:"file_id" jsonschema:"identifier of a previously ingested document"`
	Question string           `json:"question" jsonschema:"the question to answer"`
	History  []HistoryMessage `json:"history,omitempty" jsonschema:"earlier conversation turns, oldest first"`
}

// AskOutput is the output schema for the ask_document tool.
type AskOutput struct {
	Answer string `json:"answer"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Fetch a PDF, text or CSV file and index it for question answering",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_document",
		Description: "Answer a question using only the content of one ingested document",
	}, s.handleAsk)
}

// handleIngest handles the ingest_document tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	status, err := s.ports.Ingestion.Ingest(ctx, domain.IngestRequest{
		FileURL: input.FileURL,
		FileID:  input.FileID,
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, IngestOutput{Status: status, FileID: input.FileID}, nil
}

// handleAsk handles the ask_document tool invocation. The streamed answer is
// collected before returning.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	messages := make([]domain.Message, 0, len(input.History)+1)
	for _, h := range input.History {
		messages = append(messages, domain.Message{Role: domain.Role(h.Role), Content: h.Content})
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: input.Question})

	tokens, err := s.ports.Chat.Chat(ctx, domain.ChatRequest{Messages: messages, FileID: input.FileID})
	if err != nil {
		return nil, AskOutput{}, err
	}

	var answer strings.Builder
	for tok := range tokens {
		if tok.Err != nil {
			return nil, AskOutput{}, fmt.Errorf("answer interrupted: %w", tok.Err)
		}
		answer.WriteString(tok.Text)
	}
	if err := ctx.Err(); err != nil {
		return nil, AskOutput{}, fmt.Errorf("%w: %w", domain.ErrStreamAborted, err)
	}
	return nil, AskOutput{Answer: answer.String()}, nil
}
