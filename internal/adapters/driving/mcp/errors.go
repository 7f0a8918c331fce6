// Package mcp exposes document ingestion and question answering as MCP
// (Model Context Protocol) tools so assistants can drive docchat directly.
package mcp

import "errors"

var (
	// ErrMissingIngestionService is returned when the ingestion service is not provided.
	ErrMissingIngestionService = errors.New("mcp: ingestion service is required")

	// ErrMissingChatService is returned when the chat service is not provided.
	ErrMissingChatService = errors.New("mcp: chat service is required")
)
