package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for docchat resources.
	uriScheme = "docchat://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "formats",
		Name:        "formats",
		Description: "File formats accepted by ingest_document",
		MIMEType:    "application/json",
	}, s.handleFormatsResource)

	if s.ports.Chunks == nil {
		return
	}
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document",
		Description: "Index status of an ingested document",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

// handleFormatsResource lists the accepted media types.
func (s *Server) handleFormatsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	types := domain.SupportedMediaTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return jsonResource(req.Params.URI, names)
}

// documentInfo is the payload of the document resource.
type documentInfo struct {
	ID      string `json:"id"`
	Chunks  int    `json:"chunks"`
	Indexed bool   `json:"indexed"`
}

// handleDocumentResource reports how much of a document is indexed.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	n, err := s.ports.Chunks.Count(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	if n == 0 {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return jsonResource(req.Params.URI, documentInfo{ID: docID, Chunks: n, Indexed: true})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like docchat://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
