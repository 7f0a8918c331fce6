package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Server exposes document ingestion and document-scoped chat to MCP clients.
// Tools: ingest_document stores a document under a caller-chosen file id and
// ask_document answers a question from that document's chunks. Resources:
// docchat://formats lists the accepted media types and
// docchat://documents/{documentId} reports how many chunks a document has.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer registers the document tools and resources on a fresh MCP server.
// Ingestion and Chat are required. The document resource is only
// registered when Chunks is set.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "docchat",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, nil),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio, the transport editors use when they spawn
// `docchat mcp serve`. It blocks until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr for `docchat mcp serve --port`.
// Cancelling ctx shuts the listener down and returns nil.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("docchat MCP server listening on %s (ingest_document, ask_document)", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
