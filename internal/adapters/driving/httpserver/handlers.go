package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

const (
	bodyPartialIngestion = "PARTIAL_INGESTION"
	bodyIngestFailed     = "Error uploading file to vectorDB"
	bodyChatFailed       = "Error generating response"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req domain.IngestRequest
	if !s.decode(w, r, &req) {
		return
	}

	status, err := s.ingestion.Ingest(r.Context(), req)
	if err != nil {
		logger.Error("Ingest %s: %v", req.FileID, err)
		code, body := ingestErrorResponse(err)
		http.Error(w, body, code)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if !s.decode(w, r, &req) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChatTimeout)
	defer cancel()

	tokens, err := s.chat.Chat(ctx, req)
	if err != nil {
		logger.Error("Chat %s: %v", req.FileID, err)
		http.Error(w, clientMessage(err, bodyChatFailed), chatErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for tok := range tokens {
		if tok.Err != nil {
			// Headers are gone; the client sees a truncated body.
			logger.Warn("Chat %s ended early: %v", req.FileID, tok.Err)
			cancel()
			break
		}
		if _, err := w.Write([]byte(tok.Text)); err != nil {
			logger.Debug("Chat %s client went away: %v", req.FileID, err)
			cancel()
			break
		}
		flusher.Flush()
	}
	// Drain so the forwarding goroutine can observe cancellation and exit.
	for range tokens {
	}
}

// decode reads a JSON body into v, answering 400 on malformed input.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("write response: %v", err)
	}
}

func ingestErrorResponse(err error) (int, string) {
	switch {
	case isBadRequest(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, err.Error()
	case domain.IsPartialIngestion(err):
		return http.StatusBadGateway, bodyPartialIngestion
	default:
		return http.StatusInternalServerError, bodyIngestFailed
	}
}

func chatErrorStatus(err error) int {
	switch {
	case isBadRequest(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage echoes validation errors and hides everything else.
func clientMessage(err error, fallback string) string {
	if isBadRequest(err) {
		return err.Error()
	}
	return fallback
}

func isBadRequest(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrMissingDocumentID) ||
		errors.Is(err, domain.ErrEmptyConversation) ||
		errors.Is(err, domain.ErrLastMessageNotUser)
}
