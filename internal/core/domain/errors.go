package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a media type with no registered loader.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrMissingDocumentID indicates a vector search was attempted without a document scope.
	// Every search must be filtered by document, so this is never defaulted.
	ErrMissingDocumentID = errors.New("document id is required")

	// ErrDimensionMismatch indicates a vector does not match the configured dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyConversation indicates a chat request carried no messages.
	ErrEmptyConversation = errors.New("conversation is empty")

	// ErrLastMessageNotUser indicates the final message was not authored by the user.
	ErrLastMessageNotUser = errors.New("last message must be from user")

	// ErrNoExtractableText indicates a document loaded cleanly but produced no chunks.
	ErrNoExtractableText = errors.New("no extractable text")

	// ErrStreamAborted indicates the caller went away during generation.
	// It is never reported to the caller, only used to stop work.
	ErrStreamAborted = errors.New("stream aborted")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable indicates the vector store is not configured or unreachable.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstreamUnavailable indicates a retryable upstream failure such as a 5xx or timeout.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// LoadError reports an unreadable or corrupt document of a supported type.
// It is fatal to the ingestion request and never retried.
type LoadError struct {
	MediaType MediaType
	Reason    string
	Err       error
}

func (e *LoadError) Error() string {
	msg := "load " + string(e.MediaType) + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError builds a LoadError.
func NewLoadError(mediaType MediaType, reason string, err error) *LoadError {
	return &LoadError{MediaType: mediaType, Reason: reason, Err: err}
}

// EmbeddingError reports a failed embedding call.
type EmbeddingError struct {
	// Op is the operation that failed (e.g. "embed one", "embed many").
	Op string

	// Offset is the index of the first text in the failing sub-batch, or -1.
	Offset int

	Err error
}

func (e *EmbeddingError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("embedding %s (offset %d): %v", e.Op, e.Offset, e.Err)
	}
	return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// TransientStoreError marks a vector store failure as worth retrying.
type TransientStoreError struct {
	Op  string
	Err error

	// RetryAfter is the server-suggested wait, zero when unknown.
	RetryAfter time.Duration
}

func (e *TransientStoreError) Error() string {
	return "transient store error: " + e.Op + ": " + e.Err.Error()
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// Transient reports true. Used by IsTransient.
func (e *TransientStoreError) Transient() bool { return true }

// IsTransient reports whether err (or anything it wraps) is marked transient.
func IsTransient(err error) bool {
	var t interface{ Transient() bool }
	if errors.As(err, &t) {
		return t.Transient()
	}
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamUnavailable)
}

// IngestionError reports that every batch of a document failed permanently.
type IngestionError struct {
	Report *IngestionReport
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed: all %d batches failed (first cause: %v)",
		len(e.Report.Batches), e.Report.FirstCause())
}

func (e *IngestionError) Unwrap() error { return e.Report.FirstCause() }

// PartialIngestionError reports that some batches were stored and others
// permanently failed. The document is partially indexed.
type PartialIngestionError struct {
	Report *IngestionReport
}

func (e *PartialIngestionError) Error() string {
	failed := e.Report.FailedBatches()
	idx := make([]string, len(failed))
	for i, b := range failed {
		idx[i] = strconv.Itoa(b)
	}
	return fmt.Sprintf("partial ingestion: %d of %d batches failed [%s] (first cause: %v)",
		len(failed), len(e.Report.Batches), strings.Join(idx, ","), e.Report.FirstCause())
}

func (e *PartialIngestionError) Unwrap() error { return e.Report.FirstCause() }

// IsPartialIngestion reports whether err is a PartialIngestionError.
func IsPartialIngestion(err error) bool {
	var p *PartialIngestionError
	return errors.As(err, &p)
}

// GateAmbiguousResponse records an intent classification that was neither a
// clean affirmative nor a clean negative. It is logged, never returned.
type GateAmbiguousResponse struct {
	Raw string
	Err error
}

func (e *GateAmbiguousResponse) Error() string {
	if e.Err != nil {
		return "ambiguous gate response: " + e.Err.Error()
	}
	return fmt.Sprintf("ambiguous gate response: %q", e.Raw)
}

func (e *GateAmbiguousResponse) Unwrap() error { return e.Err }
