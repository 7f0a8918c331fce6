package domain

import (
	"net/url"
	"strings"
	"time"
)

// StatusDocumentStored is returned by the ingestion entry point on success.
const StatusDocumentStored = "DOCUMENT_STORED"

// IngestRequest is the input to the ingestion entry point.
type IngestRequest struct {
	// FileURL is where the uploaded file can be fetched.
	FileURL string `json:"fileUrl"`

	// FileID is the caller-supplied document identifier.
	FileID string `json:"fileId"`
}

// Validate checks the request is well formed.
func (r IngestRequest) Validate() error {
	if strings.TrimSpace(r.FileID) == "" {
		return ErrMissingDocumentID
	}
	u, err := url.Parse(r.FileURL)
	if err != nil || u.Scheme == "" {
		return ErrInvalidInput
	}
	switch u.Scheme {
	case "http", "https", "file":
		return nil
	default:
		return ErrInvalidInput
	}
}

// BatchStatus is the final state of a batch insert.
type BatchStatus string

// Batch statuses.
const (
	BatchSucceeded BatchStatus = "succeeded"
	BatchFailed    BatchStatus = "failed"
)

// BatchOutcome records what happened to one batch.
type BatchOutcome struct {
	// Index is the batch index within the partition.
	Index int

	// Size is the number of records in the batch.
	Size int

	// Status is the final state after retries.
	Status BatchStatus

	// Attempts is how many insert calls were made.
	Attempts int

	// Err is the last error seen. Nil on success.
	Err error

	// Duration is the wall time spent on the batch including backoff.
	Duration time.Duration
}

// IngestionReport is the per-batch result of inserting a document's records.
type IngestionReport struct {
	// DocumentID is the document that was ingested.
	DocumentID string

	// Chunks is the total number of records submitted.
	Chunks int

	// Batches holds one outcome per batch, ordered by index.
	Batches []BatchOutcome
}

// Succeeded returns the number of batches that were stored.
func (r *IngestionReport) Succeeded() int {
	n := 0
	for _, b := range r.Batches {
		if b.Status == BatchSucceeded {
			n++
		}
	}
	return n
}

// FailedBatches returns the indices of batches that never succeeded.
func (r *IngestionReport) FailedBatches() []int {
	var failed []int
	for _, b := range r.Batches {
		if b.Status != BatchSucceeded {
			failed = append(failed, b.Index)
		}
	}
	return failed
}

// StoredChunks returns the number of records in successful batches.
func (r *IngestionReport) StoredChunks() int {
	n := 0
	for _, b := range r.Batches {
		if b.Status == BatchSucceeded {
			n += b.Size
		}
	}
	return n
}

// FirstCause returns the error of the lowest-indexed failed batch.
func (r *IngestionReport) FirstCause() error {
	for _, b := range r.Batches {
		if b.Status != BatchSucceeded && b.Err != nil {
			return b.Err
		}
	}
	return nil
}

// Err classifies the report: nil when every batch succeeded, an IngestionError
// when all failed, and a PartialIngestionError otherwise.
func (r *IngestionReport) Err() error {
	failed := len(r.FailedBatches())
	switch {
	case failed == 0:
		return nil
	case failed == len(r.Batches):
		return &IngestionError{Report: r}
	default:
		return &PartialIngestionError{Report: r}
	}
}
