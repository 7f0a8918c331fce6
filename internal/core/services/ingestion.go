package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// chunkNamespace scopes chunk record IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docchat:chunk"))

// ChunkID returns the stable record ID for a chunk position within a document.
func ChunkID(documentID string, position int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(documentID+"\x00"+strconv.Itoa(position))).String()
}

// IngestionService runs the ingestion pipeline:
// fetch, load, split, embed, then batch insert.
type IngestionService struct {
	fetcher  driven.FileFetcher
	loaders  driven.LoaderRegistry
	splitter driven.TextSplitter
	embedder *Embedder
	inserter *BatchInserter
}

// NewIngestionService creates an ingestion pipeline.
func NewIngestionService(
	fetcher driven.FileFetcher,
	loaders driven.LoaderRegistry,
	splitter driven.TextSplitter,
	embedder *Embedder,
	inserter *BatchInserter,
) *IngestionService {
	return &IngestionService{
		fetcher:  fetcher,
		loaders:  loaders,
		splitter: splitter,
		embedder: embedder,
		inserter: inserter,
	}
}

// Ingest fetches req.FileURL and indexes it under req.FileID.
// It returns domain.StatusDocumentStored once every chunk is stored.
func (s *IngestionService) Ingest(ctx context.Context, req domain.IngestRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	logger.Section("Ingest")
	logger.Info("Fetching %s", req.FileURL)
	file, err := s.fetcher.Fetch(ctx, req.FileURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", req.FileURL, err)
	}

	if _, err := s.IngestFile(ctx, req.FileID, file); err != nil {
		return "", err
	}
	return domain.StatusDocumentStored, nil
}

// IngestFile indexes an already fetched file. The report is returned whenever
// the insert stage ran, including on partial failure.
func (s *IngestionService) IngestFile(
	ctx context.Context,
	documentID string,
	file *domain.RawFile,
) (*domain.IngestionReport, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, domain.ErrMissingDocumentID
	}
	if file == nil {
		return nil, domain.ErrInvalidInput
	}
	if !file.MediaType.IsSupported() {
		return nil, domain.NewLoadError(file.MediaType, "unsupported media type", domain.ErrUnsupportedType)
	}
	start := time.Now()

	segments, err := s.loaders.Load(ctx, file)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded %d segments from %s (%s)", len(segments), file.URL, file.MediaType)

	chunks, err := s.splitter.Split(ctx, segments)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	if len(chunks) == 0 {
		return nil, domain.NewLoadError(file.MediaType, "no extractable text", domain.ErrNoExtractableText)
	}
	logger.Debug("Split into %d chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, err
	}

	records, err := buildRecords(documentID, chunks, vectors, s.embedder.Dimensions())
	if err != nil {
		return nil, err
	}

	report, err := s.inserter.Insert(ctx, documentID, records)
	if err != nil {
		logger.Warn("Ingestion of %s incomplete: %v", documentID, err)
		return report, err
	}

	logger.Info("Stored %d chunks for %s in %s", report.StoredChunks(), documentID, time.Since(start).Round(time.Millisecond))
	return report, nil
}

// buildRecords pairs chunks with their vectors.
func buildRecords(documentID string, chunks []domain.Chunk, vectors [][]float32, dims int) ([]domain.ChunkRecord, error) {
	if len(vectors) != len(chunks) {
		return nil, &domain.EmbeddingError{
			Op:     "embed many",
			Offset: -1,
			Err:    fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)),
		}
	}

	records := make([]domain.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.ChunkRecord{
			ID:         ChunkID(documentID, c.Position),
			DocumentID: documentID,
			Position:   c.Position,
			Text:       c.Content,
			Vector:     vectors[i],
		}
		if err := records[i].Validate(dims); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", c.Position, err)
		}
	}
	return records, nil
}
