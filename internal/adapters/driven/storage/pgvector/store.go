// Package pgvector provides a PostgreSQL implementation of driven.VectorStore
// using the pgvector extension.
//
// Each collection is a table keyed by chunk id. Searches read only the rows of
// one document through a btree index and rank them exactly by cosine distance.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// DefaultMaxConns caps the pool size.
const DefaultMaxConns = 10

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Config holds configuration for the pgvector store.
type Config struct {
	// DSN is the PostgreSQL connection string (required).
	DSN string

	// Collection is the table holding chunk records.
	Collection string

	// Dimensions is the vector size of the embedding column.
	Dimensions int

	// MaxConns caps the pool size (default 10).
	MaxConns int32
}

// Store persists chunk records in PostgreSQL.
type Store struct {
	pool       *pgxpool.Pool
	collection string
	table      string
	dimensions int
}

// NewStore connects, creates the extension and table if missing, and checks
// that an existing table matches the configured dimensions.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pgvector: DSN is required")
	}
	if !identifierPattern.MatchString(cfg.Collection) {
		return nil, fmt.Errorf("pgvector: invalid collection name %q", cfg.Collection)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("pgvector: dimensions must be positive")
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = DefaultMaxConns
	}

	// The vector type must exist before pooled connections register it.
	if err := ensureExtension(ctx, cfg.DSN); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgvector: parse DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgvector: create pool: %w", err)
	}

	s := &Store{
		pool:       pool,
		collection: cfg.Collection,
		table:      pgx.Identifier{cfg.Collection}.Sanitize(),
		dimensions: cfg.Dimensions,
	}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func ensureExtension(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("pgvector: connect: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector: create extension: %w", err)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          UUID PRIMARY KEY,
			document_id TEXT NOT NULL,
			position    INTEGER NOT NULL,
			text        TEXT NOT NULL,
			embedding   vector(%d) NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.table, s.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (document_id, position)`,
			pgx.Identifier{s.collection + "_document_idx"}.Sanitize(), s.table),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector: migrate: %w", err)
		}
	}

	// For vector columns the type modifier is the dimension count.
	var dims int
	err := s.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = $1::regclass AND attname = 'embedding'
	`, s.table).Scan(&dims)
	if err != nil {
		return fmt.Errorf("pgvector: read embedding column: %w", err)
	}
	if dims != s.dimensions {
		return fmt.Errorf("pgvector: table %s holds %d-dimension vectors, configured %d: %w",
			s.table, dims, s.dimensions, domain.ErrDimensionMismatch)
	}
	return nil
}

// Upsert writes the batch in one transaction, pipelined with pgx.Batch.
func (s *Store) Upsert(ctx context.Context, records []domain.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if err := rec.Validate(s.dimensions); err != nil {
			return fmt.Errorf("record %s: %w", rec.ID, err)
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, position, text, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			position    = EXCLUDED.position,
			text        = EXCLUDED.text,
			embedding   = EXCLUDED.embedding,
			updated_at  = NOW()
	`, s.table)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(query, rec.ID, rec.DocumentID, rec.Position, rec.Text, pgv.NewVector(rec.Vector))
		}
		results := tx.SendBatch(ctx, batch)
		for _, rec := range records {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("record %s: %w", rec.ID, err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return classify("upsert", err)
	}
	return nil
}

// Search ranks the rows of documentID by cosine distance. The document's rows
// are materialised first so the planner filters before ordering.
func (s *Store) Search(ctx context.Context, documentID string, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if documentID == "" {
		return nil, domain.ErrMissingDocumentID
	}
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("query: %w", domain.ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		WITH doc AS MATERIALIZED (
			SELECT id, position, text, embedding FROM %s WHERE document_id = $1
		)
		SELECT id::text, position, text, embedding, 1 - (embedding <=> $2) AS score
		FROM doc
		ORDER BY embedding <=> $2, position
		LIMIT $3
	`, s.table)

	rows, err := s.pool.Query(ctx, query, documentID, pgv.NewVector(vector), k)
	if err != nil {
		return nil, classify("search", err)
	}
	defer rows.Close()

	var hits []domain.ScoredChunk
	for rows.Next() {
		rec := domain.ChunkRecord{DocumentID: documentID}
		var embedding pgv.Vector
		var score float64
		if err := rows.Scan(&rec.ID, &rec.Position, &rec.Text, &embedding, &score); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.Vector = embedding.Slice()
		hits = append(hits, domain.ScoredChunk{Record: rec, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("search", err)
	}
	return hits, nil
}

// Count returns the number of records stored for documentID.
func (s *Store) Count(ctx context.Context, documentID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE document_id = $1", s.table), documentID).Scan(&n)
	if err != nil {
		return 0, classify("count", err)
	}
	return n, nil
}

// DeleteDocument removes every record of documentID.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", s.table), documentID)
	if err != nil {
		return classify("delete document", err)
	}
	return nil
}

// Dimensions returns the vector size of the embedding column.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// transientCodes are SQLSTATEs worth retrying: too many connections,
// query cancelled, serialization failure, deadlock, and admin shutdown.
var transientCodes = map[string]bool{
	"53300": true,
	"57014": true,
	"40001": true,
	"40P01": true,
	"57P01": true,
}

// classify wraps err as *domain.TransientStoreError when a retry may succeed.
func classify(op string, err error) error {
	if isTransient(err) {
		return &domain.TransientStoreError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is connection exceptions.
		return transientCodes[pgErr.Code] || strings.HasPrefix(pgErr.Code, "08")
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return pgconn.Timeout(err) || pgconn.SafeToRetry(err)
}
