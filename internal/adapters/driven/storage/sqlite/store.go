package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// DefaultFileName is the database file created inside the data directory.
const DefaultFileName = "vectors.db"

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a SQLite-backed vector store. Vectors are kept as float32 BLOBs
// and scored in-process, one document at a time.
type Store struct {
	db         *sql.DB
	path       string
	collection string
	dimensions int
}

// Config holds configuration for the SQLite vector store.
type Config struct {
	// Path is the database file. Defaults to ~/.docchat/data/vectors.db.
	Path string

	// Collection names the logical table records are written to.
	Collection string

	// Dimensions is the vector size. A collection keeps the size it was
	// created with; opening it with another size fails.
	Dimensions int
}

// NewStore opens (creating if needed) the database and runs migrations.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("sqlite: collection is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("sqlite: dimensions must be positive")
	}

	path := cfg.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".docchat", "data", DefaultFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL lets searches proceed while a batch is being written.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:         db,
		path:       path,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := s.ensureCollection(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Dimensions returns the vector size of the collection.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// migrate runs all pending up migrations and records each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_chunk_records.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}

	return nil
}

// ensureCollection registers the collection or checks its dimensions.
func (s *Store) ensureCollection(ctx context.Context) error {
	var dims int
	err := s.db.QueryRowContext(ctx,
		"SELECT dimensions FROM collections WHERE name = ?", s.collection).Scan(&dims)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO collections (name, dimensions) VALUES (?, ?)", s.collection, s.dimensions)
		if err != nil {
			return fmt.Errorf("creating collection %s: %w", s.collection, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("reading collection %s: %w", s.collection, err)
	case dims != s.dimensions:
		return fmt.Errorf("collection %s holds %d-dimension vectors, configured %d: %w",
			s.collection, dims, s.dimensions, domain.ErrDimensionMismatch)
	}
	return nil
}

// Upsert writes the batch in a single transaction.
func (s *Store) Upsert(ctx context.Context, records []domain.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if err := rec.Validate(s.dimensions); err != nil {
			return fmt.Errorf("record %s: %w", rec.ID, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_records (collection, id, document_id, position, text, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			document_id = excluded.document_id,
			position    = excluded.position,
			text        = excluded.text,
			embedding   = excluded.embedding,
			updated_at  = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return classify("prepare upsert", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			s.collection, rec.ID, rec.DocumentID, rec.Position, rec.Text, vecmath.Encode(rec.Vector))
		if err != nil {
			return classify("upsert "+rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify("commit upsert", err)
	}
	return nil
}

// Search loads the vectors of documentID and ranks them by cosine similarity.
func (s *Store) Search(ctx context.Context, documentID string, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if documentID == "" {
		return nil, domain.ErrMissingDocumentID
	}
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("query: %w", domain.ErrDimensionMismatch)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, position, text, embedding
		FROM chunk_records
		WHERE collection = ? AND document_id = ?
	`, s.collection, documentID)
	if err != nil {
		return nil, classify("search", err)
	}
	defer rows.Close()

	var records []domain.ChunkRecord
	for rows.Next() {
		rec := domain.ChunkRecord{DocumentID: documentID}
		var blob []byte
		if err := rows.Scan(&rec.ID, &rec.Position, &rec.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if rec.Vector, err = vecmath.Decode(blob); err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("search", err)
	}

	return vecmath.Rank(vector, records, k)
}

// Count returns the number of records stored for documentID.
func (s *Store) Count(ctx context.Context, documentID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunk_records WHERE collection = ? AND document_id = ?",
		s.collection, documentID).Scan(&n)
	if err != nil {
		return 0, classify("count", err)
	}
	return n, nil
}

// DeleteDocument removes every record of documentID.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM chunk_records WHERE collection = ? AND document_id = ?",
		s.collection, documentID)
	if err != nil {
		return classify("delete document", err)
	}
	return nil
}

// classify marks lock contention as transient. Everything else is returned
// as a plain wrapped error.
func classify(op string, err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return &domain.TransientStoreError{Op: op, Err: err}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
