// Package sqlite provides a SQLite-backed implementation of driven.VectorStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Vectors are stored as little-endian
// float32 BLOBs and ranked in-process by cosine similarity. Every query reads
// only the rows of one document, so search cost grows with document size rather
// than corpus size.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// A collections table pins the vector size of each collection.
//
// # Data Location
//
// By default, the database is stored at ~/.docchat/data/vectors.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Lock contention surfaces as *domain.TransientStoreError.
package sqlite
