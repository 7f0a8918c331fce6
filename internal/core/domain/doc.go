// Package domain defines the core business entities for docchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawFile: An uploaded document body and its declared media type
//   - Segment: Text extracted by a loader (a page, a row)
//   - Chunk / ChunkRecord: A retrievable unit and its stored, embedded form
//   - Message: A conversation turn
//   - IngestionReport: Per-batch outcome of writing a document to the store
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
