// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The ingestion pipeline is IngestionService: fetch, load, split, Embedder
// fan-out, then BatchInserter. The chat pipeline is ChatService: IntentGate,
// Retriever, then ChatStreamer.
//
// Services are pure Go with no CGO. They depend only on ports, never on
// concrete adapters.
package services
