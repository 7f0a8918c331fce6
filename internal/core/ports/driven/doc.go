// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - FileFetcher: Retrieves an uploaded document body
//   - Loader / LoaderRegistry: Extracts text segments by media type
//   - TextSplitter: Splits segments into overlapping chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorStore: Document-scoped chunk storage and similarity search
//   - LLMService: Classification and streamed generation
//   - PromptStore: System prompt templates
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or loader package
package driven
