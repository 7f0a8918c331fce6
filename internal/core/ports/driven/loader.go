package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Loader extracts text segments from a raw file of a supported media type.
// A corrupt or unreadable file yields a *domain.LoadError.
type Loader interface {
	// SupportedMediaTypes returns the media types this loader handles.
	SupportedMediaTypes() []domain.MediaType

	// Load extracts segments in document order.
	Load(ctx context.Context, file *domain.RawFile) ([]domain.Segment, error)
}

// LoaderRegistry selects the loader for a file's declared media type.
type LoaderRegistry interface {
	// Load dispatches to the registered loader.
	// Returns domain.ErrUnsupportedType when nothing handles the type.
	Load(ctx context.Context, file *domain.RawFile) ([]domain.Segment, error)

	// Register adds a loader to the registry.
	Register(loader Loader)

	// SupportedMediaTypes returns all media types that can be loaded.
	SupportedMediaTypes() []domain.MediaType
}

// FileFetcher retrieves an uploaded document by URL.
type FileFetcher interface {
	// Fetch downloads the body and reports its declared media type.
	Fetch(ctx context.Context, url string) (*domain.RawFile, error)
}
