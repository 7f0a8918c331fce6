package loaders

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/loaders/csv"
	"github.com/custodia-labs/docchat/internal/loaders/pdf"
	"github.com/custodia-labs/docchat/internal/loaders/plaintext"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.LoaderRegistry = (*Registry)(nil)

// Registry maps media types to loaders.
type Registry struct {
	mu      sync.RWMutex
	loaders map[domain.MediaType]driven.Loader
}

// NewRegistry creates an empty loader registry.
func NewRegistry() *Registry {
	return &Registry{
		loaders: make(map[domain.MediaType]driven.Loader),
	}
}

// Default creates a registry with the plain text, CSV and PDF loaders.
func Default() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(csv.New())
	r.Register(pdf.New())
	return r
}

// Register adds a loader for every media type it supports.
// A later registration for the same type replaces the earlier one.
func (r *Registry) Register(loader driven.Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mt := range loader.SupportedMediaTypes() {
		r.loaders[mt] = loader
	}
}

// Load selects a loader by the file's media type and runs it.
// Parameters such as charset are ignored when matching.
func (r *Registry) Load(ctx context.Context, file *domain.RawFile) ([]domain.Segment, error) {
	if file == nil {
		return nil, domain.ErrInvalidInput
	}
	mt := domain.ParseMediaType(string(file.MediaType))

	r.mu.RLock()
	loader, ok := r.loaders[mt]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.NewLoadError(mt, "no loader registered", domain.ErrUnsupportedType)
	}

	segments, err := loader.Load(ctx, file)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loader for %s produced %d segments", mt, len(segments))
	return segments, nil
}

// SupportedMediaTypes returns every registered media type, sorted.
func (r *Registry) SupportedMediaTypes() []domain.MediaType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.MediaType, 0, len(r.loaders))
	for mt := range r.loaders {
		types = append(types, mt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
