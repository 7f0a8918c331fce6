// Package plaintext loads text/plain documents.
package plaintext

import (
	"bytes"
	"context"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader handles plain text documents.
type Loader struct{}

// New creates a new plain text loader.
func New() *Loader {
	return &Loader{}
}

// SupportedMediaTypes returns the media types this loader handles.
func (l *Loader) SupportedMediaTypes() []domain.MediaType {
	return []domain.MediaType{domain.MediaTypeText}
}

// Load returns the whole file as a single segment.
// Line endings are normalised to \n. Content that is not valid UTF-8 is rejected.
func (l *Loader) Load(_ context.Context, file *domain.RawFile) ([]domain.Segment, error) {
	if file == nil {
		return nil, domain.ErrInvalidInput
	}

	content := bytes.TrimPrefix(file.Content, utf8BOM)
	if !utf8.Valid(content) {
		return nil, domain.NewLoadError(domain.MediaTypeText, "content is not valid UTF-8", nil)
	}

	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return []domain.Segment{{
		Text: text,
		Metadata: map[string]any{
			"source": file.URL,
			"title":  Title(file.URL),
		},
	}}, nil
}

// Title derives a human-readable title from a file URL.
func Title(uri string) string {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	filename := path.Base(uri)
	if filename == "." || filename == "/" {
		return ""
	}

	// Remove common extensions for cleaner title
	if ext := path.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}

	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")

	return filename
}
