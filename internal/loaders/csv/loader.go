// Package csv loads text/csv documents, one segment per data row.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader handles CSV documents. The first record is the header.
type Loader struct {
	comma rune
}

// Option configures the CSV loader.
type Option func(*Loader)

// WithComma sets the field delimiter (default ',').
func WithComma(r rune) Option {
	return func(l *Loader) {
		if r != 0 {
			l.comma = r
		}
	}
}

// New creates a new CSV loader.
func New(opts ...Option) *Loader {
	l := &Loader{comma: ','}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SupportedMediaTypes returns the media types this loader handles.
func (l *Loader) SupportedMediaTypes() []domain.MediaType {
	return []domain.MediaType{domain.MediaTypeCSV}
}

// Load renders each data row as "header: value" lines.
// Segment metadata carries the 1-based row number and the source URL.
// Rows with no non-empty value are skipped.
func (l *Loader) Load(ctx context.Context, file *domain.RawFile) ([]domain.Segment, error) {
	if file == nil {
		return nil, domain.ErrInvalidInput
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(file.Content, []byte{0xEF, 0xBB, 0xBF})))
	r.Comma = l.comma
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewLoadError(domain.MediaTypeCSV, "read header", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	var segments []domain.Segment
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewLoadError(domain.MediaTypeCSV, fmt.Sprintf("read row %d", row), err)
		}

		text := formatRow(header, record)
		if text == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			Text: text,
			Metadata: map[string]any{
				"source": file.URL,
				"row":    row,
			},
		})
	}
	return segments, nil
}

// formatRow pairs values with their column names. Extra values beyond the
// header are labelled by column number.
func formatRow(header, record []string) string {
	var sb strings.Builder
	nonEmpty := false
	for i, v := range record {
		v = strings.TrimSpace(v)
		if v != "" {
			nonEmpty = true
		}
		name := fmt.Sprintf("column %d", i+1)
		if i < len(header) && header[i] != "" {
			name = header[i]
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(v)
	}
	if !nonEmpty {
		return ""
	}
	return sb.String()
}
