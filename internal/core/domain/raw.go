package domain

import (
	"mime"
	"strings"
)

// MediaType is a declared document content type.
type MediaType string

// Supported media types for ingestion.
const (
	MediaTypePDF  MediaType = "application/pdf"
	MediaTypeText MediaType = "text/plain"
	MediaTypeCSV  MediaType = "text/csv"
)

// ParseMediaType normalises a Content-Type header value, dropping parameters
// such as charset. Unparseable values are returned lower-cased and trimmed.
func ParseMediaType(v string) MediaType {
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return MediaType(strings.ToLower(strings.TrimSpace(v)))
	}
	return MediaType(mt)
}

// IsSupported returns true if the media type can be ingested.
func (m MediaType) IsSupported() bool {
	switch m {
	case MediaTypePDF, MediaTypeText, MediaTypeCSV:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m MediaType) String() string {
	return string(m)
}

// SupportedMediaTypes returns every media type accepted for ingestion.
func SupportedMediaTypes() []MediaType {
	return []MediaType{MediaTypePDF, MediaTypeText, MediaTypeCSV}
}

// RawFile is the fetched document body, treated as an opaque blob.
type RawFile struct {
	// URL is where the file was fetched from.
	URL string

	// MediaType is the declared content type.
	MediaType MediaType

	// Content is the raw bytes.
	Content []byte
}
