package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMediaType(t *testing.T) {
	tests := []struct {
		in   string
		want MediaType
	}{
		{"application/pdf", MediaTypePDF},
		{"text/plain; charset=utf-8", MediaTypeText},
		{"TEXT/CSV", MediaTypeCSV},
		{"  text/csv ; header=present", MediaTypeCSV},
		{"", MediaType("")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMediaType(tt.in))
		})
	}
}

func TestMediaType_IsSupported(t *testing.T) {
	for _, mt := range SupportedMediaTypes() {
		assert.True(t, mt.IsSupported(), mt.String())
	}
	assert.False(t, MediaType("image/png").IsSupported())
	assert.False(t, MediaType("application/vnd.openxmlformats-officedocument.wordprocessingml.document").IsSupported())
}
