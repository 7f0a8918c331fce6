package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetrievalResult_Texts(t *testing.T) {
	r := &RetrievalResult{Chunks: []ScoredChunk{
		{Record: ChunkRecord{Text: "a"}, Score: 0.9},
		{Record: ChunkRecord{Text: "b"}, Score: 0.5},
	}}

	assert.Equal(t, []string{"a", "b"}, r.Texts())

	var nilResult *RetrievalResult
	assert.Nil(t, nilResult.Texts())
}
