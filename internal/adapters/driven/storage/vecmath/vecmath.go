// Package vecmath holds the vector helpers shared by the in-process stores:
// BLOB encoding and brute-force cosine ranking.
package vecmath

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Encode packs vec as little-endian IEEE 754 float32 values with no length
// prefix. The length is recovered from the BLOB size.
func Encode(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// Decode reverses Encode.
func Decode(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vecmath: invalid embedding blob length %d", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// Cosine returns the cosine similarity of a and b, accumulated in float64.
// Zero-magnitude vectors have similarity 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vecmath: %w: %d vs %d", domain.ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na += va * va
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Rank scores every record against query and returns the k closest,
// highest similarity first. Ties keep document position order.
func Rank(query []float32, records []domain.ChunkRecord, k int) ([]domain.ScoredChunk, error) {
	scored := make([]domain.ScoredChunk, 0, len(records))
	for _, rec := range records {
		s, err := Cosine(query, rec.Vector)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		if math.IsNaN(s) {
			continue
		}
		scored = append(scored, domain.ScoredChunk{Record: rec, Score: s})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Record.Position < scored[j].Record.Position
	})
	if k > 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}
