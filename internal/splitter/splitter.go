// Package splitter provides a recursive character text splitter.
//
// Text is split on the first separator that occurs in it, falling back to
// finer separators for pieces that are still too large, then the pieces are
// merged back into chunks of at most ChunkSize runes with up to Overlap runes
// shared between neighbours.
package splitter

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure Splitter implements the interface.
var _ driven.TextSplitter = (*Splitter)(nil)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = 200

// DefaultSeparators are tried in order, coarsest first.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter splits segments into overlapping chunks.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in runes.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator hierarchy.
// The empty string separator splits into single runes.
func WithSeparators(separators ...string) Option {
	return func(s *Splitter) {
		if len(separators) > 0 {
			s.separators = separators
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// ChunkSize returns the configured chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split splits every segment and numbers the chunks across segments.
// Segment metadata is copied onto each chunk it produces.
func (s *Splitter) Split(ctx context.Context, segments []domain.Segment) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, text := range s.SplitText(seg.Text) {
			chunks = append(chunks, domain.Chunk{
				Position: len(chunks),
				Content:  text,
				Metadata: copyMetadata(seg.Metadata),
			})
		}
	}
	return chunks, nil
}

// SplitText splits text into trimmed, non-empty chunks.
func (s *Splitter) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	// Pick the first separator present in the text.
	separator := separators[len(separators)-1]
	var finer []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	var out, small []string
	for _, piece := range splitOn(text, separator) {
		if runeLen(piece) < s.chunkSize {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			out = append(out, s.merge(small, separator)...)
			small = nil
		}
		if len(finer) == 0 {
			if t := strings.TrimSpace(piece); t != "" {
				out = append(out, t)
			}
			continue
		}
		out = append(out, s.split(piece, finer)...)
	}
	if len(small) > 0 {
		out = append(out, s.merge(small, separator)...)
	}
	return out
}

// merge packs pieces into chunks no longer than chunkSize, carrying up to
// overlap runes of trailing pieces into the next chunk.
func (s *Splitter) merge(pieces []string, separator string) []string {
	sepLen := runeLen(separator)
	var (
		chunks  []string
		current []string
		total   int
	)

	join := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n+join(len(current)) > s.chunkSize {
			if total > s.chunkSize {
				logger.Debug("Created a chunk of %d runes, longer than the limit of %d", total, s.chunkSize)
			}
			if len(current) > 0 {
				if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
					chunks = append(chunks, chunk)
				}
				// Drop leading pieces until what remains fits the overlap and leaves room.
				for total > s.overlap || (total+n+join(len(current)) > s.chunkSize && total > 0) {
					total -= runeLen(current[0]) + join(len(current)-1)
					current = current[1:]
				}
			}
		}
		current = append(current, piece)
		total += n + join(len(current)-1)
	}

	if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitOn splits text on separator, or into runes when separator is empty.
// Empty pieces are dropped.
func splitOn(text, separator string) []string {
	var parts []string
	if separator == "" {
		parts = make([]string, 0, len(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(text, separator)
	}

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
