package service

import (
	"strings"

	"github.com/docsage/docsage/internal/domain"
)

// SegmentConfig controls how page text is split into chunks.
type SegmentConfig struct {
	ChunkSize int
	Overlap   int
}

// DefaultSegmentConfig provides sane defaults for segmentation.
func DefaultSegmentConfig() SegmentConfig {
	return SegmentConfig{
		ChunkSize: 1000,
		Overlap:   200,
	}
}

// Validate rejects configurations under which the segmentation loop would
// never advance. Must be checked at configuration time.
func (c SegmentConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return domain.ErrInvalidChunkSize
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		return domain.ErrOverlapTooLarge
	}
	return nil
}

// CleanText collapses all whitespace runs to single spaces and trims the ends.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// SegmentPage splits one page of extracted text into overlapping chunks with
// stable identifiers. Text at most ChunkSize runes long yields a single chunk
// covering the whole cleaned text; longer text yields windows of ChunkSize
// runes where each window starts Overlap runes before the previous one ended,
// guaranteeing full coverage with no gaps. Pages with no extractable text
// yield nil, which callers skip silently.
func SegmentPage(text, source string, page int, cfg SegmentConfig) []domain.Chunk {
	clean := CleanText(text)
	if clean == "" {
		return nil
	}

	runes := []rune(clean)

	type window struct{ start, end int }
	var windows []window

	if len(runes) <= cfg.ChunkSize {
		windows = []window{{0, len(runes)}}
	} else {
		start := 0
		for start < len(runes) {
			end := start + cfg.ChunkSize
			if end > len(runes) {
				end = len(runes)
			}
			windows = append(windows, window{start, end})
			if end == len(runes) {
				break
			}
			start = end - cfg.Overlap
		}
	}

	chunks := make([]domain.Chunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, domain.Chunk{
			ChunkID:    domain.BuildChunkID(source, page, i),
			Source:     source,
			Page:       page,
			ChunkIndex: i,
			Text:       string(runes[w.start:w.end]),
		})
	}

	return chunks
}
