package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Chunk represents a bounded slice of document text with a stable identifier.
// The embedding is absent until the ingestion pipeline attaches it.
type Chunk struct {
	ChunkID    string
	Source     string
	Page       int
	ChunkIndex int
	Text       string
	Embedding  []float32
	CreatedAt  time.Time
}

// SearchHit is the ephemeral result of a vector search. It exists only
// within a single answer-generation call and is never persisted.
type SearchHit struct {
	ChunkID string
	Source  string
	Text    string
	Score   float32
}

// SourceInfo describes one ingested document and its chunk count.
type SourceInfo struct {
	Name       string `json:"name"`
	ChunkCount int64  `json:"chunk_count"`
}

// BuildChunkID returns the stable identifier for a chunk. It is deterministic
// given (source, page, index), so re-ingesting the same document overwrites
// rather than duplicates.
func BuildChunkID(source string, page, index int) string {
	return fmt.Sprintf("%s:p%03d:c%03d", source, page, index)
}

// ParseChunkID recovers (source, page, index) from a chunk ID. The suffix is
// parsed from the right so source filenames containing ':' survive.
func ParseChunkID(chunkID string) (source string, page, index int, err error) {
	ci := strings.LastIndex(chunkID, ":c")
	if ci < 0 {
		return "", 0, 0, fmt.Errorf("malformed chunk id %q: missing chunk marker", chunkID)
	}
	index, err = strconv.Atoi(chunkID[ci+2:])
	if err != nil {
		return "", 0, 0, fmt.Errorf("malformed chunk id %q: %w", chunkID, err)
	}

	rest := chunkID[:ci]
	pi := strings.LastIndex(rest, ":p")
	if pi < 0 {
		return "", 0, 0, fmt.Errorf("malformed chunk id %q: missing page marker", chunkID)
	}
	page, err = strconv.Atoi(rest[pi+2:])
	if err != nil {
		return "", 0, 0, fmt.Errorf("malformed chunk id %q: %w", chunkID, err)
	}

	return rest[:pi], page, index, nil
}
