package service

import (
	"strings"
	"testing"

	"github.com/docsage/docsage/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "hello world", CleanText("  hello   world  "))
	assert.Equal(t, "a b c", CleanText("a\n\tb\r\n  c"))
	assert.Equal(t, "", CleanText("   \n\t  "))
	assert.Equal(t, "unchanged", CleanText("unchanged"))
}

func TestSegmentConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultSegmentConfig().Validate())
	assert.NoError(t, SegmentConfig{ChunkSize: 10, Overlap: 0}.Validate())

	assert.ErrorIs(t, SegmentConfig{ChunkSize: 0, Overlap: 0}.Validate(), domain.ErrInvalidChunkSize)
	assert.ErrorIs(t, SegmentConfig{ChunkSize: -5, Overlap: 0}.Validate(), domain.ErrInvalidChunkSize)
	assert.ErrorIs(t, SegmentConfig{ChunkSize: 100, Overlap: 100}.Validate(), domain.ErrOverlapTooLarge)
	assert.ErrorIs(t, SegmentConfig{ChunkSize: 100, Overlap: 150}.Validate(), domain.ErrOverlapTooLarge)
	assert.ErrorIs(t, SegmentConfig{ChunkSize: 100, Overlap: -1}.Validate(), domain.ErrOverlapTooLarge)
}

func TestSegmentPage_EmptyPage(t *testing.T) {
	assert.Nil(t, SegmentPage("", "doc.pdf", 1, DefaultSegmentConfig()))
	assert.Nil(t, SegmentPage("   \n\t ", "doc.pdf", 1, DefaultSegmentConfig()))
}

func TestSegmentPage_SingleChunk(t *testing.T) {
	cfg := SegmentConfig{ChunkSize: 100, Overlap: 20}

	chunks := SegmentPage("  short   page  text  ", "doc.pdf", 3, cfg)
	require.Len(t, chunks, 1)

	assert.Equal(t, "doc.pdf:p003:c000", chunks[0].ChunkID)
	assert.Equal(t, "doc.pdf", chunks[0].Source)
	assert.Equal(t, 3, chunks[0].Page)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, "short page text", chunks[0].Text)
	assert.Nil(t, chunks[0].Embedding)
}

func TestSegmentPage_ExactBoundary(t *testing.T) {
	cfg := SegmentConfig{ChunkSize: 10, Overlap: 3}

	text := strings.Repeat("a", 10)
	chunks := SegmentPage(text, "doc.pdf", 1, cfg)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
}

func TestSegmentPage_OverlappingWindows(t *testing.T) {
	cfg := SegmentConfig{ChunkSize: 10, Overlap: 3}

	// 24 runes with no spaces so CleanText leaves them intact.
	text := "abcdefghijklmnopqrstuvwx"
	chunks := SegmentPage(text, "doc.pdf", 1, cfg)
	require.Len(t, chunks, 3)

	assert.Equal(t, "abcdefghij", chunks[0].Text)
	assert.Equal(t, "hijklmnopq", chunks[1].Text)
	assert.Equal(t, "opqrstuvwx", chunks[2].Text)

	// Each window starts Overlap runes before the previous one ended.
	assert.Equal(t, chunks[0].Text[len(chunks[0].Text)-3:], chunks[1].Text[:3])
	assert.Equal(t, chunks[1].Text[len(chunks[1].Text)-3:], chunks[2].Text[:3])

	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, domain.BuildChunkID("doc.pdf", 1, i), c.ChunkID)
	}
}

func TestSegmentPage_FullCoverage(t *testing.T) {
	cfg := SegmentConfig{ChunkSize: 7, Overlap: 2}

	text := "abcdefghijklmnopqrst"
	chunks := SegmentPage(text, "doc.pdf", 1, cfg)
	require.NotEmpty(t, chunks)

	// Reassembling the windows minus their overlaps recovers the input.
	rebuilt := chunks[0].Text
	for _, c := range chunks[1:] {
		rebuilt += c.Text[cfg.Overlap:]
	}
	assert.Equal(t, text, rebuilt)
}

func TestSegmentPage_MultibyteRunes(t *testing.T) {
	cfg := SegmentConfig{ChunkSize: 4, Overlap: 1}

	text := "日本語のテキスト"
	chunks := SegmentPage(text, "doc.pdf", 1, cfg)
	require.NotEmpty(t, chunks)

	// Windows are rune-based, so every chunk decodes cleanly.
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), cfg.ChunkSize)
		assert.True(t, strings.ContainsAny(c.Text, text))
	}
	assert.Equal(t, "日本語の", chunks[0].Text)
}
