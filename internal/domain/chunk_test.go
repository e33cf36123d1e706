package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChunkID(t *testing.T) {
	assert.Equal(t, "manual.pdf:p001:c000", BuildChunkID("manual.pdf", 1, 0))
	assert.Equal(t, "guide.pdf:p012:c034", BuildChunkID("guide.pdf", 12, 34))
	assert.Equal(t, "big.pdf:p1234:c005", BuildChunkID("big.pdf", 1234, 5))
}

func TestParseChunkID_Roundtrip(t *testing.T) {
	tests := []struct {
		source string
		page   int
		index  int
	}{
		{"manual.pdf", 1, 0},
		{"guide.pdf", 12, 34},
		{"big.pdf", 1234, 5},
		{"archive:2024:report.pdf", 3, 7},
		{"weird:p001:name.pdf", 2, 1},
	}

	for _, tt := range tests {
		id := BuildChunkID(tt.source, tt.page, tt.index)
		source, page, index, err := ParseChunkID(id)
		require.NoError(t, err, "id %q", id)
		assert.Equal(t, tt.source, source)
		assert.Equal(t, tt.page, page)
		assert.Equal(t, tt.index, index)
	}
}

func TestParseChunkID_Malformed(t *testing.T) {
	tests := []string{
		"",
		"manual.pdf",
		"manual.pdf:p001",
		"manual.pdf:c000",
		"manual.pdf:p001:cxyz",
		"manual.pdf:pabc:c000",
	}

	for _, id := range tests {
		_, _, _, err := ParseChunkID(id)
		assert.Error(t, err, "id %q", id)
	}
}
