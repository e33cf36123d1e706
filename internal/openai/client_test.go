package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripReasoning(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no tags", "The warranty is two years.", "The warranty is two years."},
		{"leading think block", "<think>reasoning here</think>The answer.", "The answer."},
		{"multiline think block", "<think>line one\nline two</think>\n\nThe answer.", "The answer."},
		{"multiple think blocks", "<think>a</think>First. <think>b</think>Second.", "First. Second."},
		{"surrounding whitespace", "  \n<think>x</think>  answer  \n", "answer"},
		{"unpaired open tag survives", "<think>never closed... answer", "<think>never closed... answer"},
		{"empty", "", ""},
		{"only think block", "<think>everything</think>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripReasoning(tt.content))
		})
	}
}

func TestNewClientWithConfig_Defaults(t *testing.T) {
	c := NewClientWithConfig(Config{APIKey: "test-key"})

	assert.NotNil(t, c.api)
	assert.Equal(t, DefaultEmbeddingModel, c.embeddingModel)
	assert.Equal(t, DefaultChatModel, c.chatModel)
	assert.Equal(t, DefaultEmbeddingDimensions, c.dimensions)
}

func TestNewClientWithConfig_Overrides(t *testing.T) {
	c := NewClientWithConfig(Config{
		APIKey:              "test-key",
		BaseURL:             "http://localhost:11434/v1",
		EmbeddingModel:      "nomic-embed-text",
		ChatModel:           "qwen3:8b",
		EmbeddingDimensions: 768,
	})

	assert.Equal(t, "nomic-embed-text", c.embeddingModel)
	assert.Equal(t, "qwen3:8b", c.chatModel)
	assert.Equal(t, 768, c.dimensions)
}

func TestNewClient_UsesDefaults(t *testing.T) {
	c := NewClient("test-key")
	assert.Equal(t, DefaultEmbeddingModel, c.embeddingModel)
	assert.Equal(t, DefaultChatModel, c.chatModel)
}

func embeddingClient(server *httptest.Server) *Client {
	return NewClientWithConfig(Config{
		APIKey:              "test-key",
		BaseURL:             server.URL,
		EmbeddingDimensions: 4,
	})
}

func TestClient_EmbedBatch_ResortsOutOfOrderResponses(t *testing.T) {
	// The provider may return embeddings in any order; each carries the index
	// of the input it belongs to. Input i must receive the vector whose index
	// field is i, not the vector at response position i.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"object": "list",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0, 1, 0, 0]},
				{"object": "embedding", "index": 0, "embedding": [1, 0, 0, 0]}
			],
			"model": "text-embedding-3-small",
			"usage": {"prompt_tokens": 8, "total_tokens": 8}
		}`)
	}))
	defer server.Close()

	vectors, err := embeddingClient(server).EmbedBatch(context.Background(), []string{"first text", "second text"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	assert.Equal(t, []float32{1, 0, 0, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1, 0, 0}, vectors[1])
}

func TestClient_EmbedBatch_EmptyInput(t *testing.T) {
	c := NewClient("test-key")
	_, err := c.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestClient_EmbedBatch_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"object": "list",
			"data": [{"object": "embedding", "index": 0, "embedding": [1, 0, 0, 0]}],
			"model": "text-embedding-3-small",
			"usage": {"prompt_tokens": 8, "total_tokens": 8}
		}`)
	}))
	defer server.Close()

	_, err := embeddingClient(server).EmbedBatch(context.Background(), []string{"one", "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding count mismatch")
}

func TestClient_EmbedBatch_WrongDimensions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"object": "list",
			"data": [{"object": "embedding", "index": 0, "embedding": [1, 0]}],
			"model": "text-embedding-3-small",
			"usage": {"prompt_tokens": 4, "total_tokens": 4}
		}`)
	}))
	defer server.Close()

	_, err := embeddingClient(server).EmbedBatch(context.Background(), []string{"one"})
	assert.ErrorIs(t, err, ErrWrongDimensions)
}
