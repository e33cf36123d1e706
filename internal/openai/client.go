package openai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/docsage/docsage/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the model used for generating embeddings
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultChatModel is the model used for answer generation
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingDimensions is the expected embedding dimension
	DefaultEmbeddingDimensions = 1536

	// Network calls use bounded timeouts and are never retried internally;
	// a failure is surfaced to the caller.
	embedTimeout = 30 * time.Second
	chatTimeout  = 60 * time.Second

	chatMaxTokens   = 1500
	chatTemperature = 0.6
)

var (
	// ErrEmptyInput is returned when no texts are given to embed
	ErrEmptyInput = errors.New("no texts to embed")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// Reasoning models wrap internal deliberation in paired think tags; only the
// content outside those spans is the answer.
var reasoningTagRE = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)

// Config holds gateway configuration.
type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	ChatModel           string
	EmbeddingDimensions int
}

// Client wraps the OpenAI-compatible API for embeddings and chat completions.
type Client struct {
	api            *openai.Client
	embeddingModel string
	chatModel      string
	dimensions     int
}

// NewClient creates a gateway client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a gateway client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}

	return &Client{
		api:            openai.NewClientWithConfig(apiCfg),
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
		dimensions:     dimensions,
	}
}

// EmbedBatch generates embeddings for a batch of texts in one gateway call.
// The provider may reorder results, so the response is re-sorted by its index
// field before vectors are matched back to inputs.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, domain.NewGatewayError("embedding request failed", describeAPIError(err))
	}

	if len(resp.Data) != len(texts) {
		return nil, domain.NewGatewayError(
			fmt.Sprintf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(resp.Data)), nil)
	}

	data := make([]openai.Embedding, len(resp.Data))
	copy(data, resp.Data)
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, item := range data {
		if len(item.Embedding) != c.dimensions {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(item.Embedding))
		}
		vectors[i] = item.Embedding
	}

	return vectors, nil
}

// Chat sends one chat-completion request and returns the generated text with
// reasoning markup stripped, plus the reported token usage.
func (c *Client) Chat(ctx context.Context, messages []domain.ChatMessage) (string, domain.TokenUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	reqMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		reqMessages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    reqMessages,
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	})
	if err != nil {
		return "", domain.TokenUsage{}, domain.NewGatewayError("chat request failed", describeAPIError(err))
	}

	if len(resp.Choices) == 0 {
		return "", domain.TokenUsage{}, domain.NewGatewayError("chat response contained no choices", nil)
	}

	usage := domain.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}

	return StripReasoning(resp.Choices[0].Message.Content), usage, nil
}

// StripReasoning removes paired <think> spans from model output and trims
// surrounding whitespace.
func StripReasoning(content string) string {
	return strings.TrimSpace(reasoningTagRE.ReplaceAllString(content, ""))
}

// describeAPIError keeps the HTTP status and response body visible for
// diagnostics when the provider returns a structured error.
func describeAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return err
}
