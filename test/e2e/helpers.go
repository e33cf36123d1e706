//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/docsage/docsage/internal/api/handlers"
	"github.com/docsage/docsage/internal/domain"
	"github.com/docsage/docsage/internal/repository"
	"github.com/docsage/docsage/internal/server"
	"github.com/docsage/docsage/internal/service"
	"github.com/docsage/docsage/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	Gateway    *FakeGateway
	HTTPClient *http.Client
}

// FakeGateway stands in for the OpenAI client: every text embeds to the same
// unit vector, so any stored chunk scores 1.0 against any query.
type FakeGateway struct {
	mu         sync.Mutex
	EmbedCalls int
	ChatCalls  int
	Answer     string
}

func (g *FakeGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	g.mu.Lock()
	g.EmbedCalls++
	g.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, 1536)
		v[0] = 1.0
		vectors[i] = v
	}
	return vectors, nil
}

func (g *FakeGateway) Chat(ctx context.Context, messages []domain.ChatMessage) (string, domain.TokenUsage, error) {
	g.mu.Lock()
	g.ChatCalls++
	g.mu.Unlock()

	answer := g.Answer
	if answer == "" {
		answer = "The warranty period is two years."
	}
	return answer, domain.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120}, nil
}

// SetupE2EEnv creates a full E2E test environment: a pgvector container with
// migrations applied, real services over a fake model gateway, and the HTTP
// router on an ephemeral port.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	gateway := &FakeGateway{}

	chunkRepo := repository.NewChunkRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	obs := service.NewObservability(eventRepo, chunkRepo)

	segCfg := service.DefaultSegmentConfig()
	ingestSvc := service.NewIngestionService(gateway, chunkRepo, nil, obs, segCfg, 10)

	memory := service.NewConversationMemory(5)
	answerSvc := service.NewAnswerService(gateway, gateway, chunkRepo, memory, obs, service.AnswerConfig{})

	router := server.NewRouter(server.RouterConfig{
		AskHandler:      handlers.NewAskHandler(answerSvc),
		DocumentHandler: handlers.NewDocumentHandler(ingestSvc),
		MetricsHandler:  handlers.NewMetricsHandler(obs),
	})

	srv := httptest.NewServer(router)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		Server:     srv,
		Gateway:    gateway,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil)
}

// PostRaw performs a POST request and returns the raw body, for streaming
// endpoints that do not use the JSON envelope.
func (e *E2ETestEnv) PostRaw(path string, body interface{}) (int, string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return 0, "", err
	}

	resp, err := e.HTTPClient.Post(e.Server.URL+path, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(respBody), nil
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.Server.URL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}
