package config

import (
	"fmt"
	"log"

	"github.com/docsage/docsage/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	ChatModel      string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	EmbeddingDim   int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	// Retrieval tuning. Threshold filters search hits; history is counted in
	// question/answer pairs per user.
	Threshold  float32 `envconfig:"RAG_THRESHOLD" default:"0.5"`
	TopK       int     `envconfig:"RAG_TOP_K" default:"6"`
	MaxHistory int     `envconfig:"RAG_MAX_HISTORY" default:"5"`

	// Ingestion tuning.
	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`
	BatchSize    int `envconfig:"BATCH_SIZE" default:"10"`

	// Optional raw-document archive.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docsage-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCSAGE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects settings that would break the pipeline at runtime. The
// segmenter loop never advances when overlap >= chunk size, so that invariant
// is enforced here, at configuration time.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return domain.ErrInvalidChunkSize
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return domain.ErrOverlapTooLarge
	}
	if c.TopK <= 0 {
		return domain.NewDomainError(domain.ErrCodeConfiguration, "RAG_TOP_K must be positive")
	}
	if c.BatchSize <= 0 {
		return domain.NewDomainError(domain.ErrCodeConfiguration, "BATCH_SIZE must be positive")
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
