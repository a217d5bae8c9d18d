package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// ServiceAPIKey is the static bearer key the backend uses to call this
	// service. Auth proper (users, sessions, tokens) lives upstream.
	ServiceAPIKey string `envconfig:"SERVICE_API_KEY"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"studykit-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GroqAPIKey   string `envconfig:"GROQ_API_KEY"`
	GroqBaseURL  string `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`

	// OpenAIAPIKey enables the secondary embedding backend. Generation does
	// not use OpenAI.
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	GeminiFlashModel    string `envconfig:"GEMINI_FLASH_MODEL" default:"gemini-2.0-flash"`
	GeminiProModel      string `envconfig:"GEMINI_PRO_MODEL" default:"gemini-2.5-pro"`
	GroqLlamaModel      string `envconfig:"GROQ_LLAMA_MODEL" default:"llama-3.3-70b-versatile"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	RAGTopK              int     `envconfig:"RAG_TOP_K" default:"5"`
	RAGScoreThreshold    float32 `envconfig:"RAG_SCORE_THRESHOLD" default:"0.5"`
	RAGMinScoreThreshold float32 `envconfig:"RAG_MIN_SCORE_THRESHOLD" default:"0.3"`
	RAGEnableFallback    bool    `envconfig:"RAG_ENABLE_FALLBACK" default:"true"`
	RAGScanLimit         int     `envconfig:"RAG_SCAN_LIMIT" default:"100"`

	LLMTemperature float32       `envconfig:"LLM_TEMPERATURE" default:"0.7"`
	LLMMaxTokens   int           `envconfig:"LLM_MAX_TOKENS" default:"2048"`
	LLMTimeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"240s"`

	EmbedTimeout  time.Duration `envconfig:"EMBED_TIMEOUT" default:"30s"`
	SearchTimeout time.Duration `envconfig:"SEARCH_TIMEOUT" default:"15s"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("STUDYKIT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
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

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

func (c *Config) HasGroq() bool {
	return c.GroqAPIKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
