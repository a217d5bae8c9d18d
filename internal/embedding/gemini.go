package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is the Gemini model used for generating embeddings
	DefaultGeminiModel = "gemini-embedding-001"
	// DefaultDimensions is the output dimensionality requested from Gemini
	DefaultDimensions = 1536
)

// Gemini task types for the two encoding modes.
const (
	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"
)

// GeminiConfig holds configuration for the Gemini embedding client.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Dimensions int
}

// GeminiClient generates embeddings via the Gemini API.
type GeminiClient struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiClient creates a Gemini embedding client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates embeddings for the given texts using the task type that
// matches the encoding mode.
func (c *GeminiClient) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	taskType := taskTypeDocument
	if mode == ModeQuery {
		taskType = taskTypeQuery
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	dims := int32(c.dimensions)
	resp, err := c.client.Models.EmbedContent(ctx, c.model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != c.dimensions {
			return nil, ErrWrongDimensions
		}
		vectors = append(vectors, emb.Values)
	}

	return vectors, nil
}

// Dimensions returns the configured output dimensionality.
func (c *GeminiClient) Dimensions() int {
	return c.dimensions
}
