package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/studykit/engine/internal/domain"
)

// GeminiProvider generates text via the Gemini API. One client serves both
// the flash and pro tiers; the model identifier comes from the registry.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a Gemini generation client.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// GenerateText sends a generation request to the given Gemini model and
// returns the concatenated text of the first candidate.
func (p *GeminiProvider) GenerateText(ctx context.Context, model string, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", mapGeminiError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeMalformedResponse,
			"gemini returned no candidates", domain.ErrMalformedProviderResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := sb.String()
	if text == "" {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeMalformedResponse,
			"gemini candidate carried no text", domain.ErrMalformedProviderResponse)
	}

	return text, nil
}

func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return domain.NewDomainErrorWithCause(domain.ErrCodeRateLimited, "gemini rate limit exceeded", err)
		case http.StatusBadRequest, http.StatusNotFound:
			return domain.NewDomainErrorWithCause(domain.ErrCodeMalformedResponse, "gemini rejected the request", err)
		}
	}
	return fmt.Errorf("gemini generation failed: %w", err)
}
