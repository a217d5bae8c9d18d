package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/studykit/engine/internal/domain"
)

// GroqProvider generates text through Groq's OpenAI-compatible chat API.
type GroqProvider struct {
	client *openai.Client
}

// NewGroqProvider creates a Groq generation client. baseURL may be empty for
// the default Groq endpoint.
func NewGroqProvider(apiKey, baseURL string) *GroqProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &GroqProvider{client: openai.NewClientWithConfig(cfg)}
}

// GenerateText sends a chat completion request to the given Groq model.
func (p *GroqProvider) GenerateText(ctx context.Context, model string, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", mapGroqError(err)
	}

	if len(resp.Choices) == 0 {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeMalformedResponse,
			"groq returned no choices", domain.ErrMalformedProviderResponse)
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeMalformedResponse,
			"groq choice carried no text", domain.ErrMalformedProviderResponse)
	}

	return text, nil
}

func mapGroqError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return domain.NewDomainErrorWithCause(domain.ErrCodeRateLimited, "groq rate limit exceeded", err)
	}
	return fmt.Errorf("groq generation failed: %w", err)
}
