package provider

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/studykit/engine/internal/domain"
)

// Request is a provider-agnostic generation request.
type Request struct {
	Prompt            string
	SystemInstruction string
	Temperature       float32
	MaxTokens         int
}

// Generator is the minimal surface a provider adapter exposes to the gateway.
type Generator interface {
	GenerateText(ctx context.Context, model string, req Request) (string, error)
}

// Gateway routes generation requests to the adapter behind the selected
// provider and performs the single rate-limit failover hop.
type Gateway struct {
	registry   *Registry
	generators map[domain.ProviderName]Generator
	timeout    time.Duration
}

// NewGateway creates a Gateway over the given registry and adapters. The
// flash and pro entries usually share one Gemini adapter.
func NewGateway(registry *Registry, generators map[domain.ProviderName]Generator, timeout time.Duration) *Gateway {
	return &Gateway{
		registry:   registry,
		generators: generators,
		timeout:    timeout,
	}
}

// Generate invokes the adapter for the selected provider once, without
// failover.
func (g *Gateway) Generate(ctx context.Context, pm domain.ProviderModel, req Request) (string, error) {
	gen, ok := g.generators[pm.Provider]
	if !ok {
		return "", domain.ErrNoProviderAvailable
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	return gen.GenerateText(ctx, pm.Model, req)
}

// GenerateWithFallback invokes the selected provider and, on a rate-limit
// error only, retries exactly once against the standing fallback provider.
// The returned label names the provider that actually produced the text; a
// fallback success is labeled "<fallback> (fallback from <original>)".
// Non-rate-limit errors surface immediately, and a second rate limit is not
// retried further.
func (g *Gateway) GenerateWithFallback(ctx context.Context, pm domain.ProviderModel, req Request) (string, string, error) {
	text, err := g.Generate(ctx, pm, req)
	if err == nil {
		return text, string(pm.Provider), nil
	}
	if !isRateLimited(err) {
		return "", string(pm.Provider), err
	}

	fallback, selErr := g.registry.SelectModel(domain.TaskGeneral, domain.ComplexityMedium, domain.ProviderGroq)
	if selErr != nil || fallback.Provider == pm.Provider {
		return "", string(pm.Provider), err
	}

	log.Printf("provider %s rate limited, falling back to %s", pm.Provider, fallback.Provider)

	text, fbErr := g.Generate(ctx, fallback, req)
	if fbErr != nil {
		return "", string(fallback.Provider), fbErr
	}

	label := fmt.Sprintf("%s (fallback from %s)", fallback.Provider, pm.Provider)
	return text, label, nil
}

// isRateLimited prefers the typed domain code and falls back to message
// sniffing for errors that escaped the adapters unmapped.
func isRateLimited(err error) bool {
	if domain.IsRateLimited(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}
