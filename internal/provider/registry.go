// Package provider selects generation models per task and invokes
// heterogeneous provider APIs behind one gateway signature.
package provider

import (
	"github.com/studykit/engine/internal/domain"
)

// modelTier is the capability tier a task maps to before configuration is
// consulted.
type modelTier string

const (
	tierFast modelTier = "fast"
	tierHigh modelTier = "high"
)

// RegistryConfig describes which providers are configured and their model
// identifiers per tier.
type RegistryConfig struct {
	GeminiConfigured bool
	GroqConfigured   bool

	GeminiFlashModel string
	GeminiProModel   string
	GroqLlamaModel   string
}

// Registry owns the task→tier→provider mapping table. It is read-only at
// request time; task and complexity determine intent, configuration
// determines feasibility.
type Registry struct {
	cfg RegistryConfig
}

// NewRegistry creates a Registry from provider configuration.
func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{cfg: cfg}
}

// SelectModel returns the provider and model for a task. A forced provider
// bypasses complexity-based tier selection entirely; it is honored only when
// that provider is configured.
func (r *Registry) SelectModel(task domain.TaskType, complexity domain.Complexity, forced domain.ProviderName) (domain.ProviderModel, error) {
	switch forced {
	case domain.ProviderGroq:
		if r.cfg.GroqConfigured {
			return domain.ProviderModel{Provider: domain.ProviderGroq, Model: r.cfg.GroqLlamaModel}, nil
		}
	case domain.ProviderGeminiFlash:
		if r.cfg.GeminiConfigured {
			return domain.ProviderModel{Provider: domain.ProviderGeminiFlash, Model: r.cfg.GeminiFlashModel}, nil
		}
	case domain.ProviderGeminiPro:
		if r.cfg.GeminiConfigured {
			return domain.ProviderModel{Provider: domain.ProviderGeminiPro, Model: r.cfg.GeminiProModel}, nil
		}
	}

	tier := selectTier(task, complexity)

	if tier == tierHigh && r.cfg.GeminiConfigured {
		return domain.ProviderModel{Provider: domain.ProviderGeminiPro, Model: r.cfg.GeminiProModel}, nil
	}
	if tier == tierFast && r.cfg.GeminiConfigured {
		return domain.ProviderModel{Provider: domain.ProviderGeminiFlash, Model: r.cfg.GeminiFlashModel}, nil
	}

	// Availability fallback chain: flash → pro → groq. The first configured
	// provider wins.
	if r.cfg.GeminiConfigured {
		return domain.ProviderModel{Provider: domain.ProviderGeminiFlash, Model: r.cfg.GeminiFlashModel}, nil
	}
	if r.cfg.GroqConfigured {
		return domain.ProviderModel{Provider: domain.ProviderGroq, Model: r.cfg.GroqLlamaModel}, nil
	}

	return domain.ProviderModel{}, domain.ErrNoProviderAvailable
}

// HasAnyProvider reports whether at least one generation provider is
// configured.
func (r *Registry) HasAnyProvider() bool {
	return r.cfg.GeminiConfigured || r.cfg.GroqConfigured
}

func selectTier(task domain.TaskType, complexity domain.Complexity) modelTier {
	switch task {
	case domain.TaskSummarization, domain.TaskQuestionGeneration, domain.TaskHomeworkSolver:
		return tierHigh
	case domain.TaskRAGQuery:
		if complexity == domain.ComplexityHigh {
			return tierHigh
		}
		return tierFast
	default:
		return tierFast
	}
}
