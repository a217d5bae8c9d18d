package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studykit/engine/internal/domain"
)

func fullConfig() RegistryConfig {
	return RegistryConfig{
		GeminiConfigured: true,
		GroqConfigured:   true,
		GeminiFlashModel: "gemini-2.0-flash",
		GeminiProModel:   "gemini-2.5-pro",
		GroqLlamaModel:   "llama-3.3-70b-versatile",
	}
}

func TestRegistry_SelectModel_Tiers(t *testing.T) {
	r := NewRegistry(fullConfig())

	tests := []struct {
		name       string
		task       domain.TaskType
		complexity domain.Complexity
		want       domain.ProviderName
	}{
		{"summarization uses the high tier", domain.TaskSummarization, domain.ComplexityLow, domain.ProviderGeminiPro},
		{"question generation uses the high tier", domain.TaskQuestionGeneration, domain.ComplexityLow, domain.ProviderGeminiPro},
		{"homework uses the high tier", domain.TaskHomeworkSolver, domain.ComplexityLow, domain.ProviderGeminiPro},
		{"simple rag uses the fast tier", domain.TaskRAGQuery, domain.ComplexityLow, domain.ProviderGeminiFlash},
		{"complex rag uses the high tier", domain.TaskRAGQuery, domain.ComplexityHigh, domain.ProviderGeminiPro},
		{"direct chat uses the fast tier", domain.TaskDirectChat, domain.ComplexityLow, domain.ProviderGeminiFlash},
		{"general task uses the fast tier", domain.TaskGeneral, domain.ComplexityMedium, domain.ProviderGeminiFlash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, err := r.SelectModel(tt.task, tt.complexity, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, pm.Provider)
			assert.NotEmpty(t, pm.Model)
		})
	}
}

func TestRegistry_SelectModel_Forced(t *testing.T) {
	t.Run("forced provider bypasses tier selection", func(t *testing.T) {
		r := NewRegistry(fullConfig())

		pm, err := r.SelectModel(domain.TaskSummarization, domain.ComplexityHigh, domain.ProviderGroq)
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderGroq, pm.Provider)
		assert.Equal(t, "llama-3.3-70b-versatile", pm.Model)
	})

	t.Run("forced but unconfigured provider falls back to tier selection", func(t *testing.T) {
		cfg := fullConfig()
		cfg.GroqConfigured = false
		r := NewRegistry(cfg)

		pm, err := r.SelectModel(domain.TaskDirectChat, domain.ComplexityLow, domain.ProviderGroq)
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderGeminiFlash, pm.Provider)
	})
}

func TestRegistry_SelectModel_Availability(t *testing.T) {
	t.Run("groq serves everything when gemini is absent", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{
			GroqConfigured: true,
			GroqLlamaModel: "llama-3.3-70b-versatile",
		})

		for _, task := range []domain.TaskType{domain.TaskDirectChat, domain.TaskSummarization, domain.TaskRAGQuery} {
			pm, err := r.SelectModel(task, domain.ComplexityHigh, "")
			require.NoError(t, err)
			assert.Equal(t, domain.ProviderGroq, pm.Provider)
		}
	})

	t.Run("no provider configured returns an error", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{})

		_, err := r.SelectModel(domain.TaskDirectChat, domain.ComplexityLow, "")
		assert.ErrorIs(t, err, domain.ErrNoProviderAvailable)
	})
}

func TestRegistry_HasAnyProvider(t *testing.T) {
	assert.True(t, NewRegistry(RegistryConfig{GeminiConfigured: true}).HasAnyProvider())
	assert.True(t, NewRegistry(RegistryConfig{GroqConfigured: true}).HasAnyProvider())
	assert.False(t, NewRegistry(RegistryConfig{}).HasAnyProvider())
}
