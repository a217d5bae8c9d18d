package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/studykit/engine/internal/domain"
	"github.com/studykit/engine/internal/provider"
)

// MockContextRetriever is a mock implementation of ContextRetriever
type MockContextRetriever struct {
	mock.Mock
}

func (m *MockContextRetriever) Search(ctx context.Context, query string, filters SearchFilters, topK int, scoreThreshold float32) []domain.ContextChunk {
	args := m.Called(ctx, query, filters, topK, scoreThreshold)
	return args.Get(0).([]domain.ContextChunk)
}

func (m *MockContextRetriever) ScanDocuments(ctx context.Context, userID string, documentIDs []string) []domain.ContextChunk {
	args := m.Called(ctx, userID, documentIDs)
	return args.Get(0).([]domain.ContextChunk)
}

// MockModelSelector is a mock implementation of ModelSelector
type MockModelSelector struct {
	mock.Mock
}

func (m *MockModelSelector) SelectModel(task domain.TaskType, complexity domain.Complexity, forced domain.ProviderName) (domain.ProviderModel, error) {
	args := m.Called(task, complexity, forced)
	return args.Get(0).(domain.ProviderModel), args.Error(1)
}

// MockTextGenerator is a mock implementation of TextGenerator
type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) GenerateWithFallback(ctx context.Context, pm domain.ProviderModel, req provider.Request) (string, string, error) {
	args := m.Called(ctx, pm, req)
	return args.String(0), args.String(1), args.Error(2)
}

func newTestOrchestrator(retriever ContextRetriever, selector ModelSelector, generator TextGenerator) *Orchestrator {
	return NewOrchestrator(NewClassifier(), retriever, selector, generator, DefaultOrchestratorConfig())
}

var flashModel = domain.ProviderModel{Provider: domain.ProviderGeminiFlash, Model: "gemini-2.0-flash"}
var proModel = domain.ProviderModel{Provider: domain.ProviderGeminiPro, Model: "gemini-2.5-pro"}

func TestOrchestrator_ProcessQuery_Validation(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(new(MockContextRetriever), new(MockModelSelector), new(MockTextGenerator))

	t.Run("empty question is rejected", func(t *testing.T) {
		_, err := o.ProcessQuery(ctx, domain.Query{UserID: "user-1"})
		assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
	})

	t.Run("missing user is rejected", func(t *testing.T) {
		_, err := o.ProcessQuery(ctx, domain.Query{Question: "Xin chào"})
		assert.ErrorIs(t, err, domain.ErrMissingUserScope)
	})

	t.Run("out of range threshold is rejected", func(t *testing.T) {
		_, err := o.ProcessQuery(ctx, domain.Query{Question: "Xin chào", UserID: "user-1", ScoreThreshold: 1.5})
		assert.ErrorIs(t, err, domain.ErrInvalidScoreThreshold)
	})
}

func TestOrchestrator_DirectChat(t *testing.T) {
	ctx := context.Background()

	t.Run("generates without retrieval", func(t *testing.T) {
		retriever := new(MockContextRetriever)
		selector := new(MockModelSelector)
		generator := new(MockTextGenerator)
		o := newTestOrchestrator(retriever, selector, generator)

		selector.On("SelectModel", domain.TaskDirectChat, domain.ComplexityLow, domain.ProviderName("")).Return(flashModel, nil)
		generator.On("GenerateWithFallback", mock.Anything, flashModel, mock.MatchedBy(func(req provider.Request) bool {
			return req.Prompt == "Xin chào" && req.Temperature == float32(0.7)
		})).Return("Chào bạn!", "gemini-flash", nil)

		result, err := o.ProcessQuery(ctx, domain.Query{Question: "Xin chào", UserID: "user-1"})

		require.NoError(t, err)
		assert.Equal(t, domain.IntentDirectChat, result.Intent)
		assert.Equal(t, "Chào bạn!", result.Answer)
		assert.Equal(t, "gemini-flash", result.ProviderUsed)
		assert.Empty(t, result.Contexts)
		assert.Equal(t, 4, result.EstimatedTokens)
		retriever.AssertNotCalled(t, "Search")
	})

	t.Run("caller temperature overrides the intent bias", func(t *testing.T) {
		retriever := new(MockContextRetriever)
		selector := new(MockModelSelector)
		generator := new(MockTextGenerator)
		o := newTestOrchestrator(retriever, selector, generator)

		selector.On("SelectModel", domain.TaskDirectChat, domain.ComplexityLow, domain.ProviderName("")).Return(flashModel, nil)
		generator.On("GenerateWithFallback", mock.Anything, flashModel, mock.MatchedBy(func(req provider.Request) bool {
			return req.Temperature == float32(0.2)
		})).Return("ok", "gemini-flash", nil)

		_, err := o.ProcessQuery(ctx, domain.Query{Question: "Xin chào", UserID: "user-1", Temperature: 0.2})
		require.NoError(t, err)
		generator.AssertExpectations(t)
	})

	t.Run("generation error surfaces", func(t *testing.T) {
		retriever := new(MockContextRetriever)
		selector := new(MockModelSelector)
		generator := new(MockTextGenerator)
		o := newTestOrchestrator(retriever, selector, generator)

		selector.On("SelectModel", domain.TaskDirectChat, domain.ComplexityLow, domain.ProviderName("")).Return(flashModel, nil)
		generator.On("GenerateWithFallback", mock.Anything, flashModel, mock.Anything).Return("", "gemini-flash", errors.New("boom"))

		_, err := o.ProcessQuery(ctx, domain.Query{Question: "Xin chào", UserID: "user-1"})
		assert.Error(t, err)
	})
}

func TestOrchestrator_RAGQuery(t *testing.T) {
	ctx := context.Background()
	docIDs := []string{"doc-1"}
	filters := SearchFilters{UserID: "user-1", DocumentIDs: docIDs}

	t.Run("empty retrieval returns canned answer without generation", func(t *testing.T) {
		retriever := new(MockContextRetriever)
		selector := new(MockModelSelector)
		generator := new(MockTextGenerator)
		o := newTestOrchestrator(retriever, selector, generator)

		retriever.On("Search", mock.Anything, "Nội dung chương 3", filters, 5, float32(0.5)).Return([]domain.ContextChunk{})

		result, err := o.ProcessQuery(ctx, domain.Query{
			Question:    "Nội dung chương 3",
			UserID:      "user-1",
			DocumentIDs: docIDs,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.IntentRAGQuery, result.Intent)
		assert.Equal(t, answerNoContext, result.Answer)
		assert.Equal(t, "none", result.ProviderUsed)
		assert.Empty(t, result.Contexts)
		assert.Zero(t, result.EstimatedTokens)
		generator.AssertNotCalled(t, "GenerateWithFallback")
	})

	t.Run("generates from retrieved contexts", func(t *testing.T) {
		retriever := new(MockContextRetriever)
		selector := new(MockModelSelector)
		generator := new(MockTextGenerator)
		o := newTestOrchestrator(retriever, selector, generator)

		contexts := []domain.ContextChunk{{ChunkID: "c1", Text: "Quang hợp tạo ra oxy.", FileName: "sinh.txt", Score: 0.9}}
		retriever.On("Search", mock.Anything, "Quang hợp là gì?", filters, 5, float32(0.5)).Return(contexts)
		selector.On("SelectModel", domain.TaskRAGQuery, domain.ComplexityLow, domain.ProviderName("")).Return(flashModel, nil)
		generator.On("GenerateWithFallback", mock.Anything, flashModel, mock.Anything).Return("Theo Tài liệu 1...", "gemini-flash", nil)

		result, err := o.ProcessQuery(ctx, domain.Query{
			Question:    "Quang hợp là gì?",
			UserID:      "user-1",
			DocumentIDs: docIDs,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.IntentRAGQuery, result.Intent)
		assert.Equal(t, contexts, result.Contexts)
		assert.Equal(t, "gemini-flash", result.ProviderUsed)
	})

	t.Run("complex question requests the high tier", func(t *testing.T) {
		retriever := new(MockContextRetriever)
		selector := new(MockModelSelector)
		generator := new(MockTextGenerator)
		o := newTestOrchestrator(retriever, selector, generator)

		question := "Phân tích mối quan hệ giữa quang hợp và hô hấp trong tài liệu"
		contexts := []domain.ContextChunk{{ChunkID: "c1", Text: "..."}}
		retriever.On("Search", mock.Anything, question, filters, 5, float32(0.5)).Return(contexts)
		selector.On("SelectModel", domain.TaskRAGQuery, domain.ComplexityHigh, domain.ProviderName("")).Return(proModel, nil)
		generator.On("GenerateWithFallback", mock.Anything, proModel, mock.Anything).Return("...", "gemini-pro", nil)

		result, err := o.ProcessQuery(ctx, domain.Query{Question: question, UserID: "user-1", DocumentIDs: docIDs})

		require.NoError(t, err)
		assert.Equal(t, "gemini-pro", result.ProviderUsed)
		selector.AssertExpectations(t)
	})
}

func TestOrchestrator_Summarization(t *testing.T) {
	ctx := context.Background()

	t.Run("empty scan returns canned answer", func(t *testing.T) {
		retriever := new(MockContextRetriever)
		o := newTestOrchestrator(retriever, new(MockModelSelector), new(MockTextGenerator))

		retriever.On("ScanDocuments", mock.Anything, "user-1", []string{"doc-1"}).Return([]domain.ContextChunk{})

		result, err := o.ProcessQuery(ctx, domain.Query{
			Question:    "Tóm tắt tài liệu này",
			UserID:      "user-1",
			DocumentIDs: []string{"doc-1"},
		})

		require.NoError(t, err)
		assert.Equal(t, domain.IntentSummarization, result.Intent)
		assert.Equal(t, answerEmptyDocument, result.Answer)
		assert.Equal(t, "none", result.ProviderUsed)
	})

	t.Run("summarizes scanned chunks and caps echoed contexts", func(t *testing.T) {
		retriever := new(MockContextRetriever)
		selector := new(MockModelSelector)
		generator := new(MockTextGenerator)
		o := newTestOrchestrator(retriever, selector, generator)

		scanned := make([]domain.ContextChunk, 0, 15)
		for i := 0; i < 15; i++ {
			scanned = append(scanned, domain.ContextChunk{ChunkIndex: i, Text: "phần", Score: 1.0})
		}
		retriever.On("ScanDocuments", mock.Anything, "user-1", []string{"doc-1"}).Return(scanned)
		selector.On("SelectModel", domain.TaskSummarization, domain.ComplexityHigh, domain.ProviderName("")).Return(proModel, nil)
		generator.On("GenerateWithFallback", mock.Anything, proModel, mock.Anything).Return("Tóm tắt...", "gemini-pro", nil)

		result, err := o.ProcessQuery(ctx, domain.Query{
			Question:    "Tóm tắt tài liệu này",
			UserID:      "user-1",
			DocumentIDs: []string{"doc-1"},
		})

		require.NoError(t, err)
		assert.Equal(t, domain.IntentSummarization, result.Intent)
		assert.Len(t, result.Contexts, 10)
	})
}

func TestOrchestrator_QuestionGeneration(t *testing.T) {
	ctx := context.Background()
	docIDs := []string{"doc-1"}
	filters := SearchFilters{UserID: "user-1", DocumentIDs: docIDs}

	t.Run("uses wider retrieval at a lower threshold", func(t *testing.T) {
		retriever := new(MockContextRetriever)
		selector := new(MockModelSelector)
		generator := new(MockTextGenerator)
		o := newTestOrchestrator(retriever, selector, generator)

		contexts := []domain.ContextChunk{{ChunkID: "c1", Text: "..."}}
		retriever.On("Search", mock.Anything, "Tạo câu hỏi ôn tập", filters, 10, float32(0.3)).Return(contexts)
		selector.On("SelectModel", domain.TaskQuestionGeneration, domain.ComplexityHigh, domain.ProviderName("")).Return(proModel, nil)
		generator.On("GenerateWithFallback", mock.Anything, proModel, mock.MatchedBy(func(req provider.Request) bool {
			return req.Temperature == float32(0.9)
		})).Return("**Câu 1** ...", "gemini-pro", nil)

		result, err := o.ProcessQuery(ctx, domain.Query{
			Question:    "Tạo câu hỏi ôn tập",
			UserID:      "user-1",
			DocumentIDs: docIDs,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.IntentQuestionGeneration, result.Intent)
		retriever.AssertExpectations(t)
	})

	t.Run("empty retrieval returns canned answer", func(t *testing.T) {
		retriever := new(MockContextRetriever)
		generator := new(MockTextGenerator)
		o := newTestOrchestrator(retriever, new(MockModelSelector), generator)

		retriever.On("Search", mock.Anything, "Tạo câu hỏi ôn tập", filters, 10, float32(0.3)).Return([]domain.ContextChunk{})

		result, err := o.ProcessQuery(ctx, domain.Query{
			Question:    "Tạo câu hỏi ôn tập",
			UserID:      "user-1",
			DocumentIDs: docIDs,
		})

		require.NoError(t, err)
		assert.Equal(t, answerNoQuestionSource, result.Answer)
		generator.AssertNotCalled(t, "GenerateWithFallback")
	})
}

func TestOrchestrator_Homework(t *testing.T) {
	ctx := context.Background()

	t.Run("raises the token budget for worked solutions", func(t *testing.T) {
		selector := new(MockModelSelector)
		generator := new(MockTextGenerator)
		o := newTestOrchestrator(new(MockContextRetriever), selector, generator)

		selector.On("SelectModel", domain.TaskHomeworkSolver, domain.ComplexityHigh, domain.ProviderName("")).Return(proModel, nil)
		generator.On("GenerateWithFallback", mock.Anything, proModel, mock.MatchedBy(func(req provider.Request) bool {
			return req.MaxTokens == 3072
		})).Return("1. PHÂN TÍCH ĐỀ BÀI...", "gemini-pro", nil)

		result, err := o.ProcessQuery(ctx, domain.Query{
			Question: "Giải bài tập 5 trang 20",
			UserID:   "user-1",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.IntentHomeworkSolver, result.Intent)
		generator.AssertExpectations(t)
	})

	t.Run("keeps a larger caller budget", func(t *testing.T) {
		selector := new(MockModelSelector)
		generator := new(MockTextGenerator)
		o := newTestOrchestrator(new(MockContextRetriever), selector, generator)

		selector.On("SelectModel", domain.TaskHomeworkSolver, domain.ComplexityHigh, domain.ProviderName("")).Return(proModel, nil)
		generator.On("GenerateWithFallback", mock.Anything, proModel, mock.MatchedBy(func(req provider.Request) bool {
			return req.MaxTokens == 8000
		})).Return("...", "gemini-pro", nil)

		_, err := o.ProcessQuery(ctx, domain.Query{
			Question:  "Giải bài tập 5 trang 20",
			UserID:    "user-1",
			MaxTokens: 8000,
		})

		require.NoError(t, err)
		generator.AssertExpectations(t)
	})
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens("", ""))
	assert.Equal(t, 5, estimateTokens("một hai ba", "bốn năm"))
}

func TestBuildRAGPrompt(t *testing.T) {
	contexts := []domain.ContextChunk{
		{FileName: "sinh.txt", Text: "Quang hợp tạo ra oxy."},
		{FileName: "hoa.txt", Text: "Nước là H2O."},
	}
	prompt := buildRAGPrompt("Quang hợp là gì?", contexts)

	assert.Contains(t, prompt, "[Tài liệu 1 - sinh.txt]")
	assert.Contains(t, prompt, "[Tài liệu 2 - hoa.txt]")
	assert.Contains(t, prompt, "CÂU HỎI: Quang hợp là gì?")
	assert.Contains(t, prompt, "TRẢ LỜI:")
}

func TestBuildSummarizationPrompt(t *testing.T) {
	contexts := []domain.ContextChunk{{Text: "phần một"}, {Text: "phần hai"}}
	prompt := buildSummarizationPrompt(contexts)

	assert.Contains(t, prompt, "[Phần 1]\nphần một")
	assert.Contains(t, prompt, "[Phần 2]\nphần hai")
	assert.Contains(t, prompt, "TÓM TẮT:")
}
