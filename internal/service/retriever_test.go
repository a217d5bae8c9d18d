package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/studykit/engine/internal/domain"
	"github.com/studykit/engine/internal/embedding"
)

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) Embed(ctx context.Context, texts []string, mode embedding.Mode) ([][]float32, error) {
	args := m.Called(ctx, texts, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockVectorStore is a mock implementation of VectorStore
type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) SearchByEmbedding(ctx context.Context, embedding []float32, filters SearchFilters, minScore float32, limit int) ([]domain.ContextChunk, error) {
	args := m.Called(ctx, embedding, filters, minScore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContextChunk), args.Error(1)
}

func (m *MockVectorStore) ScanByDocuments(ctx context.Context, userID string, documentIDs []string, limit int) ([]domain.ContextChunk, error) {
	args := m.Called(ctx, userID, documentIDs, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContextChunk), args.Error(1)
}

func chunks(n int) []domain.ContextChunk {
	out := make([]domain.ContextChunk, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.ContextChunk{ChunkID: string(rune('a' + i)), ChunkIndex: i, Score: 0.8})
	}
	return out
}

func TestRetriever_Search(t *testing.T) {
	ctx := context.Background()
	vector := [][]float32{{0.1, 0.2, 0.3}}
	filters := SearchFilters{UserID: "user-1"}

	cfg := RetrieverConfig{
		MinScoreThreshold: 0.3,
		EnableFallback:    true,
		ScanLimit:         100,
	}

	t.Run("returns results when enough matches", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		r := NewRetriever(embedder, store, cfg)

		embedder.On("Embed", mock.Anything, []string{"question"}, embedding.ModeQuery).Return(vector, nil)
		store.On("SearchByEmbedding", mock.Anything, vector[0], filters, float32(0.5), 5).Return(chunks(3), nil)

		results := r.Search(ctx, "question", filters, 5, 0.5)

		assert.Len(t, results, 3)
		store.AssertNumberOfCalls(t, "SearchByEmbedding", 1)
	})

	t.Run("retries once at floor threshold when too few results", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		r := NewRetriever(embedder, store, cfg)

		embedder.On("Embed", mock.Anything, []string{"question"}, embedding.ModeQuery).Return(vector, nil)
		// topK=5 means fewer than 2 results triggers the fallback
		store.On("SearchByEmbedding", mock.Anything, vector[0], filters, float32(0.5), 5).Return(chunks(1), nil)
		store.On("SearchByEmbedding", mock.Anything, vector[0], filters, float32(0.3), 5).Return(chunks(4), nil)

		results := r.Search(ctx, "question", filters, 5, 0.5)

		// The fallback result set replaces the first entirely
		assert.Len(t, results, 4)
		store.AssertExpectations(t)
	})

	t.Run("no fallback when threshold already at floor", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		r := NewRetriever(embedder, store, cfg)

		embedder.On("Embed", mock.Anything, []string{"question"}, embedding.ModeQuery).Return(vector, nil)
		store.On("SearchByEmbedding", mock.Anything, vector[0], filters, float32(0.3), 5).Return(chunks(0), nil)

		results := r.Search(ctx, "question", filters, 5, 0.3)

		assert.Empty(t, results)
		store.AssertNumberOfCalls(t, "SearchByEmbedding", 1)
	})

	t.Run("no fallback when fallback disabled", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		disabled := cfg
		disabled.EnableFallback = false
		r := NewRetriever(embedder, store, disabled)

		embedder.On("Embed", mock.Anything, []string{"question"}, embedding.ModeQuery).Return(vector, nil)
		store.On("SearchByEmbedding", mock.Anything, vector[0], filters, float32(0.5), 5).Return(chunks(1), nil)

		results := r.Search(ctx, "question", filters, 5, 0.5)

		assert.Len(t, results, 1)
		store.AssertNumberOfCalls(t, "SearchByEmbedding", 1)
	})

	t.Run("enough results suppress the fallback at the boundary", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		r := NewRetriever(embedder, store, cfg)

		embedder.On("Embed", mock.Anything, []string{"question"}, embedding.ModeQuery).Return(vector, nil)
		// topK=10 means the acceptable floor is 5 results; exactly 5 is enough
		store.On("SearchByEmbedding", mock.Anything, vector[0], filters, float32(0.5), 10).Return(chunks(5), nil)

		results := r.Search(ctx, "question", filters, 10, 0.5)

		assert.Len(t, results, 5)
		store.AssertNumberOfCalls(t, "SearchByEmbedding", 1)
	})

	t.Run("embedding failure degrades to empty", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		r := NewRetriever(embedder, store, cfg)

		embedder.On("Embed", mock.Anything, []string{"question"}, embedding.ModeQuery).Return(nil, errors.New("backend down"))

		results := r.Search(ctx, "question", filters, 5, 0.5)

		assert.NotNil(t, results)
		assert.Empty(t, results)
		store.AssertNotCalled(t, "SearchByEmbedding")
	})

	t.Run("search failure degrades to empty", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		r := NewRetriever(embedder, store, cfg)

		embedder.On("Embed", mock.Anything, []string{"question"}, embedding.ModeQuery).Return(vector, nil)
		store.On("SearchByEmbedding", mock.Anything, vector[0], filters, float32(0.5), 5).Return(nil, errors.New("connection refused"))

		results := r.Search(ctx, "question", filters, 5, 0.5)

		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("fallback search failure keeps original results", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		r := NewRetriever(embedder, store, cfg)

		embedder.On("Embed", mock.Anything, []string{"question"}, embedding.ModeQuery).Return(vector, nil)
		store.On("SearchByEmbedding", mock.Anything, vector[0], filters, float32(0.5), 5).Return(chunks(1), nil)
		store.On("SearchByEmbedding", mock.Anything, vector[0], filters, float32(0.3), 5).Return(nil, errors.New("timeout"))

		results := r.Search(ctx, "question", filters, 5, 0.5)

		assert.Len(t, results, 1)
	})
}

func TestRetriever_ScanDocuments(t *testing.T) {
	ctx := context.Background()

	cfg := RetrieverConfig{MinScoreThreshold: 0.3, EnableFallback: true, ScanLimit: 100}

	t.Run("returns chunks in reading order", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		r := NewRetriever(embedder, store, cfg)

		unordered := []domain.ContextChunk{
			{ChunkID: "c", ChunkIndex: 2, Score: 1.0},
			{ChunkID: "a", ChunkIndex: 0, Score: 1.0},
			{ChunkID: "b", ChunkIndex: 1, Score: 1.0},
		}
		store.On("ScanByDocuments", mock.Anything, "user-1", []string{"doc-1"}, 100).Return(unordered, nil)

		results := r.ScanDocuments(ctx, "user-1", []string{"doc-1"})

		assert.Len(t, results, 3)
		assert.Equal(t, "a", results[0].ChunkID)
		assert.Equal(t, "b", results[1].ChunkID)
		assert.Equal(t, "c", results[2].ChunkID)
		embedder.AssertNotCalled(t, "Embed")
	})

	t.Run("scan failure degrades to empty", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		r := NewRetriever(embedder, store, cfg)

		store.On("ScanByDocuments", mock.Anything, "user-1", []string{"doc-1"}, 100).Return(nil, errors.New("db down"))

		results := r.ScanDocuments(ctx, "user-1", []string{"doc-1"})

		assert.NotNil(t, results)
		assert.Empty(t, results)
	})
}

func TestMinAcceptable(t *testing.T) {
	assert.Equal(t, 2, minAcceptable(1))
	assert.Equal(t, 2, minAcceptable(4))
	assert.Equal(t, 2, minAcceptable(5))
	assert.Equal(t, 3, minAcceptable(6))
	assert.Equal(t, 5, minAcceptable(10))
}
