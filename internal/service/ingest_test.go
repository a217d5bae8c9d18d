package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/studykit/engine/internal/domain"
	"github.com/studykit/engine/internal/embedding"
)

func TestIngestService_IngestDocument(t *testing.T) {
	ctx := context.Background()
	cfg := ChunkConfig{MaxChars: 50, MinChars: 10, Overlap: 5, MaxChunks: 100}

	t.Run("chunks, embeds, stores, and marks indexed", func(t *testing.T) {
		docs := new(MockDocumentStore)
		chunkStore := new(MockChunkStore)
		embedder := new(MockEmbeddingClient)
		svc := NewIngestService(docs, chunkStore, embedder, cfg)

		doc := &domain.Document{ID: "doc-1", UserID: "user-1", FileName: "notes.txt", Title: "Ghi chú", Content: "một đoạn văn ngắn"}
		docs.On("GetForIngest", mock.Anything, "doc-1").Return(doc, nil)
		embedder.On("Embed", mock.Anything, []string{"một đoạn văn ngắn"}, embedding.ModeDocument).
			Return([][]float32{{0.1, 0.2}}, nil)
		chunkStore.On("ReplaceChunks", mock.Anything, "doc-1", mock.MatchedBy(func(chunks []domain.DocumentChunk) bool {
			return len(chunks) == 1 &&
				chunks[0].DocumentID == "doc-1" &&
				chunks[0].UserID == "user-1" &&
				chunks[0].ChunkIndex == 0 &&
				chunks[0].Content == "một đoạn văn ngắn"
		})).Return(nil)
		docs.On("UpdateStatus", mock.Anything, "doc-1", domain.DocumentStatusIndexed, 1).Return(nil)

		err := svc.IngestDocument(ctx, "doc-1")

		require.NoError(t, err)
		docs.AssertExpectations(t)
		chunkStore.AssertExpectations(t)
	})

	t.Run("empty content is a validation error", func(t *testing.T) {
		docs := new(MockDocumentStore)
		svc := NewIngestService(docs, new(MockChunkStore), new(MockEmbeddingClient), cfg)

		docs.On("GetForIngest", mock.Anything, "doc-1").Return(&domain.Document{ID: "doc-1", Content: "   "}, nil)

		err := svc.IngestDocument(ctx, "doc-1")
		assert.ErrorIs(t, err, domain.ErrEmptyDocumentContent)
	})

	t.Run("embedding failure surfaces", func(t *testing.T) {
		docs := new(MockDocumentStore)
		chunkStore := new(MockChunkStore)
		embedder := new(MockEmbeddingClient)
		svc := NewIngestService(docs, chunkStore, embedder, cfg)

		docs.On("GetForIngest", mock.Anything, "doc-1").Return(&domain.Document{ID: "doc-1", Content: "nội dung"}, nil)
		embedder.On("Embed", mock.Anything, mock.Anything, embedding.ModeDocument).Return(nil, errors.New("quota"))

		err := svc.IngestDocument(ctx, "doc-1")

		assert.Error(t, err)
		chunkStore.AssertNotCalled(t, "ReplaceChunks")
	})

	t.Run("vector count mismatch surfaces", func(t *testing.T) {
		docs := new(MockDocumentStore)
		embedder := new(MockEmbeddingClient)
		svc := NewIngestService(docs, new(MockChunkStore), embedder, cfg)

		docs.On("GetForIngest", mock.Anything, "doc-1").Return(&domain.Document{ID: "doc-1", Content: "nội dung"}, nil)
		embedder.On("Embed", mock.Anything, mock.Anything, embedding.ModeDocument).Return([][]float32{}, nil)

		err := svc.IngestDocument(ctx, "doc-1")
		assert.ErrorContains(t, err, "mismatch")
	})
}

func TestIngestService_MarkFailed(t *testing.T) {
	docs := new(MockDocumentStore)
	svc := NewIngestService(docs, new(MockChunkStore), new(MockEmbeddingClient), DefaultChunkConfig())

	docs.On("UpdateStatus", mock.Anything, "doc-1", domain.DocumentStatusFailed, 0).Return(nil)

	err := svc.MarkFailed(context.Background(), "doc-1")

	assert.NoError(t, err)
	docs.AssertExpectations(t)
}
