package service

import (
	"context"
	"fmt"
	"time"

	"github.com/studykit/engine/internal/domain"
	"github.com/studykit/engine/internal/embedding"
	"github.com/studykit/engine/internal/telemetry"
)

// ChunkStore defines the repository interface for chunk persistence
type ChunkStore interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error
}

// IngestService turns a stored document into embedded chunks. The background
// worker drives it off the ingest job queue.
type IngestService struct {
	docs     DocumentStore
	chunks   ChunkStore
	embedder EmbeddingClient
	chunkCfg ChunkConfig
	uuidGen  UUIDGenerator
}

func NewIngestService(docs DocumentStore, chunks ChunkStore, embedder EmbeddingClient, chunkCfg ChunkConfig) *IngestService {
	if chunkCfg.MaxChars <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	return &IngestService{
		docs:     docs,
		chunks:   chunks,
		embedder: embedder,
		chunkCfg: chunkCfg,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// IngestDocument chunks, embeds, and stores a document's content, then marks
// the document indexed. Re-running replaces prior chunks, so it is safe to
// retry.
func (s *IngestService) IngestDocument(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "ingest",
	})
	defer span.End()

	doc, err := s.docs.GetForIngest(ctx, documentID)
	if err != nil {
		return err
	}

	pieces := chunkText(doc.Content, s.chunkCfg)
	if len(pieces) == 0 {
		return domain.ErrEmptyDocumentContent
	}

	vectors, err := s.embedder.Embed(ctx, pieces, embedding.ModeDocument)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to embed document %s: %w", documentID, err)
	}
	if len(vectors) != len(pieces) {
		return fmt.Errorf("embedding count mismatch for document %s: %d texts, %d vectors", documentID, len(pieces), len(vectors))
	}

	now := time.Now().UTC()
	chunks := make([]domain.DocumentChunk, 0, len(pieces))
	for i, text := range pieces {
		chunks = append(chunks, domain.DocumentChunk{
			ID:         s.uuidGen.NewString(),
			DocumentID: doc.ID,
			UserID:     doc.UserID,
			FileName:   doc.FileName,
			Title:      doc.Title,
			ChunkIndex: i,
			Content:    text,
			Embedding:  vectors[i],
			CreatedAt:  now,
		})
	}

	if err := s.chunks.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to store chunks for document %s: %w", documentID, err)
	}

	return s.docs.UpdateStatus(ctx, doc.ID, domain.DocumentStatusIndexed, len(chunks))
}

// MarkFailed records a terminal ingest failure on the document.
func (s *IngestService) MarkFailed(ctx context.Context, documentID string) error {
	return s.docs.UpdateStatus(ctx, documentID, domain.DocumentStatusFailed, 0)
}
