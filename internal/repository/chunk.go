package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/studykit/engine/internal/domain"
	"github.com/studykit/engine/internal/service"
)

// ChunkRepository handles persistence and vector search of document chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a document and inserts new ones.
// Re-ingesting a document is idempotent because of this.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO document_chunks
				(id, document_id, user_id, file_name, title, chunk_index, content, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ID,
			c.DocumentID,
			c.UserID,
			c.FileName,
			c.Title,
			c.ChunkIndex,
			c.Content,
			pgvector.NewVector(c.Embedding),
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// SearchByEmbedding runs a cosine similarity search over the user's chunks.
// Scores are 1 - cosine distance; only chunks at or above minScore are
// returned, nearest first.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, filters service.SearchFilters, minScore float32, limit int) ([]domain.ContextChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	vec := pgvector.NewVector(embedding)

	var rows pgx.Rows
	var err error

	if len(filters.DocumentIDs) > 0 {
		rows, err = r.db.Query(ctx,
			`SELECT id, document_id, file_name, title, chunk_index, content,
			        1 - (embedding <=> $1) AS score
			 FROM document_chunks
			 WHERE user_id = $2
			   AND document_id = ANY($3)
			   AND 1 - (embedding <=> $1) >= $4
			 ORDER BY embedding <=> $1 ASC
			 LIMIT $5`,
			vec, filters.UserID, filters.DocumentIDs, minScore, limit,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, document_id, file_name, title, chunk_index, content,
			        1 - (embedding <=> $1) AS score
			 FROM document_chunks
			 WHERE user_id = $2
			   AND 1 - (embedding <=> $1) >= $3
			 ORDER BY embedding <=> $1 ASC
			 LIMIT $4`,
			vec, filters.UserID, minScore, limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ContextChunk, 0)
	for rows.Next() {
		var c domain.ContextChunk
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.FileName, &c.Title, &c.ChunkIndex, &c.Text, &c.Score); err != nil {
			return nil, err
		}
		results = append(results, c)
	}

	return results, rows.Err()
}

// ScanByDocuments returns the chunks of the given documents in reading order,
// ignoring similarity. Used when an intent needs the full document text.
func (r *ChunkRepository) ScanByDocuments(ctx context.Context, userID string, documentIDs []string, limit int) ([]domain.ContextChunk, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, file_name, title, chunk_index, content
		 FROM document_chunks
		 WHERE user_id = $1 AND document_id = ANY($2)
		 ORDER BY document_id, chunk_index ASC
		 LIMIT $3`,
		userID, documentIDs, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ContextChunk, 0)
	for rows.Next() {
		var c domain.ContextChunk
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.FileName, &c.Title, &c.ChunkIndex, &c.Text); err != nil {
			return nil, err
		}
		c.Score = 1.0
		results = append(results, c)
	}

	return results, rows.Err()
}

// CountByDocument reports how many chunks a document has.
func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`,
		documentID,
	).Scan(&count)
	return count, err
}
