package service

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/studykit/engine/internal/domain"
	"github.com/studykit/engine/internal/embedding"
	"github.com/studykit/engine/internal/telemetry"
)

// SearchFilters scopes retrieval to a user and optionally to specific
// documents.
type SearchFilters struct {
	UserID      string
	DocumentIDs []string
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	Embed(ctx context.Context, texts []string, mode embedding.Mode) ([][]float32, error)
}

// VectorStore defines the similarity-search interface for chunk retrieval
type VectorStore interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, filters SearchFilters, minScore float32, limit int) ([]domain.ContextChunk, error)
	ScanByDocuments(ctx context.Context, userID string, documentIDs []string, limit int) ([]domain.ContextChunk, error)
}

// RetrieverConfig controls retrieval behavior.
type RetrieverConfig struct {
	// MinScoreThreshold is the floor the adaptive fallback re-runs at.
	MinScoreThreshold float32
	EnableFallback    bool
	ScanLimit         int
	EmbedTimeout      time.Duration
	SearchTimeout     time.Duration
}

// DefaultRetrieverConfig returns the default retriever configuration.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		MinScoreThreshold: 0.3,
		EnableFallback:    true,
		ScanLimit:         100,
		EmbedTimeout:      30 * time.Second,
		SearchTimeout:     15 * time.Second,
	}
}

// Retriever wraps the embedding client and the vector store into scoped
// top-k search and full-document scan retrieval.
type Retriever struct {
	embedder EmbeddingClient
	store    VectorStore
	cfg      RetrieverConfig
}

func NewRetriever(embedder EmbeddingClient, store VectorStore, cfg RetrieverConfig) *Retriever {
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = DefaultRetrieverConfig().ScanLimit
	}
	return &Retriever{embedder: embedder, store: store, cfg: cfg}
}

// Search embeds the query and runs a scoped similarity search. When the
// result count falls below max(2, topK/2) and the threshold sits above the
// configured floor, the search re-runs once at the floor; the second result
// set replaces the first entirely.
//
// A failing embedding or search backend degrades to an empty result rather
// than an error, so the caller can fall back to answering without context.
func (r *Retriever) Search(ctx context.Context, query string, filters SearchFilters, topK int, scoreThreshold float32) []domain.ContextChunk {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.Search", telemetry.SpanAttributes{
		UserID:    filters.UserID,
		Operation: "search",
	})
	defer span.End()

	vector, err := r.embedQuery(ctx, query)
	if err != nil {
		log.Printf("retriever: query embedding failed, returning no context: %v", err)
		span.SetError(err)
		return []domain.ContextChunk{}
	}

	results, err := r.searchOnce(ctx, vector, filters, scoreThreshold, topK)
	if err != nil {
		log.Printf("retriever: search failed, returning no context: %v", err)
		span.SetError(err)
		return []domain.ContextChunk{}
	}

	if len(results) < minAcceptable(topK) && r.cfg.EnableFallback && scoreThreshold > r.cfg.MinScoreThreshold {
		log.Printf("retriever: only %d results at threshold %.2f, retrying at floor %.2f",
			len(results), scoreThreshold, r.cfg.MinScoreThreshold)

		fallbackResults, err := r.searchOnce(ctx, vector, filters, r.cfg.MinScoreThreshold, topK)
		if err != nil {
			log.Printf("retriever: fallback search failed, keeping original results: %v", err)
			return results
		}
		results = fallbackResults
	}

	return results
}

// ScanDocuments retrieves every chunk of the given documents up to the scan
// cap, bypassing similarity entirely, and restores reading order. Each chunk
// carries a nominal score of 1.0. Used for summarization.
func (r *Retriever) ScanDocuments(ctx context.Context, userID string, documentIDs []string) []domain.ContextChunk {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.ScanDocuments", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "scan",
	})
	defer span.End()

	if r.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.SearchTimeout)
		defer cancel()
	}

	results, err := r.store.ScanByDocuments(ctx, userID, documentIDs, r.cfg.ScanLimit)
	if err != nil {
		log.Printf("retriever: document scan failed, returning no context: %v", err)
		span.SetError(err)
		return []domain.ContextChunk{}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ChunkIndex < results[j].ChunkIndex
	})

	return results
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.cfg.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.EmbedTimeout)
		defer cancel()
	}

	vectors, err := r.embedder.Embed(ctx, []string{query}, embedding.ModeQuery)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, embedding.ErrEmptyInput
	}
	return vectors[0], nil
}

func (r *Retriever) searchOnce(ctx context.Context, vector []float32, filters SearchFilters, threshold float32, topK int) ([]domain.ContextChunk, error) {
	if r.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.SearchTimeout)
		defer cancel()
	}
	return r.store.SearchByEmbedding(ctx, vector, filters, threshold, topK)
}

// minAcceptable is the result count below which the adaptive fallback kicks
// in: max(2, topK/2).
func minAcceptable(topK int) int {
	n := topK / 2
	if n < 2 {
		n = 2
	}
	return n
}
