package domain

import "time"

// Query is the single entry-point input for the orchestration engine. The
// request layer fills tuning params from config defaults when absent.
type Query struct {
	Question       string
	UserID         string
	DocumentIDs    []string
	TopK           int
	ScoreThreshold float32
	Temperature    float32
	MaxTokens      int
}

// Validate checks the invariants the orchestrator relies on.
func (q *Query) Validate() error {
	if q.Question == "" {
		return ErrEmptyQuestion
	}
	if q.UserID == "" {
		return ErrMissingUserScope
	}
	if q.TopK <= 0 {
		return ErrInvalidTopK
	}
	if q.ScoreThreshold < 0 || q.ScoreThreshold > 1 {
		return ErrInvalidScoreThreshold
	}
	return nil
}

// HasDocuments reports whether the query is scoped to uploaded documents.
func (q *Query) HasDocuments() bool {
	return len(q.DocumentIDs) > 0
}

// ContextChunk is a retrieved document fragment used to ground generation.
// Produced only by the retriever; immutable once returned. Ordering is
// descending by score for top-k search and ascending by chunk index for
// full-document scans.
type ContextChunk struct {
	ChunkID    string
	DocumentID string
	Text       string
	ChunkIndex int
	Score      float32
	FileName   string
	Title      string
}

// QueryResult is the uniform output of every handler plus orchestrator
// metadata. Created fresh per request; never persisted by this engine.
type QueryResult struct {
	Answer          string
	Contexts        []ContextChunk
	ProviderUsed    string
	EstimatedTokens int
	Intent          Intent
	ProcessingTime  time.Duration
}
