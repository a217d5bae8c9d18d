// Package handlers implements the HTTP handlers for the query and document
// endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/studykit/engine/internal/api"
	"github.com/studykit/engine/internal/api/middleware"
	"github.com/studykit/engine/internal/domain"
)

// QueryProcessor is the orchestration entry point the handler consumes.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, q domain.Query) (*domain.QueryResult, error)
}

type QueryHandler struct {
	svc QueryProcessor
}

func NewQueryHandler(svc QueryProcessor) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Question       string   `json:"question"`
	DocumentIDs    []string `json:"document_ids,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
	ScoreThreshold float32  `json:"score_threshold,omitempty"`
	Temperature    float32  `json:"temperature,omitempty"`
	MaxTokens      int      `json:"max_tokens,omitempty"`
}

type ContextChunkResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	FileName   string  `json:"file_name,omitempty"`
	Title      string  `json:"title,omitempty"`
}

type QueryResponse struct {
	Answer           string                 `json:"answer"`
	Contexts         []ContextChunkResponse `json:"contexts"`
	Intent           string                 `json:"intent"`
	ProviderUsed     string                 `json:"provider_used"`
	EstimatedTokens  int                    `json:"estimated_tokens"`
	ProcessingTimeMS int64                  `json:"processing_time_ms"`
}

// Process handles POST /query.
func (h *QueryHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	result, err := h.svc.ProcessQuery(r.Context(), domain.Query{
		Question:       req.Question,
		UserID:         userID,
		DocumentIDs:    req.DocumentIDs,
		TopK:           req.TopK,
		ScoreThreshold: req.ScoreThreshold,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	contexts := make([]ContextChunkResponse, 0, len(result.Contexts))
	for _, c := range result.Contexts {
		contexts = append(contexts, ContextChunkResponse{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Text:       c.Text,
			ChunkIndex: c.ChunkIndex,
			Score:      c.Score,
			FileName:   c.FileName,
			Title:      c.Title,
		})
	}

	api.Success(w, http.StatusOK, QueryResponse{
		Answer:           result.Answer,
		Contexts:         contexts,
		Intent:           string(result.Intent),
		ProviderUsed:     result.ProviderUsed,
		EstimatedTokens:  result.EstimatedTokens,
		ProcessingTimeMS: result.ProcessingTime.Milliseconds(),
	})
}
