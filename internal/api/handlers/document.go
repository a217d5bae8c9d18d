package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studykit/engine/internal/api"
	"github.com/studykit/engine/internal/api/middleware"
	"github.com/studykit/engine/internal/domain"
	"github.com/studykit/engine/internal/pagination"
	"github.com/studykit/engine/internal/service"
)

// DocumentManager covers upload, lookup, listing, and deletion.
type DocumentManager interface {
	Upload(ctx context.Context, input service.UploadInput) (*domain.Document, error)
	Get(ctx context.Context, userID, id string) (*domain.Document, error)
	List(ctx context.Context, input service.ListDocumentsInput) (*pagination.PageResult[*domain.Document], error)
	Delete(ctx context.Context, userID, id string) error
}

type DocumentHandler struct {
	svc DocumentManager
}

func NewDocumentHandler(svc DocumentManager) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type UploadDocumentRequest struct {
	FileName string `json:"file_name"`
	Title    string `json:"title,omitempty"`
	Content  string `json:"content"`
}

type DocumentResponse struct {
	ID         string `json:"id"`
	FileName   string `json:"file_name"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func toDocumentResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:         d.ID,
		FileName:   d.FileName,
		Title:      d.Title,
		Status:     string(d.Status),
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Upload handles POST /documents.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req UploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	doc, err := h.svc.Upload(r.Context(), service.UploadInput{
		UserID:   userID,
		FileName: req.FileName,
		Title:    req.Title,
		Content:  req.Content,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, toDocumentResponse(doc))
}

// Get handles GET /documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	doc, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, toDocumentResponse(doc))
}

// List handles GET /documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	page, err := h.svc.List(r.Context(), service.ListDocumentsInput{
		UserID: userID,
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, 0, len(page.Items))
	for _, d := range page.Items {
		items = append(items, toDocumentResponse(d))
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   items,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

// Delete handles DELETE /documents/{id}.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	if err := h.svc.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
