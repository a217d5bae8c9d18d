package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studykit/engine/internal/domain"
	"github.com/studykit/engine/internal/pagination"
	"github.com/studykit/engine/internal/telemetry"
)

// DocumentStore defines the repository interface for document persistence
type DocumentStore interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, userID, id string) (*domain.Document, error)
	GetForIngest(ctx context.Context, id string) (*domain.Document, error)
	ListByUserWithCursor(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int) error
	Delete(ctx context.Context, userID, id string) error
}

// IngestJobStore defines the repository interface for ingest job persistence
type IngestJobStore interface {
	Create(ctx context.Context, job *domain.IngestJob) error
}

// StorageClient archives raw document uploads in object storage.
type StorageClient interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// DocumentService handles document upload, listing, and deletion. Storage is
// optional; without it only the database copy exists.
type DocumentService struct {
	txRunner TxRunner
	docs     DocumentStore
	storage  StorageClient
	uuidGen  UUIDGenerator
}

func NewDocumentService(txRunner TxRunner, docs DocumentStore, storage StorageClient) *DocumentService {
	return &DocumentService{
		txRunner: txRunner,
		docs:     docs,
		storage:  storage,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// NewDocumentServiceWithUUIDGen creates a DocumentService with a custom UUID
// generator (for testing).
func NewDocumentServiceWithUUIDGen(txRunner TxRunner, docs DocumentStore, storage StorageClient, uuidGen UUIDGenerator) *DocumentService {
	return &DocumentService{
		txRunner: txRunner,
		docs:     docs,
		storage:  storage,
		uuidGen:  uuidGen,
	}
}

// UploadInput represents the input for uploading a document.
type UploadInput struct {
	UserID   string
	FileName string
	Title    string
	Content  string
}

// ListDocumentsInput represents the input for listing a user's documents.
type ListDocumentsInput struct {
	UserID string
	Cursor string
	Limit  int
}

// Upload stores a document and queues it for chunking and embedding. The
// document row and its ingest job are created in one transaction so the
// worker never sees one without the other.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Upload", telemetry.SpanAttributes{
		UserID:    input.UserID,
		Operation: "upload",
	})
	defer span.End()

	if input.UserID == "" {
		return nil, domain.ErrMissingUserScope
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, domain.ErrEmptyDocumentContent
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        s.uuidGen.NewString(),
		UserID:    input.UserID,
		FileName:  input.FileName,
		Title:     input.Title,
		Status:    domain.DocumentStatusPending,
		Content:   input.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if doc.Title == "" {
		doc.Title = doc.FileName
	}

	if s.storage != nil {
		key := fmt.Sprintf("documents/%s/%s", input.UserID, doc.ID)
		if err := s.storage.Upload(ctx, key, []byte(input.Content), "text/plain"); err != nil {
			// The database copy is authoritative; a missing archive copy is
			// logged upstream, not fatal.
			telemetry.CaptureError(ctx, err)
		} else {
			doc.StorageKey = key
		}
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		job := &domain.IngestJob{
			ID:         s.uuidGen.NewString(),
			DocumentID: doc.ID,
			Status:     domain.IngestJobStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return repos.IngestJobs().Create(ctx, job)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return doc, nil
}

// Get returns a user's document.
func (s *DocumentService) Get(ctx context.Context, userID, id string) (*domain.Document, error) {
	return s.docs.GetByID(ctx, userID, id)
}

// List returns one page of a user's documents.
func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*pagination.PageResult[*domain.Document], error) {
	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.docs.ListByUserWithCursor(ctx, input.UserID, cursor, input.Limit)
}

// Delete removes a document, its chunks, and its archive copy.
func (s *DocumentService) Delete(ctx context.Context, userID, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Delete", telemetry.SpanAttributes{
		UserID:     userID,
		DocumentID: id,
		Operation:  "delete",
	})
	defer span.End()

	doc, err := s.docs.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.docs.Delete(ctx, userID, id); err != nil {
		return err
	}

	if s.storage != nil && doc.StorageKey != "" {
		if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
			telemetry.CaptureError(ctx, err)
		}
	}

	return nil
}
