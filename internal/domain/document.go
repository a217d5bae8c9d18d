package domain

import "time"

// DocumentStatus tracks a document through the ingestion pipeline.
type DocumentStatus string

const (
	DocumentStatusPending DocumentStatus = "pending"
	DocumentStatusIndexed DocumentStatus = "indexed"
	DocumentStatusFailed  DocumentStatus = "failed"
)

// Document represents an uploaded study document owned by a user.
type Document struct {
	ID         string
	UserID     string
	FileName   string
	Title      string
	Status     DocumentStatus
	ChunkCount int
	Content    string // Raw text; the ingest worker chunks and embeds it
	StorageKey string // Set when the raw file copy lives in object storage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DocumentChunk is a stored, embedded segment of a document.
type DocumentChunk struct {
	ID         string
	DocumentID string
	UserID     string
	FileName   string
	Title      string
	ChunkIndex int
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

// IngestJobStatus represents the status of an ingest job.
type IngestJobStatus string

const (
	IngestJobStatusPending    IngestJobStatus = "pending"
	IngestJobStatusProcessing IngestJobStatus = "processing"
	IngestJobStatusCompleted  IngestJobStatus = "completed"
	IngestJobStatusFailed     IngestJobStatus = "failed"
)

// IngestJob queues a document for chunking and embedding by the background
// worker.
type IngestJob struct {
	ID         string
	DocumentID string
	Status     IngestJobStatus
	Retries    int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
