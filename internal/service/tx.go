package service

import "context"

// TxRepositories exposes the repositories bound to one transaction.
type TxRepositories interface {
	Documents() DocumentStore
	Chunks() ChunkStore
	IngestJobs() IngestJobStore
}

// TxRunner runs a function within a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
