// Package embedding turns text into fixed-dimension vectors, distinguishing
// document-side encoding from query-side encoding.
package embedding

import (
	"context"
	"errors"
)

// Mode selects how the provider encodes the text. Retrieval quality depends
// on documents and queries being embedded with matching task types.
type Mode string

const (
	ModeDocument Mode = "document"
	ModeQuery    Mode = "query"
)

var (
	// ErrEmptyInput is returned when no texts are given
	ErrEmptyInput = errors.New("no texts to embed")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// Client generates embeddings for a batch of texts.
type Client interface {
	Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error)
	Dimensions() int
}

// EmbedQuery is a convenience wrapper for single-query embedding.
func EmbedQuery(ctx context.Context, c Client, query string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{query}, ModeQuery)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, ErrEmptyInput
	}
	return vectors[0], nil
}
