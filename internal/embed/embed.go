// Package embed turns text into fixed-length vectors for semantic search.
// Implementations must be deterministic for a given input and model.
package embed

import (
	"context"
	"errors"
)

// Sentinel errors for embedding operations.
var (
	// ErrTimeout indicates the embedding call exceeded its deadline.
	ErrTimeout = errors.New("embed: timed out")

	// ErrBadDimensions indicates a provider returned a vector whose length
	// differs from the one it advertises.
	ErrBadDimensions = errors.New("embed: unexpected vector length")
)

// Embedder produces vector representations of text.
type Embedder interface {
	// Embed returns the vector for text. Every vector returned by one
	// Embedder has length Dimensions().
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length.
	Dimensions() int

	// Model identifies the embedding model, reported in stats.
	Model() string
}
