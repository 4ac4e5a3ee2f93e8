// Package embed produces dense sentence embeddings for queries and sections.
//
// Three providers are available: a Text Embeddings Inference server, any
// OpenAI-compatible embeddings endpoint, and an in-process ONNX model via
// fastembed (cgo builds only). All return vectors in input order.
package embed

import (
	"context"
	"errors"
	"math"
)

var (
	// ErrEmptyInput indicates empty or nil input texts
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Embedder turns texts into vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider is an Embedder that owns resources.
type Provider interface {
	Embedder
	// Name identifies the backend and model, e.g. "tei:BAAI/bge-small-en-v1.5".
	Name() string
	Close() error
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// MaxCosine returns the best similarity of v against any of refs, or 0 when
// refs is empty.
func MaxCosine(v []float32, refs [][]float32) float64 {
	best := math.Inf(-1)
	for _, r := range refs {
		if s := Cosine(v, r); s > best {
			best = s
		}
	}
	if math.IsInf(best, -1) {
		return 0
	}
	return best
}
