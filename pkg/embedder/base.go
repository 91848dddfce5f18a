// Package embedder provides interfaces for text embedding providers.
//
// An embedder is an optional collaborator: when present, the relevance
// scorer's semantic-similarity factor uses embedding cosine similarity;
// when absent it falls back to lexical Jaccard similarity.
package embedder

import (
	"context"
	"math"
)

// Provider defines the interface for embedding providers.
type Provider interface {
	// Embed converts a text string into a vector embedding.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple text strings into vector embeddings,
	// batching requests where the provider supports it.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the dimension of vectors produced by this provider.
	Dimensions() int

	// Close closes the provider and releases resources.
	Close() error
}

// CosineSimilarity calculates the cosine similarity between two vectors.
//
// Returns a value in [-1, 1], or 0 if the vectors differ in dimension or
// either has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
