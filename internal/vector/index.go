// Package vector provides nearest-neighbour search over document embeddings.
package vector

import "context"

// VectorIndex defines vector storage and similarity search.
type VectorIndex interface {
	// Add inserts vectors; an existing id is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Contains(id string) bool
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// VectorResult is a single vector search hit keyed by document id.
type VectorResult struct {
	ID    string
	Score float64 // cosine similarity for normalized vectors
}

// Distance converts the similarity score to a distance where 0 is identical.
func (r *VectorResult) Distance() float64 {
	return 1 - r.Score
}
