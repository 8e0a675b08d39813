// Package vector provides embedded vector storage for the document
// collections the retrieval coordinator searches.
package vector

import "context"

// Result is a single similarity search hit.
type Result struct {
	// ID of the document.
	ID string

	// Score is the similarity score (higher is more similar).
	Score float32

	// Content is the document text.
	Content string

	// Metadata holds optional document metadata.
	Metadata map[string]string
}

// Store searches and populates named document collections.
type Store interface {
	// Upsert adds or updates a document with its pre-computed embedding.
	Upsert(ctx context.Context, collection, id string, vector []float32, content string, metadata map[string]string) error

	// Search finds the topK most similar documents in a collection.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)

	// Count reports the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)
}
