package retrieval

import (
	"context"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher scans the similarity index.
type Searcher interface {
	Search(query []float32, k int) ([]domain.SearchResult, error)
}
