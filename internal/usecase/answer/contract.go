package answer

import (
	"context"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// Retriever finds the most relevant indexed chunks for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

// Generator produces a completion for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
