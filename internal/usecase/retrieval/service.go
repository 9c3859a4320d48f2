// Package retrieval embeds a query and ranks indexed chunks against it.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// PreviewLength is the number of content characters included in result previews.
const PreviewLength = 200

// Source describes where a retrieved chunk came from.
type Source struct {
	SourceFile string  `json:"source_file"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"similarity_score"`
	Preview    string  `json:"content_preview"`
}

// Service retrieves the most similar indexed chunks for a query.
type Service struct {
	embedder Embedder
	index    Searcher
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(embedder Embedder, index Searcher, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, index: index, logger: logger}
}

// Retrieve embeds the query and returns up to topK results ordered by
// descending similarity, each carrying a content preview. A blank query or
// an empty index yields an empty result set, never an error.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	embRes, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	results, err := s.index.Search(embRes.Embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	for i, r := range results {
		results[i] = r.WithPreview(preview(r.Content()))
	}

	s.logger.Debug("Query retrieved",
		zap.Int("results", len(results)),
		zap.Int("top_k", topK),
		zap.Int("tokens", embRes.TotalTokens))
	return results, nil
}

// Context renders results as numbered context blocks for prompt assembly and
// returns the matching source descriptors.
func Context(results []domain.SearchResult) (string, []Source) {
	if len(results) == 0 {
		return "", nil
	}

	blocks := make([]string, len(results))
	sources := make([]Source, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("[Context %d]: %s", i+1, r.Content())
		sources[i] = Source{
			SourceFile: r.SourceFile(),
			PageNumber: r.PageNumber(),
			Score:      r.Score(),
			Preview:    r.Preview(),
		}
	}
	return strings.Join(blocks, "\n\n"), sources
}

// preview truncates content for display. Counts runes, not bytes, so
// multi-byte characters are never split mid-sequence.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength]) + "..."
}
