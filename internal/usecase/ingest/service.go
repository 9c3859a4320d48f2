// Package ingest orchestrates the document ingestion pipeline: extraction,
// chunking, batch embedding, and index insertion.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	ingestdom "github.com/kailas-cloud/docdex/internal/domain/ingest"
	"github.com/kailas-cloud/docdex/internal/metrics"
)

// Service runs the ingestion pipeline for uploaded document files.
type Service struct {
	extractor Extractor
	chunker   Chunker
	embedder  Embedder
	index     Inserter
	logger    *zap.Logger
}

// New creates an ingestion service.
func New(extractor Extractor, chunker Chunker, embedder Embedder, index Inserter, logger *zap.Logger) *Service {
	return &Service{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		logger:    logger,
	}
}

// ProcessFile ingests a single file and returns the number of chunks indexed.
// A file that yields no text is a successful no-op with zero chunks.
func (s *Service) ProcessFile(ctx context.Context, path string) (int, error) {
	name := filepath.Base(path)

	pages, err := s.extractor.ExtractPages(path)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", name, err)
	}

	var chunks []domain.Chunk
	for _, page := range pages {
		chunks = append(chunks, s.chunker.Chunk(page.Text, page.Number, name)...)
	}
	if len(chunks) == 0 {
		s.logger.Info("File produced no chunks", zap.String("file", name))
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content()
	}

	res, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", name, err)
	}
	if len(res.Embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks of %s",
			len(res.Embeddings), len(chunks), name)
	}

	if err := s.index.Insert(res.Embeddings, chunks); err != nil {
		return 0, fmt.Errorf("index %s: %w", name, err)
	}

	metrics.IngestChunksTotal.Add(float64(len(chunks)))
	s.logger.Info("File ingested",
		zap.String("file", name),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(chunks)),
		zap.Int("tokens", res.TotalTokens))
	return len(chunks), nil
}

// ProcessFiles ingests each file independently and returns one result per
// file in input order. A single bad file never fails the batch, but when the
// model backend is down every remaining file would fail the same way, so the
// rest of the batch is marked failed without further model calls.
func (s *Service) ProcessFiles(ctx context.Context, paths []string) []ingestdom.Result {
	results := make([]ingestdom.Result, 0, len(paths))

	for i, path := range paths {
		name := filepath.Base(path)

		chunks, err := s.ProcessFile(ctx, path)
		if err != nil {
			metrics.IngestFilesTotal.WithLabelValues(string(ingestdom.StatusError)).Inc()
			s.logger.Warn("File ingestion failed", zap.String("file", name), zap.Error(err))
			results = append(results, ingestdom.NewError(name, err))

			if errors.Is(err, domain.ErrModelUnavailable) {
				for _, rest := range paths[i+1:] {
					metrics.IngestFilesTotal.WithLabelValues(string(ingestdom.StatusError)).Inc()
					results = append(results, ingestdom.NewError(filepath.Base(rest), err))
				}
				return results
			}
			continue
		}

		metrics.IngestFilesTotal.WithLabelValues(string(ingestdom.StatusOK)).Inc()
		results = append(results, ingestdom.NewOK(name, chunks))
	}

	return results
}
