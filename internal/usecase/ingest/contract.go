package ingest

import (
	"context"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/extract"
)

// Extractor turns a document file into per-page plain text.
type Extractor interface {
	ExtractPages(path string) ([]extract.Page, error)
}

// Chunker splits page text into indexable chunks.
type Chunker interface {
	Chunk(pageText string, pageNumber int, sourceFile string) []domain.Chunk
}

// Embedder vectorizes chunk texts in batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Inserter appends vectors and chunks to the similarity index.
type Inserter interface {
	Insert(vectors [][]float32, chunks []domain.Chunk) error
}
