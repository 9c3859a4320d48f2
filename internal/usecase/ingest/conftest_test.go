package ingest

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/extract"
)

type mockExtractor struct {
	pages map[string][]extract.Page
	err   map[string]error
}

func (m *mockExtractor) ExtractPages(path string) ([]extract.Page, error) {
	name := path[strings.LastIndex(path, "/")+1:]
	if err := m.err[name]; err != nil {
		return nil, err
	}
	return m.pages[name], nil
}

// mockChunker emits one chunk per sentence-ish line of the page.
type mockChunker struct{}

func (m *mockChunker) Chunk(pageText string, pageNumber int, sourceFile string) []domain.Chunk {
	var chunks []domain.Chunk
	for _, line := range strings.Split(pageText, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		chunks = append(chunks, domain.ReconstructChunk(line, sourceFile, pageNumber, nil))
	}
	return chunks
}

type mockEmbedder struct {
	err   error
	calls int
	short bool // return one vector fewer than requested
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	n := len(texts)
	if m.short && n > 0 {
		n--
	}
	embeddings := make([][]float32, n)
	for i := range embeddings {
		embeddings[i] = []float32{1, 0}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: n}, nil
}

type mockInserter struct {
	err      error
	inserted []domain.Chunk
}

func (m *mockInserter) Insert(vectors [][]float32, chunks []domain.Chunk) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, chunks...)
	return nil
}

func newTestService(t *testing.T, ext *mockExtractor, emb *mockEmbedder, ins *mockInserter) *Service {
	t.Helper()
	return New(ext, &mockChunker{}, emb, ins, zap.NewNop())
}
