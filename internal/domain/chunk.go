package domain

import (
	"fmt"
	"strings"
)

// Chunk is a bounded unit of document text with page and source provenance,
// the atomic unit of retrieval (immutable value object).
type Chunk struct {
	content    string
	sourceFile string
	pageNumber int
	metadata   map[string]string
}

// NewChunk validates and creates a Chunk.
// Content must be non-empty after trimming; pageNumber starts at 1.
func NewChunk(content, sourceFile string, pageNumber int, metadata map[string]string) (Chunk, error) {
	if strings.TrimSpace(content) == "" {
		return Chunk{}, fmt.Errorf("chunk content is required")
	}
	if sourceFile == "" {
		return Chunk{}, fmt.Errorf("chunk source file is required")
	}
	if pageNumber < 1 {
		return Chunk{}, fmt.Errorf("chunk page number must be >= 1, got %d", pageNumber)
	}

	return Chunk{
		content:    content,
		sourceFile: sourceFile,
		pageNumber: pageNumber,
		metadata:   cloneStringMap(metadata),
	}, nil
}

// ReconstructChunk creates a Chunk without validation (storage hydration).
func ReconstructChunk(content, sourceFile string, pageNumber int, metadata map[string]string) Chunk {
	return Chunk{content: content, sourceFile: sourceFile, pageNumber: pageNumber, metadata: metadata}
}

// Content returns the chunk text.
func (c *Chunk) Content() string { return c.content }

// SourceFile returns the originating document name.
func (c *Chunk) SourceFile() string { return c.sourceFile }

// PageNumber returns the 1-based page the chunk came from.
func (c *Chunk) PageNumber() int { return c.pageNumber }

// Metadata returns the free-form chunk metadata.
func (c *Chunk) Metadata() map[string]string { return c.metadata }

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
