package domain

// SearchResult is a single retrieval hit: one indexed chunk plus its
// similarity score. Produced transiently per query, never persisted.
type SearchResult struct {
	chunk   Chunk
	score   float64
	preview string
}

// NewSearchResult creates a search result for the given chunk and score.
func NewSearchResult(chunk Chunk, score float64) SearchResult {
	return SearchResult{chunk: chunk, score: score}
}

// Chunk returns the matched chunk.
func (r *SearchResult) Chunk() Chunk { return r.chunk }

// Content returns the matched chunk text.
func (r *SearchResult) Content() string { return r.chunk.Content() }

// SourceFile returns the originating document name.
func (r *SearchResult) SourceFile() string { return r.chunk.SourceFile() }

// PageNumber returns the 1-based page of the matched chunk.
func (r *SearchResult) PageNumber() int { return r.chunk.PageNumber() }

// Score returns the similarity score in [-1, 1], higher is better.
func (r *SearchResult) Score() float64 { return r.score }

// Preview returns the bounded content preview, if attached.
func (r *SearchResult) Preview() string { return r.preview }

// WithPreview returns a copy with the display preview attached.
func (r SearchResult) WithPreview(preview string) SearchResult {
	return SearchResult{chunk: r.chunk, score: r.score, preview: preview}
}
