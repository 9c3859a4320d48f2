// Package index implements a flat, exact nearest-neighbor similarity index:
// a brute-force inner-product scan over L2-normalized float32 vectors with a
// parallel metadata sequence, persisted write-through to two artifacts on
// local disk. Appropriate up to roughly 200k entries; past that an
// approximate-nearest-neighbor structure should replace the linear scan.
package index

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/metrics"
)

// Artifact file names under the storage directory.
const (
	vectorsFile  = "vectors.bin"
	metadataFile = "metadata.json"
)

// Stats describes the current index contents.
type Stats struct {
	Entries   int
	Dimension int // 0 until the first insertion locks it
}

// Index is a file-backed flat vector index. Entry i's metadata record and
// vector i always correspond by position; that alignment is the central
// invariant of this package. Entries are append-only: individual updates
// and deletes do not exist, only Clear.
type Index struct {
	mu      sync.RWMutex
	dir     string
	logger  *zap.Logger
	vectors [][]float32
	entries []entryRecord
	dim     int
}

// entryRecord is the persisted metadata half of an index entry.
type entryRecord struct {
	Content    string            `json:"content"`
	SourceFile string            `json:"source_file"`
	PageNumber int               `json:"page_number"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// New creates an index rooted at dir and restores any persisted state.
// Corrupt or partial artifacts are never fatal: the index starts empty and
// the condition is logged.
func New(dir string, logger *zap.Logger) (*Index, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	idx := &Index{dir: dir, logger: logger}
	idx.load()
	metrics.IndexEntries.Set(float64(len(idx.entries)))
	return idx, nil
}

// Insert appends vectors and their chunks in order and persists the updated
// index before returning (write-through). The first call locks the vector
// dimension; later calls with a different dimension fail with
// domain.ErrDimensionMismatch. Vectors are L2-normalized copies; caller
// slices are never mutated and the index owns its own chunk copies.
func (x *Index) Insert(vectors [][]float32, chunks []domain.Chunk) error {
	if len(vectors) != len(chunks) {
		return fmt.Errorf("vectors and chunks must align: %d vectors, %d chunks", len(vectors), len(chunks))
	}
	if len(vectors) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	dim := x.dim
	if dim == 0 {
		dim = len(vectors[0])
		if dim == 0 {
			return fmt.Errorf("cannot insert zero-length vectors")
		}
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, index has %d: %w",
				i, len(v), dim, domain.ErrDimensionMismatch)
		}
	}

	prevVectors, prevEntries := len(x.vectors), len(x.entries)
	for i, v := range vectors {
		x.vectors = append(x.vectors, normalized(v))
		x.entries = append(x.entries, entryRecord{
			Content:    chunks[i].Content(),
			SourceFile: chunks[i].SourceFile(),
			PageNumber: chunks[i].PageNumber(),
			Metadata:   chunks[i].Metadata(),
		})
	}
	x.dim = dim

	if err := x.persist(); err != nil {
		// Write-through failed: roll back so memory never runs ahead of disk.
		x.vectors = x.vectors[:prevVectors]
		x.entries = x.entries[:prevEntries]
		if prevVectors == 0 {
			x.dim = 0
		}
		return fmt.Errorf("persist index: %w", err)
	}

	metrics.IndexEntries.Set(float64(len(x.entries)))
	return nil
}

// Search returns up to min(k, entries) results ordered by descending
// similarity, ties broken by lowest insertion index. An empty or
// uninitialized index yields an empty result set, not an error.
func (x *Index) Search(query []float32, k int) ([]domain.SearchResult, error) {
	start := time.Now()

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.entries) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("query has dimension %d, index has %d: %w",
			len(query), x.dim, domain.ErrDimensionMismatch)
	}

	q := normalized(query)
	results := make([]domain.SearchResult, 0, len(x.entries))
	for i, v := range x.vectors {
		e := &x.entries[i]
		chunk := domain.ReconstructChunk(e.Content, e.SourceFile, e.PageNumber, e.Metadata)
		results = append(results, domain.NewSearchResult(chunk, dot(q, v)))
	}

	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score() > results[j].Score()
	})

	if k < len(results) {
		results = results[:k]
	}

	metrics.IndexSearchDuration.Observe(time.Since(start).Seconds())
	return results, nil
}

// Clear discards all vectors and metadata, removes the durable artifacts and
// unlocks the dimension so the next Insert re-derives it.
func (x *Index) Clear() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.vectors = nil
	x.entries = nil
	x.dim = 0

	for _, name := range []string{vectorsFile, metadataFile} {
		if err := os.Remove(filepath.Join(x.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}

	metrics.IndexEntries.Set(0)
	return nil
}

// Stats returns the current entry count and locked dimension (0 when empty).
func (x *Index) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return Stats{Entries: len(x.entries), Dimension: x.dim}
}

// dot computes the inner product of two equal-length vectors in float64 for
// precision; over unit vectors this is the cosine similarity in [-1, 1].
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// normalized returns an L2-normalized copy of v. A zero vector is returned
// as an unmodified copy since it has no direction to normalize.
func normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		copy(out, v)
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) * inv)
	}
	return out
}
