// Package chunker splits cleaned page text into bounded, overlapping chunks.
//
// Splitting is sentence-greedy: sentences accumulate into a buffer until the
// next one would push it past the size limit, then the buffer is sealed and
// the next buffer is seeded with the trailing overlap characters of the
// sealed one. A single sentence longer than the limit is emitted whole,
// chunks are never cut mid-sentence.
package chunker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/docdex/internal/domain"
)

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	// Letters and digits in any script; \w would drop non-ASCII text.
	disallowed = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:()\[\]{}"-]`)
	punctRuns  = regexp.MustCompile(`([.,!?;:]){2,}`)
	// Sentence boundary: terminal punctuation followed by whitespace.
	// Heuristic, not a grammar: abbreviations split too, which is fine
	// for retrieval purposes.
	sentenceEnd = regexp.MustCompile(`[.!?]\s+`)
)

// Chunker splits page text into overlapping chunks of bounded size.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// New validates the chunking parameters and creates a Chunker.
// Overlap must be strictly smaller than size or the overlap seed would
// dominate every chunk.
func New(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", chunkOverlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Chunk cleans one page's text and splits it into chunks tagged with the
// page number and source file. Empty pages produce zero chunks.
func (c *Chunker) Chunk(pageText string, pageNumber int, sourceFile string) []domain.Chunk {
	text := Clean(pageText)
	if text == "" {
		return nil
	}

	var chunks []domain.Chunk
	seal := func(buf string) {
		content := strings.TrimSpace(buf)
		if content == "" {
			return
		}
		chunk, err := domain.NewChunk(content, sourceFile, pageNumber, map[string]string{
			"filename":     sourceFile,
			"page_number":  strconv.Itoa(pageNumber),
			"chunk_length": strconv.Itoa(len(content)),
		})
		if err != nil {
			return
		}
		chunks = append(chunks, chunk)
	}

	var current string
	for _, sentence := range splitSentences(text) {
		if len(current)+len(sentence) > c.chunkSize && current != "" {
			seal(current)
			current = c.overlapText(current) + " " + sentence
			continue
		}
		if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}
	seal(current)

	return chunks
}

// Clean normalizes whitespace, strips characters outside the allow-list and
// collapses repeated punctuation runs ("!!!" -> "!").
func Clean(text string) string {
	text = whitespaceRuns.ReplaceAllString(text, " ")
	text = disallowed.ReplaceAllString(text, "")
	text = punctRuns.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// overlapText returns the trailing chunkOverlap characters of the sealed
// buffer, or the whole buffer when shorter. Deliberately a plain character
// suffix, not sentence-aligned: retrieval recall was tuned against this
// behavior, so a duplicated partial sentence across chunks is expected.
func (c *Chunker) overlapText(text string) string {
	runes := []rune(text)
	if len(runes) <= c.chunkOverlap {
		return text
	}
	return string(runes[len(runes)-c.chunkOverlap:])
}

// splitSentences splits on terminal punctuation + whitespace, keeping the
// punctuation with the sentence on its left.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		sentences = append(sentences, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}
