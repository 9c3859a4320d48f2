package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
)

type mockRetriever struct {
	results []domain.SearchResult
	err     error
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, _ int) ([]domain.SearchResult, error) {
	return m.results, m.err
}

type mockGenerator struct {
	answer string
	err    error
	calls  int
	prompt string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.prompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func searchResult(content, file string, page int, score float64) domain.SearchResult {
	r := domain.NewSearchResult(domain.ReconstructChunk(content, file, page, nil), score)
	return r.WithPreview(content)
}

func TestAnswer(t *testing.T) {
	ret := &mockRetriever{results: []domain.SearchResult{
		searchResult("Go was released in 2009.", "go.pdf", 1, 0.95),
		searchResult("Go has goroutines.", "go.pdf", 4, 0.80),
	}}
	gen := &mockGenerator{answer: "Go was released in 2009 (Context 1)."}
	svc := New(ret, gen, zap.NewNop())

	resp, err := svc.Answer(context.Background(), "When was Go released?", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Answer != "Go was released in 2009 (Context 1)." {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(resp.Sources))
	}
	if resp.Sources[0].SourceFile != "go.pdf" || resp.Sources[0].PageNumber != 1 {
		t.Errorf("unexpected first source: %+v", resp.Sources[0])
	}
	if resp.Query != "When was Go released?" {
		t.Errorf("unexpected query echo: %q", resp.Query)
	}

	if !strings.Contains(resp.ContextUsed, "[Context 1]: Go was released in 2009.") {
		t.Errorf("context missing first block: %q", resp.ContextUsed)
	}
	if !strings.Contains(resp.ContextUsed, "[Context 2]: Go has goroutines.") {
		t.Errorf("context missing second block: %q", resp.ContextUsed)
	}

	if !strings.Contains(gen.prompt, resp.ContextUsed) {
		t.Error("prompt does not embed the assembled context")
	}
	if !strings.Contains(gen.prompt, "Question: When was Go released?") {
		t.Errorf("prompt missing question: %q", gen.prompt)
	}
}

func TestAnswer_NoResults(t *testing.T) {
	ret := &mockRetriever{}
	gen := &mockGenerator{answer: "should not be used"}
	svc := New(ret, gen, zap.NewNop())

	resp, err := svc.Answer(context.Background(), "anything?", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Answer != NoContextAnswer {
		t.Errorf("expected canned answer, got %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(resp.Sources))
	}
	if resp.ContextUsed != "" {
		t.Errorf("expected empty context, got %q", resp.ContextUsed)
	}
	if gen.calls != 0 {
		t.Errorf("expected no model calls without context, got %d", gen.calls)
	}
}

func TestAnswer_RetrieveError(t *testing.T) {
	ret := &mockRetriever{err: domain.ErrModelUnavailable}
	gen := &mockGenerator{}
	svc := New(ret, gen, zap.NewNop())

	_, err := svc.Answer(context.Background(), "query", 5)
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("expected no model calls on retrieve error, got %d", gen.calls)
	}
}

func TestAnswer_GenerateError(t *testing.T) {
	ret := &mockRetriever{results: []domain.SearchResult{
		searchResult("Some context.", "doc.pdf", 1, 0.9),
	}}
	gen := &mockGenerator{err: domain.ErrModelUnavailable}
	svc := New(ret, gen, zap.NewNop())

	_, err := svc.Answer(context.Background(), "query", 5)
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}
