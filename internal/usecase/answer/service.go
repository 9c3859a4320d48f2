// Package answer grounds model answers in retrieved document context.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/usecase/retrieval"
)

// NoContextAnswer is returned when retrieval finds nothing to ground an
// answer in. No model call is made in that case.
const NoContextAnswer = "I couldn't find any relevant information in the uploaded documents to answer your question."

const promptTemplate = `You are an AI assistant that answers questions based on provided document context.
Instructions:
1. Answer the question using ONLY the information provided in the context below
2. If the context doesn't contain enough information to answer the question, say so clearly
3. Be concise but comprehensive in your answer
4. If you reference specific information, mention which context section it comes from
5. Do not make up information that's not in the provided context
Context from documents:
%s
Question: %s
Answer:`

// Response is a grounded answer with its supporting sources.
type Response struct {
	Answer      string             `json:"answer"`
	Sources     []retrieval.Source `json:"sources"`
	ContextUsed string             `json:"context_used"`
	Query       string             `json:"query"`
}

// Service assembles retrieved context into a prompt and asks the model.
type Service struct {
	retriever Retriever
	generator Generator
	logger    *zap.Logger
}

// New creates an answer service.
func New(retriever Retriever, generator Generator, logger *zap.Logger) *Service {
	return &Service{retriever: retriever, generator: generator, logger: logger}
}

// Answer retrieves context for the query and generates a grounded answer.
// With no retrieved context the canned NoContextAnswer is returned and the
// model is never called.
func (s *Service) Answer(ctx context.Context, query string, topK int) (Response, error) {
	results, err := s.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return Response{}, fmt.Errorf("retrieve context: %w", err)
	}

	if len(results) == 0 {
		return Response{
			Answer:  NoContextAnswer,
			Sources: []retrieval.Source{},
			Query:   query,
		}, nil
	}

	contextText, sources := retrieval.Context(results)
	prompt := fmt.Sprintf(promptTemplate, contextText, strings.TrimSpace(query))

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return Response{}, fmt.Errorf("generate answer: %w", err)
	}

	s.logger.Info("Answer generated",
		zap.Int("context_chunks", len(results)),
		zap.Int("answer_chars", len(text)))

	return Response{
		Answer:      text,
		Sources:     sources,
		ContextUsed: contextText,
		Query:       query,
	}, nil
}
