// Package chi exposes the document retrieval API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	ingestdom "github.com/kailas-cloud/docdex/internal/domain/ingest"
	"github.com/kailas-cloud/docdex/internal/index"
	logpkg "github.com/kailas-cloud/docdex/internal/logger"
	answeruc "github.com/kailas-cloud/docdex/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/docdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docdex/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/docdex/internal/usecase/retrieval"
)

// maxUploadBytes bounds the in-memory part of a multipart upload.
const maxUploadBytes = 64 << 20

// Error response codes.
const (
	codeBadRequest        = "bad_request"
	codeUnauthorized      = "unauthorized"
	codeValidationFailed  = "validation_failed"
	codeUnsupportedFormat = "unsupported_format"
	codeExtractionFailed  = "extraction_failed"
	codeModelUnavailable  = "model_unavailable"
	codeInternalError     = "internal_error"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the use case services to HTTP handlers.
type Server struct {
	ingest        *ingestuc.Service
	retrieval     *retrievaluc.Service
	answer        *answeruc.Service
	health        *healthuc.Service
	index         *index.Index
	defaultTopK   int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. answer may be nil when no generation
// model is configured; the ask endpoint then reports the feature as disabled.
func NewServer(
	ingest *ingestuc.Service,
	retrieval *retrievaluc.Service,
	answer *answeruc.Service,
	health *healthuc.Service,
	idx *index.Index,
	defaultTopK int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:      ingest,
		retrieval:   retrieval,
		answer:      answer,
		health:      health,
		index:       idx,
		defaultTopK: defaultTopK,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusBadRequest, codeUnsupportedFormat),
		sentinelHandler(domain.ErrExtractionFailed, http.StatusBadRequest, codeExtractionFailed),
		sentinelHandler(domain.ErrModelUnavailable, http.StatusBadGateway, codeModelUnavailable),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusInternalServerError, codeInternalError),
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/documents", s.UploadDocuments)
	r.Post("/search", s.Search)
	r.Post("/ask", s.Ask)
	r.Get("/stats", s.Stats)
	r.Delete("/index", s.ClearIndex)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// --- Documents ---

type uploadItemResponse struct {
	File   string `json:"file"`
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
	Error  string `json:"error,omitempty"`
}

type uploadResponse struct {
	Items       []uploadItemResponse `json:"items"`
	Succeeded   int                  `json:"succeeded"`
	Failed      int                  `json:"failed"`
	TotalChunks int                  `json:"total_chunks"`
}

// UploadDocuments handles POST /documents: a multipart upload with one or
// more parts named "files". Files are processed independently; the response
// reports a per-file outcome.
func (s *Server) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "At least one file part named \"files\" is required")
		return
	}

	dir, err := os.MkdirTemp("", "docdex-upload-*")
	if err != nil {
		s.handleDomainError(w, fmt.Errorf("create upload dir: %w", err))
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	paths := make([]string, 0, len(files))
	for _, fh := range files {
		path, err := saveUpload(dir, fh)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		paths = append(paths, path)
	}

	results := s.ingest.ProcessFiles(r.Context(), paths)

	resp := uploadResponse{Items: make([]uploadItemResponse, len(results))}
	for i, res := range results {
		item := uploadItemResponse{
			File:   res.File(),
			Status: string(res.Status()),
			Chunks: res.Chunks(),
		}
		if res.Status() == ingestdom.StatusOK {
			resp.Succeeded++
			resp.TotalChunks += res.Chunks()
		} else {
			resp.Failed++
			item.Error = safeDomainMessage(res.Err())
		}
		resp.Items[i] = item
	}

	logpkg.FromContext(r.Context()).Info("Upload processed",
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed),
		zap.Int("total_chunks", resp.TotalChunks))
	writeJSON(w, http.StatusOK, resp)
}

// saveUpload copies one multipart file into dir under its base name.
func saveUpload(dir string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	// Base strips any path components a client smuggles into the file name.
	path := filepath.Join(dir, filepath.Base(fh.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("save upload %s: %w", fh.Filename, err)
	}
	return path, nil
}

// --- Search ---

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResultItem struct {
	Content    string  `json:"content"`
	SourceFile string  `json:"source_file"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"similarity_score"`
	Preview    string  `json:"content_preview"`
}

type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	topK, err := s.resolveTopK(req.TopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	results, err := s.retrieval.Retrieve(r.Context(), req.Query, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(results))
	for i, res := range results {
		items[i] = searchResultItem{
			Content:    res.Content(),
			SourceFile: res.SourceFile(),
			PageNumber: res.PageNumber(),
			Score:      res.Score(),
			Preview:    res.Preview(),
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{Items: items, Total: len(items)})
}

// --- Ask ---

type askRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Ask handles POST /ask. A failure during generation degrades to a 200
// response carrying an apologetic answer with the cause, so conversational
// clients always have something to render.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	if s.answer == nil {
		writeError(w, http.StatusNotImplemented, codeBadRequest, "Answer generation is not configured")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	topK, err := s.resolveTopK(req.TopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	resp, err := s.answer.Answer(r.Context(), req.Query, topK)
	if err != nil {
		s.logger.Warn("Answer generation failed", zap.Error(err))
		writeJSON(w, http.StatusOK, answeruc.Response{
			Answer:  "An error occurred while generating the answer: " + safeDomainMessage(err),
			Sources: []retrievaluc.Source{},
			Query:   req.Query,
		})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Index ---

type statsResponse struct {
	TotalChunks int `json:"total_chunks"`
	// Dimension is omitted while the index is empty and unlocked.
	Dimension int `json:"embedding_dimension,omitempty"`
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	st := s.index.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		TotalChunks: st.Entries,
		Dimension:   st.Dimension,
	})
}

// ClearIndex handles DELETE /index.
func (s *Server) ClearIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Clear(); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Infra ---

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// resolveTopK applies the configured default when top_k is absent (zero).
func (s *Server) resolveTopK(topK int) (int, error) {
	if topK < 0 {
		return 0, fmt.Errorf("top_k must not be negative, got %d (omit or 0 for the default)", topK)
	}
	if topK == 0 {
		return s.defaultTopK, nil
	}
	return topK, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrUnsupportedFormat,
		domain.ErrExtractionFailed,
		domain.ErrModelUnavailable,
		domain.ErrDimensionMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
