package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/cache"
	"github.com/kailas-cloud/docdex/internal/chunker"
	"github.com/kailas-cloud/docdex/internal/config"
	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/extract"
	"github.com/kailas-cloud/docdex/internal/index"
	logpkg "github.com/kailas-cloud/docdex/internal/logger"
	"github.com/kailas-cloud/docdex/internal/metrics"
	"github.com/kailas-cloud/docdex/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/docdex/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/docdex/internal/transport/openai"
	answeruc "github.com/kailas-cloud/docdex/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/docdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docdex/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/docdex/internal/usecase/retrieval"
	"github.com/kailas-cloud/docdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_dir", cfg.Storage.Dir),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIndexMetrics()

	// Optional embedding cache
	var store *cache.Store
	if len(cfg.Cache.Addrs) > 0 {
		store, err = cache.NewStore(cache.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()
		logger.Info("Embedding cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Base embedding provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	// Document chain: base -> cache -> instruction. Queries skip the cache and
	// are always re-embedded.
	docEmbedder := buildDocumentEmbedder(base, store, cfg, logger)
	queryEmbedder := buildQueryEmbedder(base, cfg)

	idx, err := index.New(cfg.Storage.Dir, logger)
	if err != nil {
		logger.Fatal("Failed to open index", zap.Error(err))
	}

	chk, err := chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		logger.Fatal("Invalid chunking configuration", zap.Error(err))
	}

	// Use case services
	ingestSvc := ingestuc.New(extract.New(), chk, docEmbedder, idx, logger)
	retrievalSvc := retrievaluc.New(queryEmbedder, idx, logger)

	var answerSvc *answeruc.Service
	if cfg.Generation.Model != "" {
		gen := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
			APIKey:  cfg.Generation.APIKey,
			BaseURL: cfg.Generation.BaseURL,
			Model:   cfg.Generation.Model,
			Logger:  logger,
		})
		answerSvc = answeruc.New(retrievalSvc, gen, logger)
	} else {
		logger.Warn("No generation model configured, /ask is disabled")
	}

	// Pass nil interface (not typed nil pointer!) if the cache is not configured.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(base, cachePinger)

	server := chiTransport.NewServer(
		ingestSvc, retrievalSvc, answerSvc, healthSvc, idx, cfg.Retrieval.TopK, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// ingestEmbedder is the contract the ingestion pipeline needs.
type ingestEmbedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// buildDocumentEmbedder assembles the document chain: OpenAI -> Cached -> Instruction.
func buildDocumentEmbedder(
	base *openaiTransport.Embedder,
	store *cache.Store,
	cfg config.Config,
	logger *zap.Logger,
) ingestuc.Embedder {
	var embedder ingestEmbedder = base
	if store != nil {
		embedder = embcache.New(base, store, cfg.Embedding.Model, metrics.EmbeddingCacheTotal, logger)
	}

	// Instruction prefix goes outermost so the cache key includes it.
	if cfg.Embedding.DocumentInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.Embedding.DocumentInstruction)
	}
	return embedder
}

// buildQueryEmbedder assembles the query chain: OpenAI -> Instruction (no cache).
func buildQueryEmbedder(base *openaiTransport.Embedder, cfg config.Config) retrievaluc.Embedder {
	if cfg.Embedding.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(base, cfg.Embedding.QueryInstruction)
	}
	return base
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
