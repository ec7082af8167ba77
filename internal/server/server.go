// Package server exposes the ingestion and query pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teilomillet/ragd"
	"github.com/teilomillet/ragd/internal/config"
	"github.com/teilomillet/ragd/internal/jobs"
	"github.com/teilomillet/ragd/rag"
)

// Server wires the pipeline components behind an echo HTTP server.
type Server struct {
	echo      *echo.Echo
	cfg       config.Config
	store     ragd.VectorStore
	provider  ragd.Provider
	chunker   ragd.Chunker
	ingestor  *ragd.Ingestor
	retriever *ragd.Retriever
	answerer  *ragd.Answerer
	parser    *ragd.ParserManager
	jobs      *jobs.Tracker
	registry  *prometheus.Registry
	metrics   *metrics
}

// Option customizes Server assembly.
type Option func(*Server)

// WithChunker overrides the default model-tokenizer chunker.
func WithChunker(c ragd.Chunker) Option {
	return func(s *Server) { s.chunker = c }
}

// New assembles a Server over an already-connected store and provider.
func New(cfg config.Config, store ragd.VectorStore, provider ragd.Provider, opts ...Option) (*Server, error) {
	s := &Server{cfg: cfg, store: store, provider: provider}
	for _, opt := range opts {
		opt(s)
	}

	embedder := ragd.NewEmbeddingService(provider,
		ragd.WithBatchSize(cfg.EmbedBatchSize),
		ragd.WithRetryPolicy(retryPolicy(cfg)),
	)

	if s.chunker == nil {
		counter, err := ragd.NewModelTokenCounter(cfg.EmbedModel)
		if err != nil {
			return nil, err
		}
		chunker, err := ragd.NewChunker(
			ragd.ChunkSize(cfg.ChunkTokens),
			ragd.ChunkOverlap(cfg.ChunkOverlap),
			ragd.WithTokenCounter(counter),
		)
		if err != nil {
			return nil, err
		}
		s.chunker = chunker
	}

	ingestor, err := ragd.NewIngestor(store, embedder,
		ragd.IngestorCollection(cfg.Collection),
		ragd.IngestorModel(cfg.EmbedModel),
		ragd.IngestorDimension(cfg.EmbedDim),
		ragd.IngestorChunker(s.chunker),
	)
	if err != nil {
		return nil, err
	}

	retriever := ragd.NewRetriever(store, embedder,
		ragd.RetrieverCollection(cfg.Collection),
		ragd.RetrieverModel(cfg.EmbedModel),
		ragd.TopK(cfg.TopK),
		ragd.Alpha(cfg.HybridAlpha),
	)

	answerer := ragd.NewAnswerer(retriever, provider,
		ragd.AnswererModel(cfg.ChatModel),
		ragd.Temperature(cfg.Temperature),
		ragd.MaxContextChunks(cfg.MaxContextChunks),
		ragd.AnswererRetryPolicy(retryPolicy(cfg)),
	)

	s.echo = echo.New()
	s.ingestor = ingestor
	s.retriever = retriever
	s.answerer = answerer
	s.parser = ragd.NewParserManager()
	s.jobs = jobs.NewTracker()
	s.registry = prometheus.NewRegistry()
	s.metrics = newMetrics(s.registry)
	s.routes()
	return s, nil
}

func retryPolicy(cfg config.Config) rag.RetryPolicy {
	p := rag.DefaultRetryPolicy()
	if cfg.RetryAttempts > 0 {
		p.Attempts = cfg.RetryAttempts
	}
	if cfg.RetryBaseDelay > 0 {
		p.BaseDelay = cfg.RetryBaseDelay
	}
	return p
}

func (s *Server) routes() {
	e := s.echo
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
	}))
	e.Use(s.metrics.middleware)
	e.HTTPErrorHandler = errorHandler

	e.POST("/ingest/text", s.handleIngestText)
	e.POST("/ingest/file", s.handleIngestFile)
	e.GET("/ingest/status/:job_id", s.handleIngestStatus)
	e.POST("/query", s.handleQuery)
	e.GET("/collections", s.handleListCollections)
	e.GET("/collections/:name/stats", s.handleCollectionStats)
	e.DELETE("/collections/:name", s.handleDeleteCollection)
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	ragd.Info("starting HTTP server", "addr", s.cfg.ListenAddr)
	err := s.echo.Start(s.cfg.ListenAddr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// errorHandler maps classified pipeline errors onto stable HTTP statuses
// and a {error, code} JSON body.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := errorResponse{Error: "internal server error", Code: "processing_error"}

	var pipelineErr *rag.Error
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &pipelineErr):
		status = statusForKind(pipelineErr.Kind)
		body.Error = pipelineErr.Error()
		body.Code = pipelineErr.Code()
	case errors.As(err, &httpErr):
		status = httpErr.Code
		body.Error = http.StatusText(status)
		if msg, ok := httpErr.Message.(string); ok {
			body.Error = msg
		}
		if status == http.StatusNotFound {
			body.Code = "not_found"
		}
	}

	if status >= http.StatusInternalServerError {
		ragd.Error("request failed", "method", c.Request().Method,
			"path", c.Request().URL.Path, "status", status, "error", err)
	} else {
		ragd.Warn("request rejected", "method", c.Request().Method,
			"path", c.Request().URL.Path, "status", status, "error", err)
	}
	_ = c.JSON(status, body)
}

// statusForError resolves the status a handler error will be written with.
// Route middleware sees the error before the error handler has written the
// response, so it cannot read the status off the response itself.
func statusForError(err error) int {
	var pipelineErr *rag.Error
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &pipelineErr):
		return statusForKind(pipelineErr.Kind)
	case errors.As(err, &httpErr):
		return httpErr.Code
	default:
		return http.StatusInternalServerError
	}
}

func statusForKind(kind rag.ErrorKind) int {
	switch kind {
	case rag.KindValidation:
		return http.StatusBadRequest
	case rag.KindNotFound:
		return http.StatusNotFound
	case rag.KindExternalService:
		return http.StatusBadGateway
	case rag.KindFileProcessing:
		return http.StatusUnprocessableEntity
	case rag.KindDatabase:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
