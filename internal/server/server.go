// Package server provides the HTTP API for bookflow.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hyperjump/bookflow/internal/config"
	"github.com/hyperjump/bookflow/internal/dataset"
	"github.com/hyperjump/bookflow/internal/docstore"
	"github.com/hyperjump/bookflow/internal/keyword"
	"github.com/hyperjump/bookflow/internal/metrics"
	"github.com/hyperjump/bookflow/internal/models"
	"github.com/hyperjump/bookflow/internal/pipeline"
)

// DocumentStore is the store surface the API reads from.
type DocumentStore interface {
	Get(ctx context.Context, id string) (*models.VersionedDocument, error)
	Query(ctx context.Context, text string, k int) ([]*models.SearchHit, error)
	KeywordQuery(ctx context.Context, text string, k int, opts *keyword.SearchOptions) ([]*models.SearchHit, error)
	Stats(ctx context.Context) (*docstore.Stats, error)
}

// Pipeline runs chapters and accepts human edits.
type Pipeline interface {
	Run(ctx context.Context, source string) (*pipeline.Outcome, error)
	SubmitEdit(ctx context.Context, parentID, text, editor string) (*models.VersionedDocument, error)
}

// DatasetBuilder builds the preference dataset.
type DatasetBuilder interface {
	Build(ctx context.Context) ([]models.PreferenceTriple, *dataset.Stats, error)
}

// VoiceTranscriber turns an uploaded audio file into query text.
type VoiceTranscriber interface {
	TranscribeUpload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// LineageWalker returns a document's ancestry.
type LineageWalker interface {
	Chain(ctx context.Context, id string) ([]*models.VersionedDocument, error)
}

// Deps are the components behind the API. Voice and Metrics may be nil.
type Deps struct {
	Store     DocumentStore
	Pipeline  Pipeline
	Dataset   DatasetBuilder
	Lineage   LineageWalker
	Voice     VoiceTranscriber
	Metrics   *metrics.Metrics
	TargetURL string
	Search    config.SearchConfig
}

// Server is the HTTP server for the bookflow API.
type Server struct {
	deps     Deps
	config   *config.ServerConfig
	logger   *zap.Logger
	validate *validator.Validate
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		deps:     deps,
		config:   cfg,
		logger:   logger,
		validate: validator.New(),
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleRoot)
	r.Post("/process-chapter", s.handleProcessChapter)
	r.Get("/search", s.handleSearch)
	r.Get("/search/keyword", s.handleKeywordSearch)
	r.Post("/search/voice", s.handleVoiceSearch)
	r.Post("/edit-chapter", s.handleEditChapter)
	r.Get("/dataset/preference", s.handlePreferenceDataset)
	r.Get("/documents/{id}", s.handleGetDocument)
	r.Get("/documents/{id}/lineage", s.handleGetLineage)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
