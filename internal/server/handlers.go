package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/bookflow/internal/errs"
	"github.com/hyperjump/bookflow/internal/keyword"
	"github.com/hyperjump/bookflow/internal/lineage"
	"github.com/hyperjump/bookflow/internal/models"
	"github.com/hyperjump/bookflow/internal/pipeline"
)

const maxAudioBytes = 25 << 20

// EditRequest is the body of POST /edit-chapter/.
type EditRequest struct {
	ParentID string `json:"parent_id" validate:"required"`
	NewText  string `json:"new_text" validate:"required"`
	Editor   string `json:"editor,omitempty" validate:"omitempty,max=64"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Welcome to bookflow. POST /process-chapter/ to run the pipeline."})
}

func (s *Server) handleProcessChapter(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("process chapter request", zap.String("source", s.deps.TargetURL))
	out, err := s.deps.Pipeline.Run(r.Context(), s.deps.TargetURL)
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		status := http.StatusInternalServerError
		// Only the re-read of the stored raw version maps to 404.
		if stageErr.Stage == pipeline.StatePersistingRaw && errs.IsNotFound(stageErr.Err) {
			status = http.StatusNotFound
		}
		s.respondError(w, status, stageErr.Error())
		return
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":           "Chapter processed and reviewed successfully!",
		"raw_document":      out.RawDocument,
		"spun_document":     out.SpunDocument,
		"reviewed_document": out.ReviewedDocument,
	})
}

// searchQuery reads q and limit; it writes a 400 and returns false when q is empty.
func (s *Server) searchQuery(w http.ResponseWriter, r *http.Request, defaultLimit int) (*models.SearchQuery, bool) {
	query := &models.SearchQuery{Query: r.URL.Query().Get("q")}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "Query parameter 'limit' must be an integer.")
			return nil, false
		}
		query.Limit = n
	}
	if !query.Normalize(defaultLimit, s.deps.Search.MaxResults) {
		s.respondError(w, http.StatusBadRequest, "Query parameter 'q' cannot be empty.")
		return nil, false
	}
	return query, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query, ok := s.searchQuery(w, r, s.deps.Search.TextResults)
	if !ok {
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	hits, err := s.deps.Store.Query(r.Context(), query.Query, query.Limit)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	if len(hits) == 0 {
		s.respondJSON(w, http.StatusOK, map[string]string{"message": "No relevant documents found."})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": hits})
}

func (s *Server) handleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	query, ok := s.searchQuery(w, r, s.deps.Search.TextResults)
	if !ok {
		return
	}
	opts := &keyword.SearchOptions{FuzzyEnabled: s.deps.Search.Fuzzy}
	if st := r.URL.Query().Get("status"); st != "" {
		status, err := models.ParseStatus(st)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Status = status
	}
	hits, err := s.deps.Store.KeywordQuery(r.Context(), query.Query, query.Limit, opts)
	if err != nil {
		s.logger.Error("keyword search failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	if len(hits) == 0 {
		s.respondJSON(w, http.StatusOK, map[string]string{"message": "No relevant documents found."})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": hits})
}

func (s *Server) handleVoiceSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Voice == nil {
		s.respondError(w, http.StatusNotImplemented, "Voice search is not configured.")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Form field 'file' is required.")
		return
	}
	defer file.Close()

	text, err := s.deps.Voice.TranscribeUpload(r.Context(), header.Filename, file)
	if err != nil {
		s.logger.Error("transcription failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Could not transcribe audio. Please try again.")
		return
	}
	hits, err := s.deps.Store.Query(r.Context(), text, s.deps.Search.VoiceResults)
	if err != nil {
		s.logger.Error("voice search failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	if len(hits) == 0 {
		s.respondJSON(w, http.StatusOK, map[string]string{
			"message":          "No relevant documents found for your voice query.",
			"transcribed_text": text,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"transcribed_text": text, "results": hits})
}

func (s *Server) handleEditChapter(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid edit payload: %v", err))
		return
	}
	doc, err := s.deps.Pipeline.SubmitEdit(r.Context(), req.ParentID, req.NewText, req.Editor)
	if errs.IsNotFound(err) {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Parent document with ID %s not found.", req.ParentID))
		return
	}
	if err != nil {
		s.logger.Error("edit failed", zap.String("parent_id", req.ParentID), zap.Error(err))
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message":            "Human edit saved successfully!",
		"new_document_id":    doc.ID,
		"parent_document_id": req.ParentID,
	})
}

func (s *Server) handlePreferenceDataset(w http.ResponseWriter, r *http.Request) {
	triples, stats, err := s.deps.Dataset.Build(r.Context())
	if err != nil {
		s.logger.Error("dataset build failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	if len(triples) == 0 {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "No human edits found to create a dataset.",
			"stats":   stats,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"preference_dataset": triples, "stats": stats})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleGetLineage(w http.ResponseWriter, r *http.Request) {
	chain, err := s.deps.Lineage.Chain(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, lineage.ErrNoRoot) {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"lineage": chain})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Store.Stats(r.Context())
	if err != nil {
		s.logger.Error("status: store stats failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents":         stats.Documents,
		"by_status":         stats.ByStatus,
		"vector_index_size": stats.VectorIndexSize,
		"embedding_model":   stats.EmbeddingModel,
		"disk_usage":        stats.DiskUsage,
		"disk_usage_bytes":  stats.DiskUsageBytes,
	})
}

// respondErr maps the error taxonomy to a status code.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.IsValidation(err):
		status = http.StatusBadRequest
	case errs.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrRunInProgress):
		status = http.StatusConflict
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"detail": message})
}
