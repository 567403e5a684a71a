package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-entity-manager/internal/manager"
	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
)

// analyzeRequest is the body of POST /analyze.
type analyzeRequest struct {
	SkipReviewed bool     `json:"skip_reviewed"`
	ShowReviewed bool     `json:"show_reviewed"`
	Limit        int      `json:"limit"`
	EntityIDs    []string `json:"entity_ids"`
}

// analyzeResponse wraps an analysis with its change count.
type analyzeResponse struct {
	*review.Analysis
	Total   int `json:"total"`
	Changes int `json:"changes"`
}

// handleAnalyze proposes identifiers without touching the registry.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	analysis, err := s.manager.AnalyzeEntities(r.Context(), review.AnalyzeOptions{
		SkipReviewed: req.SkipReviewed,
		ShowReviewed: req.ShowReviewed,
		Limit:        req.Limit,
		Identifiers:  req.EntityIDs,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Analysis: analysis,
		Total:    analysis.Len(),
		Changes:  len(analysis.Changed()),
	})
}

// handleRenameBulk runs analysis and apply in one request. Fields missing
// from the body keep their defaults: a dry run over ten unreviewed entities.
func (s *Server) handleRenameBulk(w http.ResponseWriter, r *http.Request) {
	opts := s.manager.DefaultBulkOptions()
	if err := decodeJSON(r, &opts); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.manager.RenameBulk(r.Context(), opts)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// renameEntityRequest is the optional body of POST /entities/{entityID}/rename.
type renameEntityRequest struct {
	DryRun bool `json:"dry_run"`
}

// handleRenameEntity renames one entity. A rejected rename answers 502
// with the partial result so the caller can see the proposed identifier.
func (s *Server) handleRenameEntity(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	var req renameEntityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.manager.RenameEntity(r.Context(), entityID, req.DryRun)
	if errors.Is(err, manager.ErrRenameFailed) && result != nil {
		s.logger.Warn("entity rename rejected", "entity_id", entityID, "error", err)
		writeJSON(w, http.StatusBadGateway, result)
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
