package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-entity-manager/internal/manager"
)

// handleListAreas returns areas that hold entities, with counts.
func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := s.manager.Areas(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"areas": areas,
		"count": len(areas),
	})
}

// handleAreaEntities lists one area's entities.
//
// Query parameters:
//   - domain: keep one domain ("all" or empty keeps every domain)
//   - skip_reviewed: "true" leaves out reviewed entities
func (s *Server) handleAreaEntities(w http.ResponseWriter, r *http.Request) {
	areaID := chi.URLParam(r, "areaID")
	query := r.URL.Query()

	skip, err := parseBoolParam(query.Get("skip_reviewed"))
	if err != nil {
		writeBadRequest(w, "skip_reviewed must be true or false")
		return
	}

	entities, err := s.manager.EntitiesByArea(r.Context(), areaID, manager.EntityFilter{
		Domain:       query.Get("domain"),
		SkipReviewed: skip,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"area_id":  areaID,
		"entities": entities,
		"count":    len(entities),
	})
}
