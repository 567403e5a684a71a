package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-entity-manager/internal/overrides"
)

// setOverrideRequest is the body of PUT /overrides/{kind}/{id}.
type setOverrideRequest struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// handleListOverrides returns the full override document.
func (s *Server) handleListOverrides(w http.ResponseWriter, _ *http.Request) {
	doc := s.manager.Overrides().All()
	writeJSON(w, http.StatusOK, map[string]any{
		"areas":    doc.Areas,
		"devices":  doc.Devices,
		"entities": doc.Entities,
		"count":    doc.Len(),
	})
}

// handleSetOverride creates or replaces one override.
func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	kind, err := overrides.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")

	var req setOverrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	rec := overrides.Record{Name: req.Name, Type: req.Type}
	if err := s.manager.Overrides().Set(r.Context(), kind, id, rec); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	stored, _ := s.manager.Overrides().Get(kind, id)
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":     kind,
		"id":       id,
		"override": stored,
	})
}

// handleRemoveOverride deletes one override. Removing an override that
// does not exist answers 404.
func (s *Server) handleRemoveOverride(w http.ResponseWriter, r *http.Request) {
	kind, err := overrides.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")

	removed, err := s.manager.Overrides().Remove(r.Context(), kind, id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no "+string(kind)+" override for "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearOverrides deletes every override.
func (s *Server) handleClearOverrides(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Overrides().ClearAll(r.Context()); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReloadOverrides re-reads the override backend.
func (s *Server) handleReloadOverrides(w http.ResponseWriter, r *http.Request) {
	status := s.manager.ReloadOverrides(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status.String(),
		"count":  s.manager.Overrides().Snapshot().Len(),
	})
}
