package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-entity-manager/internal/history"
	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
)

// handleListHistory returns recorded apply outcomes, most recent first.
//
// Query parameters: run_id, entity_id, outcome, limit, offset.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "rename history is not configured")
		return
	}

	query := r.URL.Query()
	limit, err := parseIntParam(query.Get("limit"))
	if err != nil || limit < 0 {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	offset, err := parseIntParam(query.Get("offset"))
	if err != nil || offset < 0 {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}

	outcome := query.Get("outcome")
	switch review.Outcome(outcome) {
	case "", review.OutcomeProcessed, review.OutcomeSkipped, review.OutcomeError:
	default:
		writeBadRequest(w, "outcome must be processed, skipped or error")
		return
	}

	result, err := s.history.List(r.Context(), history.Filter{
		RunID:    query.Get("run_id"),
		EntityID: query.Get("entity_id"),
		Outcome:  outcome,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.logger.Error("listing rename history failed", "error", err)
		writeInternalError(w, "failed to list rename history")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseIntParam parses an optional integer query parameter.
func parseIntParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// parseBoolParam parses an optional boolean query parameter.
func parseBoolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
