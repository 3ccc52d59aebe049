package api

import (
	"net/http"
	"strconv"

	"github.com/autoscribe/autoscribe-core/internal/history"
)

// History pagination bounds.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// HistoryResponse is one page of compile history, newest first.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// handleHistory returns paginated compile history. Query parameters:
// path (rules|model), outcome (ok|error), limit, offset.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.historyRepo == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable,
			"compile history is not configured")
		return
	}

	q := r.URL.Query()

	limit := defaultHistoryLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	filter := history.Filter{
		Path:    q.Get("path"),
		Outcome: q.Get("outcome"),
		Limit:   limit,
		Offset:  offset,
	}

	entries, err := s.historyRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		writeInternalError(w, "failed to query history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Entries: entries,
		Limit:   limit,
		Offset:  offset,
	})
}
