package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/autoscribe/autoscribe-core/internal/catalog"
)

// EntitiesResponse is the catalog snapshot grouped by domain.
type EntitiesResponse struct {
	Version uint64                      `json:"version"`
	TakenAt time.Time                   `json:"taken_at"`
	Count   int                         `json:"count"`
	Domains map[string][]catalog.Entity `json:"domains"`
}

// handleListEntities returns the current catalog snapshot grouped by domain.
func (s *Server) handleListEntities(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Current()

	domains := make(map[string][]catalog.Entity)
	for _, e := range snap.All() {
		domains[e.Domain] = append(domains[e.Domain], e)
	}

	writeJSON(w, http.StatusOK, EntitiesResponse{
		Version: snap.Version(),
		TakenAt: snap.TakenAt(),
		Count:   snap.Len(),
		Domains: domains,
	})
}

// TestEntityRequest is the body for POST /entities/test.
type TestEntityRequest struct {
	EntityID string `json:"entity_id"`
	Service  string `json:"service"`
}

// handleTestEntity calls a service against one entity so the user can check
// the catalog entry maps to the physical device they expect.
func (s *Server) handleTestEntity(w http.ResponseWriter, r *http.Request) {
	if s.ha == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable,
			"Home Assistant connection is not configured")
		return
	}

	var req TestEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.EntityID == "" {
		writeBadRequest(w, "entity_id is required")
		return
	}

	domain, _, err := catalog.SplitEntityID(req.EntityID)
	if err != nil {
		writeBadRequest(w, "entity_id must be in domain.object form")
		return
	}

	if !s.store.Current().Contains(req.EntityID) {
		writeNotFound(w, "entity not found in catalog")
		return
	}

	service := strings.TrimSpace(req.Service)
	if service == "" {
		service = "toggle"
	}

	payload := map[string]any{"entity_id": req.EntityID}
	if err := s.ha.CallService(r.Context(), domain, service, payload); err != nil {
		s.logger.Error("entity test failed",
			"entity_id", req.EntityID,
			"service", service,
			"error", err,
		)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "service call failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "called",
		"entity_id": req.EntityID,
		"service":   domain + "." + service,
	})
}
