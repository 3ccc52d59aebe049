package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/autoscribe/autoscribe-core/internal/astro"
	"github.com/autoscribe/autoscribe-core/internal/automation"
)

// GenerateRequest is the body for POST /automations/generate.
type GenerateRequest struct {
	Description string `json:"description"`
}

// GenerateResponse carries one compiled automation back to the caller. The
// document appears twice: structured JSON for editors, rendered YAML for
// copy-paste into automations.yaml.
type GenerateResponse struct {
	RequestID      string                 `json:"request_id"`
	Automation     *automation.Document   `json:"automation"`
	YAML           string                 `json:"yaml"`
	Alias          string                 `json:"alias"`
	Path           string                 `json:"path"`
	Diagnostics    automation.Diagnostics `json:"diagnostics"`
	CatalogVersion uint64                 `json:"catalog_version"`
	DurationMS     int64                  `json:"duration_ms"`

	// Sun previews the next sunrise/sunset, present only when the document
	// references a sun trigger or condition.
	Sun *astro.Preview `json:"sun,omitempty"`
}

// maxDescriptionLength bounds the utterance so an accidental paste of a
// whole document does not reach the extractor.
const maxDescriptionLength = 1000

// handleGenerateAutomation compiles a natural-language description into an
// automation document. Diagnostics are returned alongside the document
// rather than as an HTTP error: a compile with errors is still a 200 so the
// caller can show the annotated result.
func (s *Server) handleGenerateAutomation(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		writeBadRequest(w, "description is required")
		return
	}
	if len(description) > maxDescriptionLength {
		writeBadRequest(w, "description exceeds maximum length")
		return
	}

	res := s.compiler.Compile(r.Context(), description)

	yamlText, err := res.Document.YAML()
	if err != nil {
		s.logger.Error("document YAML render failed",
			"request_id", res.RequestID,
			"error", err,
		)
		writeInternalError(w, "failed to render document")
		return
	}

	resp := GenerateResponse{
		RequestID:      res.RequestID,
		Automation:     res.Document,
		YAML:           yamlText,
		Alias:          res.Document.Alias,
		Path:           string(res.Path),
		Diagnostics:    res.Diagnostics,
		CatalogVersion: res.CatalogVersion,
		DurationMS:     res.Duration.Milliseconds(),
	}

	if s.astro != nil && documentReferencesSun(res.Document) {
		preview, err := s.astro.Next()
		if err != nil {
			s.logger.Warn("sun preview failed", "error", err)
		} else {
			resp.Sun = &preview
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// SaveRequest is the body for POST /automations.
type SaveRequest struct {
	Automation *automation.Document `json:"automation"`
}

// SaveResponse reports where the document was persisted.
type SaveResponse struct {
	Status   string `json:"status"`
	ObjectID string `json:"object_id"`
	Alias    string `json:"alias"`
}

// handleSaveAutomation persists a previously generated document through the
// platform config API, then reloads automations so it takes effect. The
// document is re-validated first: the caller may have edited it.
func (s *Server) handleSaveAutomation(w http.ResponseWriter, r *http.Request) {
	if s.ha == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable,
			"Home Assistant connection is not configured")
		return
	}

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Automation == nil {
		writeBadRequest(w, "automation is required")
		return
	}
	doc := req.Automation
	if strings.TrimSpace(doc.Alias) == "" {
		writeBadRequest(w, "automation.alias is required")
		return
	}

	if diags := automation.Validate(doc, nil, s.store.Current()); diags.HasErrors() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":       "document failed validation",
			"code":        ErrCodeValidation,
			"diagnostics": diags,
		})
		return
	}

	yamlText, err := doc.YAML()
	if err != nil {
		writeInternalError(w, "failed to render document")
		return
	}

	objectID := doc.ObjectID()
	if err := s.ha.SaveAutomation(r.Context(), objectID, yamlText); err != nil {
		s.logger.Error("automation save failed", "object_id", objectID, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "failed to save automation")
		return
	}

	if err := s.ha.ReloadAutomations(r.Context()); err != nil {
		// Saved but not yet live; surface the partial success.
		s.logger.Warn("automation reload failed", "object_id", objectID, "error", err)
		writeJSON(w, http.StatusOK, SaveResponse{
			Status:   "saved_reload_pending",
			ObjectID: objectID,
			Alias:    doc.Alias,
		})
		return
	}

	s.logger.Info("automation saved", "object_id", objectID, "alias", doc.Alias)
	writeJSON(w, http.StatusCreated, SaveResponse{
		Status:   "saved",
		ObjectID: objectID,
		Alias:    doc.Alias,
	})
}

// documentReferencesSun reports whether any trigger or condition depends on
// a sun event.
func documentReferencesSun(doc *automation.Document) bool {
	for _, t := range doc.Triggers {
		if t.Platform == automation.TriggerSun {
			return true
		}
	}
	for _, c := range doc.Conditions {
		if c.Condition == automation.ConditionSun {
			return true
		}
	}
	return false
}
