package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/autoscribe/autoscribe-core/internal/automation"
)

func TestGenerateAutomation(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/automations/generate",
		`{"description": "Turn on the living room lights when motion is detected after sunset"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp GenerateResponse
	decodeJSON(t, rec, &resp)

	if resp.RequestID == "" {
		t.Error("response missing request_id")
	}
	if resp.Automation == nil {
		t.Fatal("response missing automation")
	}
	if len(resp.Automation.Triggers) != 1 {
		t.Errorf("triggers = %d, want 1", len(resp.Automation.Triggers))
	}
	if resp.Path != "rules" {
		t.Errorf("path = %q, want rules", resp.Path)
	}
	if !strings.Contains(resp.YAML, "alias:") {
		t.Errorf("yaml missing alias: %q", resp.YAML)
	}
	if resp.Alias == "" || resp.Alias != resp.Automation.Alias {
		t.Errorf("alias %q does not match document alias %q", resp.Alias, resp.Automation.Alias)
	}
	for _, d := range resp.Diagnostics {
		if d.Severity == automation.SeverityError {
			t.Errorf("unexpected error diagnostic: %+v", d)
		}
	}
}

func TestGenerateAutomationWithErrors(t *testing.T) {
	srv, _ := testServer(t)

	// Nonsense still returns 200 with an annotated skeleton.
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/automations/generate",
		`{"description": "do something cool"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp GenerateResponse
	decodeJSON(t, rec, &resp)
	if !resp.Diagnostics.HasErrors() {
		t.Error("expected error diagnostics for nonsense input")
	}
}

func TestGenerateAutomationBadRequests(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{not json`},
		{"empty description", `{"description": ""}`},
		{"whitespace description", `{"description": "   "}`},
		{"oversized description", `{"description": "` + strings.Repeat("x", 1001) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/v1/automations/generate", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

// generateDocument runs a compile through the API and returns the document JSON.
func generateDocument(t *testing.T, srv *Server) json.RawMessage {
	t.Helper()
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/automations/generate",
		`{"description": "Turn on the coffee maker at 07:30"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d", rec.Code)
	}
	var resp struct {
		Automation json.RawMessage `json:"automation"`
	}
	decodeJSON(t, rec, &resp)
	return resp.Automation
}

func TestSaveAutomation(t *testing.T) {
	srv, ha := testServer(t)
	doc := generateDocument(t, srv)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/automations/",
		`{"automation": `+string(doc)+`}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp SaveResponse
	decodeJSON(t, rec, &resp)
	if resp.Status != "saved" {
		t.Errorf("status = %q, want saved", resp.Status)
	}
	if resp.ObjectID == "" {
		t.Error("response missing object_id")
	}

	if _, ok := ha.saved[resp.ObjectID]; !ok {
		t.Errorf("document not saved under %q: %v", resp.ObjectID, ha.saved)
	}
	if ha.reloadCount != 1 {
		t.Errorf("reload count = %d, want 1", ha.reloadCount)
	}
}

func TestSaveAutomationReloadFailure(t *testing.T) {
	srv, ha := testServer(t)
	ha.reloadErr = errors.New("reload timed out")
	doc := generateDocument(t, srv)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/automations/",
		`{"automation": `+string(doc)+`}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp SaveResponse
	decodeJSON(t, rec, &resp)
	if resp.Status != "saved_reload_pending" {
		t.Errorf("status = %q, want saved_reload_pending", resp.Status)
	}
}

func TestSaveAutomationRejectsInvalidDocument(t *testing.T) {
	srv, _ := testServer(t)

	// No triggers, no actions: fails re-validation.
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/automations/",
		`{"automation": {"alias": "Broken", "mode": "single"}}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestSaveAutomationBadRequests(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{not json`},
		{"missing automation", `{}`},
		{"missing alias", `{"automation": {"mode": "single"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/v1/automations/", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSaveAutomationWithoutHA(t *testing.T) {
	srv, _ := testServer(t)
	srv.ha = nil

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/automations/",
		`{"automation": {"alias": "Anything"}}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestDocumentReferencesSun(t *testing.T) {
	tests := []struct {
		name string
		doc  automation.Document
		want bool
	}{
		{
			name: "sun trigger",
			doc: automation.Document{
				Triggers: []automation.Trigger{{Platform: automation.TriggerSun, Event: "sunset"}},
			},
			want: true,
		},
		{
			name: "sun condition",
			doc: automation.Document{
				Conditions: []automation.Condition{{Condition: automation.ConditionSun, After: "sunset"}},
			},
			want: true,
		},
		{
			name: "no sun reference",
			doc: automation.Document{
				Triggers: []automation.Trigger{{Platform: automation.TriggerState, EntityID: "light.a"}},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := documentReferencesSun(&tt.doc); got != tt.want {
				t.Errorf("documentReferencesSun() = %v, want %v", got, tt.want)
			}
		})
	}
}
