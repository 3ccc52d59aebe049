package inference

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/autoscribe/autoscribe-core/internal/extract"
)

func TestAssemble_RoleSpans(t *testing.T) {
	utt := extract.Utterance{
		ID:   "req-1",
		Text: "Turn on the living room lights when motion is detected after sunset",
	}
	spans := []labelledSpan{
		{label: "ACTION", text: "turn on the living room lights", score: 0.98},
		{label: "TRIGGER", text: "motion is detected", score: 0.97},
		{label: "CONDITION", text: "after sunset", score: 0.95},
	}

	m := &ModelExtractor{logger: noopLogger{}}
	ir, err := m.assemble(utt, spans)
	if err != nil {
		t.Fatalf("assemble returned error: %v", err)
	}

	if ir.Path != extract.PathModel {
		t.Errorf("path = %q, want model", ir.Path)
	}
	if ir.Utterance.ID != utt.ID {
		t.Errorf("utterance id = %q, want %q", ir.Utterance.ID, utt.ID)
	}

	if len(ir.Actions) != 1 || ir.Actions[0].Service != extract.ServiceTurnOn {
		t.Fatalf("actions = %+v, want single turn_on", ir.Actions)
	}
	if !within(ir.Actions[0].Confidence, 0.9*0.98) {
		t.Errorf("action confidence = %v, want grammar confidence scaled by span score", ir.Actions[0].Confidence)
	}

	if len(ir.Triggers) != 1 || ir.Triggers[0].Kind != extract.KindStateChange || ir.Triggers[0].TargetState != "on" {
		t.Fatalf("triggers = %+v, want single motion state change", ir.Triggers)
	}
	if len(ir.Triggers[0].Mentions) != 1 || ir.Triggers[0].Mentions[0].Name != "motion" {
		t.Errorf("trigger mentions = %+v, want motion", ir.Triggers[0].Mentions)
	}

	if len(ir.Conditions) != 1 || ir.Conditions[0].Kind != extract.KindSunEvent || ir.Conditions[0].SunEvent != extract.SunEventSunset {
		t.Fatalf("conditions = %+v, want after-sunset", ir.Conditions)
	}
	if !within(ir.Conditions[0].Confidence, 0.9*0.95) {
		t.Errorf("condition confidence = %v, want grammar confidence scaled by span score", ir.Conditions[0].Confidence)
	}
}

func TestAssemble_MarkerPrefixStripped(t *testing.T) {
	utt := extract.Utterance{ID: "req-2", Text: "When the front door opens turn on the hall light"}
	spans := []labelledSpan{
		{label: "TRIGGER", text: "when the front door opens", score: 0.96},
		{label: "ACTION", text: "turn on the hall light", score: 0.98},
	}

	m := &ModelExtractor{logger: noopLogger{}}
	ir, err := m.assemble(utt, spans)
	if err != nil {
		t.Fatalf("assemble returned error: %v", err)
	}

	if len(ir.Triggers) != 1 {
		t.Fatalf("triggers = %+v, want 1", ir.Triggers)
	}
	trig := ir.Triggers[0]
	if trig.TargetState != "on" || len(trig.Mentions) != 1 || trig.Mentions[0].Name != "front door" {
		t.Errorf("trigger = %+v, want front door opening", trig)
	}
}

func TestAssemble_NoUsableSpans(t *testing.T) {
	utt := extract.Utterance{ID: "req-3", Text: "do something cool"}

	tests := []struct {
		name  string
		spans []labelledSpan
	}{
		{name: "empty", spans: nil},
		{name: "unknown labels", spans: []labelledSpan{{label: "MISC", text: "something cool", score: 0.9}}},
		{name: "unparseable spans", spans: []labelledSpan{{label: "ACTION", text: "something cool", score: 0.9}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &ModelExtractor{logger: noopLogger{}}
			ir, err := m.assemble(utt, tt.spans)
			if !errors.Is(err, ErrNoSpans) {
				t.Errorf("assemble error = %v, want ErrNoSpans", err)
			}
			if ir != nil {
				t.Errorf("assemble returned %+v alongside error, want nil", ir)
			}
		})
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"B-TRIGGER", "TRIGGER"},
		{"I-ACTION", "ACTION"},
		{"CONDITION", "CONDITION"},
		{"trigger", "TRIGGER"},
	}

	for _, tt := range tests {
		if got := normalizeLabel(tt.in); got != tt.want {
			t.Errorf("normalizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrepareModel_ExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "autoscribe_clause-segmenter")
	if err := os.MkdirAll(local, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := prepareModel(dir, "autoscribe/clause-segmenter")
	if err != nil {
		t.Fatalf("prepareModel returned error: %v", err)
	}
	if got != local {
		t.Errorf("prepareModel = %q, want cached path %q", got, local)
	}
}

func within(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}
