package extract

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// stubExtractor returns a fixed result and counts calls.
type stubExtractor struct {
	mu    sync.Mutex
	ir    *IR
	err   error
	calls int
}

func (s *stubExtractor) Extract(_ context.Context, _ Utterance) (*IR, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.ir, s.err
}

func (s *stubExtractor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubGate struct {
	mu        sync.Mutex
	allow     bool
	successes int
	failures  []error
}

func (g *stubGate) ShouldAttempt() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.allow
}

func (g *stubGate) ReportSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.successes++
}

func (g *stubGate) ReportFailure(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = append(g.failures, err)
}

func (g *stubGate) stats() (int, []error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.successes, append([]error(nil), g.failures...)
}

func wellFormedModelIR(utt Utterance) *IR {
	return &IR{
		Utterance: utt,
		Path:      PathModel,
		Triggers:  []Clause{{Kind: KindSunEvent, SunEvent: SunEventSunset, Confidence: 0.97}},
		Actions:   []Clause{{Kind: KindServiceCall, Service: ServiceTurnOn, Confidence: 0.96}},
	}
}

func TestEngine_RulesOnlyByDefault(t *testing.T) {
	utt := Utterance{ID: "req-1", Text: "turn on the lights"}
	rules := &stubExtractor{ir: &IR{Utterance: utt, Path: PathRules}}

	got := NewEngine(rules).Extract(context.Background(), utt)

	if got.Path != PathRules {
		t.Errorf("path = %q, want rules", got.Path)
	}
	if rules.callCount() != 1 {
		t.Errorf("rules called %d times, want 1", rules.callCount())
	}
}

func TestEngine_ModelPathPreferred(t *testing.T) {
	utt := Utterance{ID: "req-2", Text: "turn on the lights at sunset"}
	rules := &stubExtractor{ir: &IR{Utterance: utt, Path: PathRules}}
	model := &stubExtractor{ir: wellFormedModelIR(utt)}
	gate := &stubGate{allow: true}

	engine := NewEngine(rules)
	engine.SetModelPath(model, gate)

	got := engine.Extract(context.Background(), utt)

	if got.Path != PathModel {
		t.Errorf("path = %q, want model", got.Path)
	}
	if rules.callCount() != 0 {
		t.Errorf("rules called %d times, want 0", rules.callCount())
	}
	if successes, failures := gate.stats(); successes != 1 || len(failures) != 0 {
		t.Errorf("gate saw %d successes and %d failures, want 1 and 0", successes, len(failures))
	}
}

func TestEngine_ModelErrorFallsBack(t *testing.T) {
	utt := Utterance{ID: "req-3", Text: "turn on the lights"}
	modelErr := errors.New("inference timed out")
	rules := &stubExtractor{ir: &IR{Utterance: utt, Path: PathRules}}
	model := &stubExtractor{err: modelErr}
	gate := &stubGate{allow: true}

	engine := NewEngine(rules)
	engine.SetModelPath(model, gate)

	got := engine.Extract(context.Background(), utt)

	if got.Path != PathRules {
		t.Errorf("path = %q, want rules fallback", got.Path)
	}
	if rules.callCount() != 1 {
		t.Errorf("rules called %d times, want 1", rules.callCount())
	}
	successes, failures := gate.stats()
	if successes != 0 || len(failures) != 1 {
		t.Fatalf("gate saw %d successes and %d failures, want 0 and 1", successes, len(failures))
	}
	if !errors.Is(failures[0], modelErr) {
		t.Errorf("reported failure = %v, want %v", failures[0], modelErr)
	}
}

func TestEngine_MalformedModelOutput(t *testing.T) {
	utt := Utterance{ID: "req-4", Text: "turn on the lights"}

	tests := []struct {
		name string
		ir   *IR
	}{
		{name: "nil ir", ir: nil},
		{
			name: "wrong path",
			ir: &IR{
				Utterance: utt,
				Path:      PathRules,
				Actions:   []Clause{{Kind: KindServiceCall, Service: ServiceTurnOn}},
			},
		},
		{
			name: "utterance mismatch",
			ir:   &IR{Utterance: Utterance{ID: "other", Text: utt.Text}, Path: PathModel},
		},
		{
			name: "clause without kind",
			ir: &IR{
				Utterance: utt,
				Path:      PathModel,
				Actions:   []Clause{{Service: ServiceTurnOn}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := &stubExtractor{ir: &IR{Utterance: utt, Path: PathRules}}
			model := &stubExtractor{ir: tt.ir}
			gate := &stubGate{allow: true}

			engine := NewEngine(rules)
			engine.SetModelPath(model, gate)

			got := engine.Extract(context.Background(), utt)

			if got.Path != PathRules {
				t.Errorf("path = %q, want rules fallback", got.Path)
			}
			_, failures := gate.stats()
			if len(failures) != 1 || !errors.Is(failures[0], ErrMalformedIR) {
				t.Errorf("reported failures = %v, want single ErrMalformedIR", failures)
			}
		})
	}
}

func TestEngine_GateClosed(t *testing.T) {
	utt := Utterance{ID: "req-5", Text: "turn on the lights"}
	rules := &stubExtractor{ir: &IR{Utterance: utt, Path: PathRules}}
	model := &stubExtractor{ir: wellFormedModelIR(utt)}
	gate := &stubGate{allow: false}

	engine := NewEngine(rules)
	engine.SetModelPath(model, gate)

	got := engine.Extract(context.Background(), utt)

	if got.Path != PathRules {
		t.Errorf("path = %q, want rules", got.Path)
	}
	if model.callCount() != 0 {
		t.Errorf("model called %d times while gated off, want 0", model.callCount())
	}
	if successes, failures := gate.stats(); successes != 0 || len(failures) != 0 {
		t.Errorf("gate saw %d successes and %d failures, want none", successes, len(failures))
	}
}

func TestEngine_NilRuleResultGuard(t *testing.T) {
	utt := Utterance{ID: "req-6", Text: "turn on the lights"}
	rules := &stubExtractor{ir: nil}

	got := NewEngine(rules).Extract(context.Background(), utt)

	if got == nil {
		t.Fatal("engine returned nil IR")
	}
	if got.Path != PathRules || got.Utterance.ID != utt.ID {
		t.Errorf("guard IR = %+v, want empty rules IR for the request", got)
	}
	if got.ClauseCount() != 0 {
		t.Errorf("guard IR has %d clauses, want 0", got.ClauseCount())
	}
}
