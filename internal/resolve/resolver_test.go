package resolve

import (
	"math"
	"testing"

	"github.com/autoscribe/autoscribe-core/internal/catalog"
	"github.com/autoscribe/autoscribe-core/internal/extract"
)

func testSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()
	store := catalog.NewStore()
	return store.Replace([]catalog.Entity{
		{EntityID: "light.living_room", FriendlyName: "Living Room Lights", State: "off"},
		{EntityID: "light.kitchen", FriendlyName: "Kitchen Lights", State: "on"},
		{EntityID: "binary_sensor.motion_living_room", State: "off"},
		{EntityID: "switch.tv", FriendlyName: "TV Plug", State: "on"},
		{EntityID: "media_player.tv", FriendlyName: "Living Room TV", State: "idle"},
		{EntityID: "climate.hallway", FriendlyName: "Hallway Thermostat", State: "heat"},
	})
}

func TestResolver_ExactNameMatch(t *testing.T) {
	r := NewResolver(0.45)
	snap := testSnapshot(t)

	got := r.Resolve(snap, extract.Mention{Name: "living room lights", DomainHint: "light", Confidence: 0.9})

	if got.Method != MethodExact {
		t.Errorf("method = %q, want exact", got.Method)
	}
	if got.EntityID != "light.living_room" || got.Domain != "light" {
		t.Errorf("bound to %s (%s), want light.living_room", got.EntityID, got.Domain)
	}
	if got.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", got.Confidence)
	}
}

func TestResolver_ExactMatchIgnoresDomainHint(t *testing.T) {
	r := NewResolver(0.45)
	snap := testSnapshot(t)

	// "tv plug" names a switch; a media_player hint must not defeat the
	// exact name match.
	got := r.Resolve(snap, extract.Mention{Name: "tv plug", DomainHint: "media_player"})

	if got.Method != MethodExact || got.EntityID != "switch.tv" {
		t.Errorf("resolved %s via %q, want switch.tv via exact", got.EntityID, got.Method)
	}
}

func TestResolver_DomainFilteredFuzzy(t *testing.T) {
	r := NewResolver(0.45)
	snap := testSnapshot(t)

	got := r.Resolve(snap, extract.Mention{Text: "motion", Name: "motion", DomainHint: "binary_sensor", Confidence: 0.9})

	if got.Method != MethodDomainFuzzy {
		t.Errorf("method = %q, want domain-filtered-fuzzy", got.Method)
	}
	if got.EntityID != "binary_sensor.motion_living_room" {
		t.Errorf("bound to %s, want binary_sensor.motion_living_room", got.EntityID)
	}
	// containment 1.0 and jaccard 1/3 blend to 0.8.
	if math.Abs(got.Confidence-0.8) > 1e-9 {
		t.Errorf("confidence = %v, want 0.8", got.Confidence)
	}
}

func TestResolver_DomainHintNarrowsCandidates(t *testing.T) {
	r := NewResolver(0.45)
	snap := testSnapshot(t)

	// Both switch.tv and media_player.tv carry "tv"; the hint decides.
	got := r.Resolve(snap, extract.Mention{Name: "tv", DomainHint: "media_player"})

	if got.Method != MethodDomainFuzzy {
		t.Errorf("method = %q, want domain-filtered-fuzzy", got.Method)
	}
	if got.EntityID != "media_player.tv" {
		t.Errorf("bound to %s, want media_player.tv", got.EntityID)
	}
}

func TestResolver_GlobalFuzzyFallback(t *testing.T) {
	r := NewResolver(0.45)
	snap := testSnapshot(t)

	// A hint naming an absent domain cannot bind; step three searches the
	// whole catalog.
	got := r.Resolve(snap, extract.Mention{Name: "kitchen", DomainHint: "vacuum"})

	if got.Method != MethodFuzzy {
		t.Errorf("method = %q, want fuzzy", got.Method)
	}
	if got.EntityID != "light.kitchen" {
		t.Errorf("bound to %s, want light.kitchen", got.EntityID)
	}
}

func TestResolver_GlobalFuzzyWithoutHint(t *testing.T) {
	r := NewResolver(0.45)
	snap := testSnapshot(t)

	got := r.Resolve(snap, extract.Mention{Name: "hallway"})

	if got.Method != MethodFuzzy {
		t.Errorf("method = %q, want fuzzy", got.Method)
	}
	if got.EntityID != "climate.hallway" {
		t.Errorf("bound to %s, want climate.hallway", got.EntityID)
	}
}

func TestResolver_BelowThresholdUnresolved(t *testing.T) {
	r := NewResolver(0.45)
	snap := testSnapshot(t)

	tests := []struct {
		name    string
		mention extract.Mention
	}{
		{name: "unrelated wording", mention: extract.Mention{Name: "submarine hatch"}},
		{name: "empty name", mention: extract.Mention{Text: "them"}},
		{name: "pronoun never bound", mention: extract.Mention{Name: "everything", Confidence: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(snap, tt.mention)

			if got.Resolved() {
				t.Errorf("Resolved() = true for %+v", got)
			}
			if got.Method != MethodUnresolved {
				t.Errorf("method = %q, want unresolved", got.Method)
			}
			if got.Confidence != 0 || got.EntityID != "" {
				t.Errorf("unresolved mention carries binding: %+v", got)
			}
		})
	}
}

func TestResolver_ThresholdBoundary(t *testing.T) {
	snap := testSnapshot(t)

	// "lights of the living room" scores below 1.0 against the friendly
	// name but well above a permissive threshold.
	mention := extract.Mention{Name: "lights of the living room", DomainHint: "light"}

	strict := NewResolver(0.99)
	if got := strict.Resolve(snap, mention); got.Resolved() {
		t.Errorf("strict resolver bound %s, want unresolved", got.EntityID)
	}

	permissive := NewResolver(0.45)
	got := permissive.Resolve(snap, mention)
	if !got.Resolved() || got.EntityID != "light.living_room" {
		t.Errorf("permissive resolver = %+v, want light.living_room", got)
	}
	if got.Confidence <= 0 || got.Confidence >= 1 {
		t.Errorf("fuzzy confidence = %v, want inside (0,1)", got.Confidence)
	}
}

func TestResolver_ResolveIR(t *testing.T) {
	r := NewResolver(0.45)
	snap := testSnapshot(t)

	utt := extract.Utterance{ID: "req-1", Text: "turn on the living room lights when motion is detected"}
	ir := &extract.IR{
		Utterance: utt,
		Path:      extract.PathRules,
		Triggers: []extract.Clause{{
			Kind:        extract.KindStateChange,
			Mentions:    []extract.Mention{{Text: "motion", Name: "motion", DomainHint: "binary_sensor", Confidence: 0.9}},
			TargetState: "on",
			Confidence:  0.85,
		}},
		Actions: []extract.Clause{{
			Kind:       extract.KindServiceCall,
			Service:    extract.ServiceTurnOn,
			Mentions:   []extract.Mention{{Text: "the living room lights", Name: "living room lights", DomainHint: "light", Confidence: 0.9}},
			Confidence: 0.9,
		}},
	}

	got := r.ResolveIR(snap, ir)

	if got.Utterance.ID != utt.ID || got.Path != extract.PathRules {
		t.Errorf("resolved IR header = (%q, %q), want utterance and path carried over", got.Utterance.ID, got.Path)
	}
	if len(got.Triggers) != 1 || len(got.Actions) != 1 || len(got.Conditions) != 0 {
		t.Fatalf("clause counts = %d/%d/%d, want 1/0/1",
			len(got.Triggers), len(got.Conditions), len(got.Actions))
	}

	trig := got.Triggers[0]
	if trig.Clause.TargetState != "on" {
		t.Errorf("trigger clause not carried over: %+v", trig.Clause)
	}
	if len(trig.Mentions) != 1 || trig.Mentions[0].EntityID != "binary_sensor.motion_living_room" {
		t.Errorf("trigger resolution = %+v, want motion sensor", trig.Mentions)
	}

	act := got.Actions[0]
	if len(act.Mentions) != 1 || act.Mentions[0].EntityID != "light.living_room" {
		t.Errorf("action resolution = %+v, want light.living_room", act.Mentions)
	}
	if act.Mentions[0].Method != MethodExact {
		t.Errorf("action method = %q, want exact", act.Mentions[0].Method)
	}
}

func TestResolvedIR_Unresolved(t *testing.T) {
	r := NewResolver(0.45)
	snap := testSnapshot(t)

	ir := &extract.IR{
		Utterance: extract.Utterance{ID: "req-2", Text: "turn on the disco ball"},
		Path:      extract.PathRules,
		Actions: []extract.Clause{{
			Kind:       extract.KindServiceCall,
			Service:    extract.ServiceTurnOn,
			Mentions:   []extract.Mention{{Text: "the disco ball", Name: "disco ball", Confidence: 0.9}},
			Confidence: 0.9,
		}},
	}

	got := r.ResolveIR(snap, ir)

	unresolved := got.Unresolved()
	if len(unresolved) != 1 {
		t.Fatalf("Unresolved() returned %d mentions, want 1", len(unresolved))
	}
	if unresolved[0].Mention.Name != "disco ball" {
		t.Errorf("unresolved mention = %q, want disco ball", unresolved[0].Mention.Name)
	}
	if all := got.AllMentions(); len(all) != 1 {
		t.Errorf("AllMentions() returned %d, want 1", len(all))
	}
}
