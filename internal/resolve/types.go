package resolve

import "github.com/autoscribe/autoscribe-core/internal/extract"

// Resolution methods, recorded on every mention for diagnostics.
const (
	// MethodExact is a case-insensitive match on the entity's name.
	MethodExact = "exact"

	// MethodDomainFuzzy is a fuzzy match restricted to the mention's
	// domain hint.
	MethodDomainFuzzy = "domain-filtered-fuzzy"

	// MethodFuzzy is a fuzzy match across the whole catalog.
	MethodFuzzy = "fuzzy"

	// MethodUnresolved means no candidate reached the acceptance
	// threshold.
	MethodUnresolved = "unresolved"
)

// ResolvedMention binds an extracted mention to a catalog entity, or
// records that no entity was acceptable. Confidence is the match score:
// 1.0 for exact matches, the similarity score for fuzzy ones, 0 when
// unresolved.
type ResolvedMention struct {
	Mention    extract.Mention `json:"mention"`
	EntityID   string          `json:"entity_id,omitempty"`
	Domain     string          `json:"domain,omitempty"`
	Method     string          `json:"method"`
	Confidence float64         `json:"confidence"`
}

// Resolved reports whether the mention was bound to an entity.
func (m ResolvedMention) Resolved() bool {
	return m.Method != MethodUnresolved
}

// ResolvedClause pairs one clause with the resolution outcome of each of
// its mentions, in mention order.
type ResolvedClause struct {
	Clause   extract.Clause    `json:"clause"`
	Mentions []ResolvedMention `json:"mentions,omitempty"`
}

// ResolvedIR mirrors the clause IR with every mention resolution recorded.
// It is the synthesizer's input.
type ResolvedIR struct {
	Utterance  extract.Utterance `json:"utterance"`
	Path       extract.Path      `json:"path"`
	Triggers   []ResolvedClause  `json:"triggers,omitempty"`
	Conditions []ResolvedClause  `json:"conditions,omitempty"`
	Actions    []ResolvedClause  `json:"actions,omitempty"`
}

// AllMentions returns every resolution outcome in clause order: triggers,
// then conditions, then actions.
func (ir *ResolvedIR) AllMentions() []ResolvedMention {
	var out []ResolvedMention
	for _, group := range [][]ResolvedClause{ir.Triggers, ir.Conditions, ir.Actions} {
		for _, c := range group {
			out = append(out, c.Mentions...)
		}
	}
	return out
}

// Unresolved returns the resolution outcomes that failed to bind.
func (ir *ResolvedIR) Unresolved() []ResolvedMention {
	var out []ResolvedMention
	for _, m := range ir.AllMentions() {
		if !m.Resolved() {
			out = append(out, m)
		}
	}
	return out
}
