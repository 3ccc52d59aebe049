package resolve

import (
	"github.com/autoscribe/autoscribe-core/internal/catalog"
	"github.com/autoscribe/autoscribe-core/internal/extract"
)

// Logger defines the logging interface used by the resolver.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Resolver binds extracted mentions to catalog entities. Resolution tries
// three steps in order and stops at the first hit:
//
//  1. exact case-insensitive name match, confidence 1.0
//  2. fuzzy similarity restricted to the mention's domain hint
//  3. fuzzy similarity across the whole catalog
//
// Fuzzy candidates below the acceptance threshold are rejected; the
// mention is then unresolved with confidence 0, which downstream
// validation turns into a diagnostic. Resolution never fails a request.
//
// Thread Safety: stateless apart from configuration, safe for concurrent
// use.
type Resolver struct {
	threshold float64
	logger    Logger
}

// NewResolver creates a resolver with the given acceptance threshold.
func NewResolver(threshold float64) *Resolver {
	return &Resolver{
		threshold: threshold,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the resolver.
func (r *Resolver) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Resolve binds one mention against the snapshot.
func (r *Resolver) Resolve(snap *catalog.Snapshot, m extract.Mention) ResolvedMention {
	out := ResolvedMention{
		Mention: m,
		Method:  MethodUnresolved,
	}
	if m.Name == "" {
		return out
	}

	if e, ok := snap.FindByName(m.Name); ok {
		out.EntityID = e.EntityID
		out.Domain = e.Domain
		out.Method = MethodExact
		out.Confidence = 1.0
		return out
	}

	if m.DomainHint != "" {
		if e, score, ok := r.bestMatch(snap, m.Name, m.DomainHint); ok {
			out.EntityID = e.EntityID
			out.Domain = e.Domain
			out.Method = MethodDomainFuzzy
			out.Confidence = score
			return out
		}
	}

	if e, score, ok := r.bestMatch(snap, m.Name, ""); ok {
		out.EntityID = e.EntityID
		out.Domain = e.Domain
		out.Method = MethodFuzzy
		out.Confidence = score
		return out
	}

	r.logger.Debug("mention unresolved",
		"mention", m.Name,
		"domain_hint", m.DomainHint,
	)
	return out
}

// bestMatch returns the top lookup candidate when it reaches the
// acceptance threshold.
func (r *Resolver) bestMatch(snap *catalog.Snapshot, name, domainHint string) (catalog.Entity, float64, bool) {
	candidates := snap.Lookup(name, domainHint)
	if len(candidates) == 0 || candidates[0].Score < r.threshold {
		return catalog.Entity{}, 0, false
	}
	return candidates[0].Entity, candidates[0].Score, true
}

// ResolveIR resolves every mention in the IR against one snapshot,
// preserving clause and mention order.
func (r *Resolver) ResolveIR(snap *catalog.Snapshot, ir *extract.IR) *ResolvedIR {
	out := &ResolvedIR{
		Utterance:  ir.Utterance,
		Path:       ir.Path,
		Triggers:   r.resolveClauses(snap, ir.Triggers),
		Conditions: r.resolveClauses(snap, ir.Conditions),
		Actions:    r.resolveClauses(snap, ir.Actions),
	}
	return out
}

func (r *Resolver) resolveClauses(snap *catalog.Snapshot, clauses []extract.Clause) []ResolvedClause {
	if len(clauses) == 0 {
		return nil
	}
	out := make([]ResolvedClause, 0, len(clauses))
	for _, c := range clauses {
		rc := ResolvedClause{Clause: c}
		for _, m := range c.Mentions {
			rc.Mentions = append(rc.Mentions, r.Resolve(snap, m))
		}
		out = append(out, rc)
	}
	return out
}
