// Package extract turns free-text automation descriptions into an
// intermediate representation (IR) of trigger, condition, and action
// clauses.
//
// Two extraction paths produce the same IR shape:
//
//   - RuleExtractor: keyword and pattern matching over normalised text.
//     Deterministic, dependency-free, always available.
//   - A model-assisted extractor (internal/inference) that runs a local
//     token-classification model under a hard timeout.
//
// The Engine selects the path per request by consulting an
// AvailabilityGate. Any model failure falls back to the rule path within
// the same request; a request never blocks on model recovery and the
// engine never mixes clauses from both paths.
//
// # IR Contract
//
//   - Clauses are grouped by role; insertion order within each role is
//     meaningful (actions execute sequentially, conditions are
//     conjunctive).
//   - Wording the extractor cannot interpret is kept as a low-confidence
//     Mention on the nearest clause rather than dropped, so validation
//     can surface it.
//   - Mentions carry a cleaned candidate name and a domain hint when the
//     wording implies one ("lights" implies the light domain).
//
// # Usage
//
//	engine := extract.NewEngine(extract.NewRuleExtractor())
//	engine.SetLogger(logger)
//
//	ir := engine.Extract(ctx, extract.NewUtterance(text))
package extract
