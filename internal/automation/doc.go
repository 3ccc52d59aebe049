// Package automation synthesises Home Assistant automation documents from
// resolved intermediate representations and validates the result.
//
// A document is the final artefact of a compile: triggers, conditions and
// actions in Home Assistant's schema, ready to render as YAML. Synthesis
// never fails; whatever could not become a document part surfaces as a
// diagnostic instead.
//
// Pipeline position:
//
//	┌──────────────────────────────────────────────────────────┐
//	│              Synthesizer (synthesize.go)                  │
//	│  resolved IR → Document                                   │
//	│   - clause kinds map onto trigger platforms,              │
//	│     condition types and action steps                      │
//	│   - relative offsets become explicit delay steps          │
//	│   - unresolvable parts are skipped, never guessed         │
//	│   - alias reserved via AliasGenerator (alias.go)          │
//	└──────────────────────────────────────────────────────────┘
//	                          │
//	                          ▼
//	┌──────────────────────────────────────────────────────────┐
//	│                Validate (validation.go)                   │
//	│  Document + resolution outcomes → Diagnostics             │
//	│   - structural errors: no trigger, no action,             │
//	│     entity vanished from the catalog                      │
//	│   - warnings: unresolved mentions, low-confidence         │
//	│     fuzzy matches                                         │
//	└──────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Document: complete automation (alias, triggers, conditions,
//     actions, mode) with YAML rendering
//   - Synthesizer: resolved IR → Document, best-effort
//   - AliasGenerator: session-unique aliases with a TTL cache
//   - Diagnostic: one validation finding (severity, code, message)
//
// # Thread Safety
//
// Synthesizer and AliasGenerator are safe for concurrent use. Documents
// are plain values; DeepCopy exists for handing them to asynchronous
// consumers.
//
// # Usage
//
//	aliases := automation.NewAliasGenerator(30 * time.Minute)
//	synth := automation.NewSynthesizer(aliases)
//	synth.SetLogger(log)
//
//	doc := synth.Synthesize(resolvedIR)
//	diags := automation.Validate(doc, resolvedIR, snapshot)
//	yamlText, err := doc.YAML()
package automation
