// Package compiler runs the full natural-language-to-automation pipeline
// and fans the outcome out to the observation sinks.
//
// One compile is one pass through four stages, each stage a separate
// package with no knowledge of its neighbours:
//
//	text ──► extract.Engine ──► resolve.Resolver ──► automation.Synthesizer ──► automation.Validate
//	              │                    │
//	     availability gate      catalog snapshot
//
// The compiler pins one catalog snapshot per request at the start, so
// resolution and validation see the same entity set even when a refresh
// lands mid-request. A compile never fails: malformed or nonsensical
// input produces a document with error diagnostics, not an error.
//
// After each compile the result is handed to Events, which records
// history, publishes an MQTT event, broadcasts to WebSocket subscribers
// and writes an InfluxDB point. Every sink is best-effort; a sink failure
// is logged and never surfaces to the caller.
package compiler
