package extract

import "context"

// Logger defines the logging interface used by the extraction engine.
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

// Extractor turns an utterance into clause IR. Implementations must be
// safe for concurrent use; each call is independent.
type Extractor interface {
	Extract(ctx context.Context, utt Utterance) (*IR, error)
}

// AvailabilityGate decides whether the model-assisted path may be
// attempted and records each attempt's outcome. Implemented by the model
// availability controller.
type AvailabilityGate interface {
	ShouldAttempt() bool
	ReportSuccess()
	ReportFailure(err error)
}

// Engine routes each request to an extraction path. The model path runs
// only when the gate allows it; any model failure, timeout, or malformed
// IR falls back to the rule-based path within the same request, so the
// model path is never load-bearing.
type Engine struct {
	rules  Extractor
	model  Extractor
	gate   AvailabilityGate
	logger Logger
}

// NewEngine creates an engine with only the rule-based path wired.
func NewEngine(rules Extractor) *Engine {
	return &Engine{
		rules:  rules,
		logger: noopLogger{},
	}
}

// SetModelPath wires the optional model-assisted extractor and its
// availability gate. Until this is called every request takes the
// rule-based path.
func (e *Engine) SetModelPath(model Extractor, gate AvailabilityGate) {
	e.model = model
	e.gate = gate
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// Extract produces the IR for one utterance. It never fails: the
// rule-based path accepts any input, and a request is never blocked on a
// probe of the model path.
func (e *Engine) Extract(ctx context.Context, utt Utterance) *IR {
	if e.model != nil && e.gate != nil && e.gate.ShouldAttempt() {
		ir, err := e.model.Extract(ctx, utt)
		switch {
		case err != nil:
			e.gate.ReportFailure(err)
			e.logger.Warn("model extraction failed, falling back to rules",
				"request_id", utt.ID,
				"error", err,
			)
		case !wellFormed(ir, utt):
			e.gate.ReportFailure(ErrMalformedIR)
			e.logger.Warn("model returned malformed ir, falling back to rules",
				"request_id", utt.ID,
			)
		default:
			e.gate.ReportSuccess()
			e.logger.Debug("model extraction succeeded",
				"request_id", utt.ID,
				"clauses", ir.ClauseCount(),
			)
			return ir
		}
	}

	ir, err := e.rules.Extract(ctx, utt)
	if err != nil || ir == nil {
		// The rule path never reports an error; the guard keeps the
		// engine's contract total regardless.
		return &IR{Utterance: utt, Path: PathRules}
	}
	return ir
}

// wellFormed rejects model output that breaks the IR contract. A rejected
// IR is discarded whole; the engine never merges paths.
func wellFormed(ir *IR, utt Utterance) bool {
	if ir == nil || ir.Path != PathModel || ir.Utterance.ID != utt.ID {
		return false
	}
	for _, group := range [][]Clause{ir.Triggers, ir.Conditions, ir.Actions} {
		for _, c := range group {
			if c.Kind == "" {
				return false
			}
		}
	}
	return true
}
