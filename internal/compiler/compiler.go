package compiler

import (
	"context"
	"time"

	"github.com/autoscribe/autoscribe-core/internal/automation"
	"github.com/autoscribe/autoscribe-core/internal/catalog"
	"github.com/autoscribe/autoscribe-core/internal/extract"
	"github.com/autoscribe/autoscribe-core/internal/resolve"
)

// Logger defines the logging interface used by the compiler.
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

// Outcome values recorded on results and history rows.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Result is everything one compile produced: the document, every
// diagnostic, and enough context to log, store and replay the request.
type Result struct {
	// RequestID is the utterance's request identifier.
	RequestID string `json:"request_id"`

	// Utterance is the raw input text.
	Utterance string `json:"utterance"`

	// Path is the extraction path that produced the IR.
	Path extract.Path `json:"path"`

	// Document is the synthesised automation. Never nil.
	Document *automation.Document `json:"document"`

	// Diagnostics holds every validation finding, errors first.
	Diagnostics automation.Diagnostics `json:"diagnostics"`

	// CatalogVersion is the snapshot version the request resolved against.
	CatalogVersion uint64 `json:"catalog_version"`

	// Duration is the wall time of the whole compile.
	Duration time.Duration `json:"-"`
}

// Outcome returns OutcomeError when any diagnostic is an error,
// OutcomeOK otherwise.
func (r *Result) Outcome() string {
	if r.Diagnostics.HasErrors() {
		return OutcomeError
	}
	return OutcomeOK
}

// Compiler owns the compile pipeline. Each request is independent; the
// only shared state is the catalog store (read once per request) and the
// availability gate inside the extraction engine.
//
// Thread Safety: safe for concurrent use; every stage is stateless per
// request.
type Compiler struct {
	engine   *extract.Engine
	resolver *resolve.Resolver
	synth    *automation.Synthesizer
	store    *catalog.Store
	events   *Events
	logger   Logger
}

// New creates a compiler over the given pipeline stages.
func New(engine *extract.Engine, resolver *resolve.Resolver, synth *automation.Synthesizer, store *catalog.Store) *Compiler {
	return &Compiler{
		engine:   engine,
		resolver: resolver,
		synth:    synth,
		store:    store,
		logger:   noopLogger{},
	}
}

// SetEvents wires the observation sinks. Without it compiles still work;
// they just go unobserved.
func (c *Compiler) SetEvents(events *Events) {
	c.events = events
}

// SetLogger sets the logger for the compiler.
func (c *Compiler) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Compile turns free text into an automation document plus diagnostics.
// It always returns a result: worst case is an empty document carrying
// "missing trigger" and "missing action" errors.
func (c *Compiler) Compile(ctx context.Context, text string) *Result {
	start := time.Now()
	utt := extract.NewUtterance(text)

	// One snapshot per request. Resolution and validation must agree on
	// which entities exist, regardless of concurrent refreshes.
	snap := c.store.Current()

	if c.events != nil {
		c.events.CompileStarted(utt.ID, utt.Text)
	}

	ir := c.engine.Extract(ctx, utt)
	rir := c.resolver.ResolveIR(snap, ir)
	doc := c.synth.Synthesize(rir)
	diags := automation.Validate(doc, rir, snap)

	res := &Result{
		RequestID:      utt.ID,
		Utterance:      utt.Text,
		Path:           ir.Path,
		Document:       doc,
		Diagnostics:    diags,
		CatalogVersion: snap.Version(),
		Duration:       time.Since(start),
	}

	errs, warnings := diags.Counts()
	c.logger.Info("compile finished",
		"request_id", res.RequestID,
		"path", res.Path,
		"alias", doc.Alias,
		"errors", errs,
		"warnings", warnings,
		"duration_ms", res.Duration.Milliseconds(),
	)

	if c.events != nil {
		c.events.CompileFinished(ctx, res)
	}
	return res
}
