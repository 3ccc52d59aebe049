package inference

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/autoscribe/autoscribe-core/internal/extract"
)

// spanRoles maps the classifier's aggregated labels to clause roles.
var spanRoles = map[string]extract.Role{
	"TRIGGER":   extract.RoleTrigger,
	"CONDITION": extract.RoleCondition,
	"ACTION":    extract.RoleAction,
}

// ModelExtractor is the model-assisted extraction path. A local ONNX token
// classification pipeline labels utterance spans with clause roles; the
// labelled spans are then parsed by the same phrase grammar as the
// rule-based path, so both paths emit the same clause shapes.
//
// Thread Safety: safe for concurrent use once constructed.
type ModelExtractor struct {
	session  *hugot.Session
	pipeline *pipelines.TokenClassificationPipeline
	timeout  time.Duration
	logger   Logger
}

// NewModelExtractor loads the token-classification pipeline, downloading
// the model into modelDir on first use. Construction is expensive; callers
// keep one extractor for the process lifetime and Close it at shutdown.
func NewModelExtractor(modelDir, modelName string, timeout time.Duration) (*ModelExtractor, error) {
	modelPath, err := prepareModel(modelDir, modelName)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("inference: create session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "clause-segmenter",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	})
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("inference: create pipeline: %w (session cleanup: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("inference: create pipeline: %w", err)
	}

	return &ModelExtractor{
		session:  session,
		pipeline: pipeline,
		timeout:  timeout,
		logger:   noopLogger{},
	}, nil
}

// prepareModel returns the local path of the model, downloading it on
// first use. Downloaded models are stored under modelDir with the hub
// name's slashes replaced by underscores.
func prepareModel(modelDir, modelName string) (string, error) {
	local := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return "", fmt.Errorf("inference: create model directory: %w", err)
	}
	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	downloaded, err := hugot.DownloadModel(modelName, modelDir, opts)
	if err != nil {
		return "", fmt.Errorf("inference: download model %s: %w", modelName, err)
	}
	return downloaded, nil
}

// SetLogger sets the logger for the extractor.
func (m *ModelExtractor) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Close releases the inference session.
func (m *ModelExtractor) Close() error {
	if err := m.session.Destroy(); err != nil {
		return fmt.Errorf("inference: destroy session: %w", err)
	}
	return nil
}

// Extract implements extract.Extractor. The pipeline runs under a hard
// timeout; a slow model fails only this request, which then takes the
// rule-based path.
func (m *ModelExtractor) Extract(ctx context.Context, utt extract.Utterance) (*extract.IR, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	type outcome struct {
		spans []labelledSpan
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		spans, err := m.classify(utt.Text)
		done <- outcome{spans: spans, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		return m.assemble(utt, out.spans)
	}
}

// labelledSpan is one aggregated span from the token classifier.
type labelledSpan struct {
	label string
	text  string
	score float64
}

func (m *ModelExtractor) classify(text string) ([]labelledSpan, error) {
	result, err := m.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("inference: run pipeline: %w", err)
	}
	if len(result.Entities) == 0 {
		return nil, nil
	}

	spans := make([]labelledSpan, 0, len(result.Entities[0]))
	for _, ent := range result.Entities[0] {
		spans = append(spans, labelledSpan{
			label: normalizeLabel(ent.Entity),
			text:  strings.TrimSpace(ent.Word),
			score: float64(ent.Score),
		})
	}
	return spans, nil
}

// normalizeLabel strips the BIO prefixes the aggregator may leave on span
// labels.
func normalizeLabel(label string) string {
	label = strings.TrimPrefix(label, "B-")
	label = strings.TrimPrefix(label, "I-")
	return strings.ToUpper(label)
}

// assemble maps role-labelled spans onto clauses in span order. Spans the
// grammar cannot parse are skipped; when nothing parses the whole result
// is rejected so the request falls back to the rule-based path rather
// than compiling an empty document.
func (m *ModelExtractor) assemble(utt extract.Utterance, spans []labelledSpan) (*extract.IR, error) {
	ir := &extract.IR{Utterance: utt, Path: extract.PathModel}

	parsed := 0
	for _, span := range spans {
		role, ok := spanRoles[span.label]
		if !ok {
			m.logger.Debug("ignoring span with unknown label",
				"request_id", utt.ID,
				"label", span.label,
			)
			continue
		}

		nt, nc, na := len(ir.Triggers), len(ir.Conditions), len(ir.Actions)
		if !extract.ParsePhrase(span.text, role, ir) {
			m.logger.Debug("span did not parse",
				"request_id", utt.ID,
				"label", span.label,
			)
			continue
		}
		parsed++
		scaleConfidence(ir.Triggers[nt:], span.score)
		scaleConfidence(ir.Conditions[nc:], span.score)
		scaleConfidence(ir.Actions[na:], span.score)
	}

	if parsed == 0 {
		return nil, ErrNoSpans
	}
	return ir, nil
}

// scaleConfidence folds the span score into the grammar confidence so weak
// model spans surface as low-confidence diagnostics downstream.
func scaleConfidence(clauses []extract.Clause, score float64) {
	if score <= 0 || score >= 1 {
		return
	}
	for i := range clauses {
		clauses[i].Confidence *= score
	}
}
