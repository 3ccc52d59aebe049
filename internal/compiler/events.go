package compiler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/autoscribe/autoscribe-core/internal/catalog"
	"github.com/autoscribe/autoscribe-core/internal/history"
	"github.com/autoscribe/autoscribe-core/internal/inference"
	"github.com/autoscribe/autoscribe-core/internal/infrastructure/mqtt"
)

// eventQoS is the QoS level for pipeline event publishes. At-least-once
// is enough; events are observability, not control flow.
const eventQoS = 1

// Publisher sends pipeline events to the MQTT broker.
// Implemented by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// Broadcaster pushes pipeline events to WebSocket subscribers.
// Implemented by *api.Hub.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// MetricsWriter records pipeline measurements in the time-series store.
// Implemented by *influxdb.Client. Writes are asynchronous and batched;
// failures surface through the client's own error callback.
type MetricsWriter interface {
	WriteCompileMetric(path, outcome string, duration time.Duration, errorCount, warningCount int)
	WriteCatalogMetric(entities int, version uint64)
}

// WebSocket event channels.
const (
	ChannelCompileStarted      = "compile.started"
	ChannelCompileFinished     = "compile.finished"
	ChannelCatalogRefreshed    = "catalog.refreshed"
	ChannelAvailabilityChanged = "availability.changed"
)

// CompileEvent is the summary published after each compile, to MQTT and
// to WebSocket subscribers. It deliberately omits the document itself;
// consumers that want the document fetch it over the HTTP API.
type CompileEvent struct {
	RequestID    string `json:"request_id"`
	Alias        string `json:"alias"`
	Path         string `json:"path"`
	Outcome      string `json:"outcome"`
	ErrorCount   int    `json:"error_count"`
	WarningCount int    `json:"warning_count"`
	DurationMS   int64  `json:"duration_ms"`
	Timestamp    string `json:"timestamp"`
}

// CatalogEvent announces a completed snapshot refresh.
type CatalogEvent struct {
	Entities  int    `json:"entities"`
	Version   uint64 `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Events fans compile pipeline outcomes out to the configured sinks.
// Every sink is optional and every delivery is best-effort: a failure is
// logged, the rest of the sinks still run, and the compile that produced
// the event is unaffected.
//
// Thread Safety: sinks are set during wiring, before requests flow;
// delivery methods are safe for concurrent use.
type Events struct {
	publisher   Publisher
	broadcaster Broadcaster
	metrics     MetricsWriter
	history     history.Repository
	logger      Logger
}

// NewEvents creates an empty fan-out; wire sinks with the Set methods.
func NewEvents() *Events {
	return &Events{logger: noopLogger{}}
}

// SetPublisher wires the MQTT event sink.
func (e *Events) SetPublisher(p Publisher) { e.publisher = p }

// SetBroadcaster wires the WebSocket event sink.
func (e *Events) SetBroadcaster(b Broadcaster) { e.broadcaster = b }

// SetMetrics wires the time-series metrics sink.
func (e *Events) SetMetrics(m MetricsWriter) { e.metrics = m }

// SetHistory wires the compile history repository.
func (e *Events) SetHistory(repo history.Repository) { e.history = repo }

// SetLogger sets the logger for the fan-out.
func (e *Events) SetLogger(logger Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// CompileStarted announces a new request to WebSocket subscribers so UIs
// can show progress. It is not published to MQTT or recorded anywhere.
func (e *Events) CompileStarted(requestID, utterance string) {
	if e.broadcaster == nil {
		return
	}
	e.broadcaster.Broadcast(ChannelCompileStarted, map[string]string{
		"request_id": requestID,
		"utterance":  utterance,
	})
}

// CompileFinished delivers one compile result to every configured sink.
func (e *Events) CompileFinished(ctx context.Context, res *Result) {
	errs, warnings := res.Diagnostics.Counts()
	event := CompileEvent{
		RequestID:    res.RequestID,
		Alias:        res.Document.Alias,
		Path:         string(res.Path),
		Outcome:      res.Outcome(),
		ErrorCount:   errs,
		WarningCount: warnings,
		DurationMS:   res.Duration.Milliseconds(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}

	if e.history != nil {
		entry := &history.Entry{
			ID:           res.RequestID,
			Utterance:    res.Utterance,
			Alias:        res.Document.Alias,
			Path:         string(res.Path),
			ErrorCount:   errs,
			WarningCount: warnings,
			DurationMS:   int(res.Duration.Milliseconds()),
		}
		if err := e.history.Record(ctx, entry); err != nil {
			e.logger.Warn("history record failed",
				"request_id", res.RequestID,
				"error", err,
			)
		}
	}

	e.publish(mqtt.Topics{}.EventCompile(), event, false)

	if e.broadcaster != nil {
		e.broadcaster.Broadcast(ChannelCompileFinished, event)
	}

	if e.metrics != nil {
		e.metrics.WriteCompileMetric(string(res.Path), res.Outcome(), res.Duration, errs, warnings)
	}
}

// CatalogRefreshed announces a snapshot replacement. Wired to the catalog
// store's replace callback.
func (e *Events) CatalogRefreshed(snap *catalog.Snapshot) {
	event := CatalogEvent{
		Entities:  snap.Len(),
		Version:   snap.Version(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	e.publish(mqtt.Topics{}.EventCatalog(), event, false)

	if e.broadcaster != nil {
		e.broadcaster.Broadcast(ChannelCatalogRefreshed, event)
	}

	if e.metrics != nil {
		e.metrics.WriteCatalogMetric(snap.Len(), snap.Version())
	}
}

// AvailabilityChanged announces a model availability transition. Wired to
// the controller's transition callback. Retained on MQTT so late
// subscribers see the current state.
func (e *Events) AvailabilityChanged(status inference.Status) {
	e.publish(mqtt.Topics{}.EventAvailability(), status, true)

	if e.broadcaster != nil {
		e.broadcaster.Broadcast(ChannelAvailabilityChanged, status)
	}
}

// publish marshals and publishes one event, best-effort.
func (e *Events) publish(topic string, event any, retained bool) {
	if e.publisher == nil || !e.publisher.IsConnected() {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("event marshal failed", "topic", topic, "error", err)
		return
	}
	if err := e.publisher.Publish(topic, payload, eventQoS, retained); err != nil {
		e.logger.Warn("event publish failed", "topic", topic, "error", err)
	}
}
