package automation

import (
	"github.com/autoscribe/autoscribe-core/internal/extract"
	"github.com/autoscribe/autoscribe-core/internal/resolve"
)

// Logger defines the logging interface used by the synthesizer.
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

// Synthesizer turns a resolved IR into an automation document.
//
// Synthesis is best-effort and never fails: clauses that cannot become a
// valid document part (a state trigger whose entity never resolved, a
// service call with no resolved targets) are skipped, and validation
// reports what is missing. Clause order is preserved within each role;
// action order carries execution semantics.
//
// Thread Safety: safe for concurrent use.
type Synthesizer struct {
	aliases *AliasGenerator
	logger  Logger
}

// NewSynthesizer creates a synthesizer. A nil alias generator disables
// session uniqueness; aliases are still derived per document.
func NewSynthesizer(aliases *AliasGenerator) *Synthesizer {
	return &Synthesizer{
		aliases: aliases,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the synthesizer.
func (s *Synthesizer) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Synthesize builds the automation document for a resolved IR. The
// document ID is the request ID, so saved automations trace back to the
// compile that produced them.
func (s *Synthesizer) Synthesize(rir *resolve.ResolvedIR) *Document {
	doc := &Document{
		ID:          rir.Utterance.ID,
		Alias:       s.reserveAlias(rir.Utterance.Text),
		Description: rir.Utterance.Text,
		Mode:        ModeSingle,
	}

	for i := range rir.Triggers {
		t, ok := s.buildTrigger(&rir.Triggers[i])
		if !ok {
			s.logger.Debug("trigger clause skipped",
				"kind", rir.Triggers[i].Clause.Kind,
				"utterance_id", rir.Utterance.ID)
			continue
		}
		doc.Triggers = append(doc.Triggers, t)
	}

	for i := range rir.Conditions {
		c, ok := buildCondition(&rir.Conditions[i])
		if !ok {
			s.logger.Debug("condition clause skipped",
				"kind", rir.Conditions[i].Clause.Kind,
				"utterance_id", rir.Utterance.ID)
			continue
		}
		doc.Conditions = append(doc.Conditions, c)
	}

	doc.Actions = s.buildActions(rir)
	return doc
}

func (s *Synthesizer) reserveAlias(text string) string {
	if s.aliases == nil {
		return buildAlias(text)
	}
	return s.aliases.Reserve(text)
}

// buildTrigger maps one trigger clause onto a trigger platform. Clauses
// that need an entity but have no resolved mention yield nothing.
func (s *Synthesizer) buildTrigger(rc *resolve.ResolvedClause) (Trigger, bool) {
	cl := &rc.Clause
	switch cl.Kind {
	case extract.KindStateChange:
		entity, ok := primaryEntity(rc)
		if !ok {
			return Trigger{}, false
		}
		t := Trigger{Platform: TriggerState, EntityID: entity, To: cl.TargetState}
		if cl.Offset > 0 {
			t.For = formatDuration(cl.Offset)
		}
		return t, true

	case extract.KindTimeOfDay:
		return Trigger{Platform: TriggerTime, At: TimeString(cl.At)}, true

	case extract.KindSunEvent:
		t := Trigger{Platform: TriggerSun, Event: cl.SunEvent}
		if cl.Offset != 0 {
			t.Offset = formatSignedDuration(cl.Offset)
		}
		return t, true

	case extract.KindNumericThreshold:
		entity, ok := primaryEntity(rc)
		if !ok {
			return Trigger{}, false
		}
		return Trigger{
			Platform: TriggerNumericState,
			EntityID: entity,
			Above:    cloneFloatPtr(cl.Above),
			Below:    cloneFloatPtr(cl.Below),
		}, true
	}

	return Trigger{}, false
}

// buildCondition maps one condition clause onto a condition type.
func buildCondition(rc *resolve.ResolvedClause) (Condition, bool) {
	cl := &rc.Clause
	switch cl.Kind {
	case extract.KindStateChange:
		entity, ok := primaryEntity(rc)
		if !ok {
			return Condition{}, false
		}
		c := Condition{Condition: ConditionState, EntityID: entity, State: cl.TargetState}
		if cl.Offset > 0 {
			c.For = formatDuration(cl.Offset)
		}
		return c, true

	case extract.KindSunEvent:
		c := Condition{Condition: ConditionSun}
		var offset TimeString
		if cl.Offset != 0 {
			offset = formatSignedDuration(cl.Offset)
		}
		if cl.SunBefore {
			c.Before = TimeString(cl.SunEvent)
			c.BeforeOffset = offset
		} else {
			c.After = TimeString(cl.SunEvent)
			c.AfterOffset = offset
		}
		return c, true

	case extract.KindTimeOfDay:
		c := Condition{Condition: ConditionTime}
		if cl.SunBefore {
			c.Before = TimeString(cl.At)
		} else {
			c.After = TimeString(cl.At)
		}
		return c, true

	case extract.KindNumericThreshold:
		entity, ok := primaryEntity(rc)
		if !ok {
			return Condition{}, false
		}
		return Condition{
			Condition: ConditionNumericState,
			EntityID:  entity,
			Above:     cloneFloatPtr(cl.Above),
			Below:     cloneFloatPtr(cl.Below),
		}, true
	}

	return Condition{}, false
}

// buildActions walks the action clauses in order, emitting delay steps
// for relative offsets and service calls for everything that resolved.
func (s *Synthesizer) buildActions(rir *resolve.ResolvedIR) []Action {
	var actions []Action
	for i := range rir.Actions {
		rc := &rir.Actions[i]
		cl := &rc.Clause
		switch cl.Kind {
		case extract.KindRelativeOffset:
			if cl.Offset > 0 {
				actions = append(actions, Action{Delay: formatDuration(cl.Offset)})
			}

		case extract.KindServiceCall:
			if cl.Service == extract.ServiceNotify {
				actions = append(actions, notifyAction(cl, rir.Utterance.Text))
				continue
			}
			entities, domains := resolvedTargets(rc)
			if len(entities) == 0 {
				s.logger.Debug("service action skipped, no resolved targets",
					"service", cl.Service,
					"utterance_id", rir.Utterance.ID)
				continue
			}
			actions = append(actions, Action{
				Service:  serviceName(domains, cl.Service),
				EntityID: entities,
			})
		}
	}

	// A document that only waits does nothing; drop pure-delay sequences.
	if len(actions) > 0 && allDelays(actions) {
		return nil
	}
	return actions
}

// notifyAction builds a notification step. An empty message falls back to
// naming the utterance so the notification still says something useful.
func notifyAction(cl *extract.Clause, utteranceText string) Action {
	msg := cl.Message
	if msg == "" {
		msg = "Automation triggered: " + utteranceText
	}
	return Action{
		Service: "notify.notify",
		Data:    map[string]any{"message": msg},
	}
}

// serviceName picks the service domain: the shared entity domain when the
// targets agree, the homeassistant meta-domain when they do not.
func serviceName(domains []string, service string) string {
	if len(domains) == 1 {
		return domains[0] + "." + service
	}
	return "homeassistant." + service
}

// primaryEntity returns the first resolved mention's entity.
func primaryEntity(rc *resolve.ResolvedClause) (string, bool) {
	for i := range rc.Mentions {
		if rc.Mentions[i].Resolved() {
			return rc.Mentions[i].EntityID, true
		}
	}
	return "", false
}

// resolvedTargets collects the resolved entities of a clause,
// deduplicated in mention order, plus the distinct domains they span.
func resolvedTargets(rc *resolve.ResolvedClause) (entities, domains []string) {
	seenEntity := make(map[string]bool)
	seenDomain := make(map[string]bool)
	for i := range rc.Mentions {
		rm := &rc.Mentions[i]
		if !rm.Resolved() || seenEntity[rm.EntityID] {
			continue
		}
		seenEntity[rm.EntityID] = true
		entities = append(entities, rm.EntityID)
		if !seenDomain[rm.Domain] {
			seenDomain[rm.Domain] = true
			domains = append(domains, rm.Domain)
		}
	}
	return entities, domains
}

func allDelays(actions []Action) bool {
	for i := range actions {
		if !actions[i].IsDelay() {
			return false
		}
	}
	return true
}
