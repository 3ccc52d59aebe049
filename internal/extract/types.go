package extract

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Path identifies which extraction strategy produced an IR.
type Path string

// Extraction paths.
const (
	// PathRules is the keyword/pattern extraction path.
	PathRules Path = "rules"

	// PathModel is the local-model-assisted extraction path.
	PathModel Path = "model"
)

// Role identifies the position of a clause within an automation.
type Role string

// Clause roles.
const (
	RoleTrigger   Role = "trigger"
	RoleCondition Role = "condition"
	RoleAction    Role = "action"
)

// ClauseKind identifies what a clause describes.
type ClauseKind string

// Clause kinds.
const (
	// KindStateChange is an entity reaching a target state ("when motion is detected").
	KindStateChange ClauseKind = "state_change"

	// KindTimeOfDay is a literal wall-clock time ("at 07:30").
	KindTimeOfDay ClauseKind = "time_of_day"

	// KindRelativeOffset is a duration relative to the surrounding clause
	// ("wait 10 minutes").
	KindRelativeOffset ClauseKind = "relative_offset"

	// KindSunEvent is a sunrise/sunset reference with optional offset.
	KindSunEvent ClauseKind = "sun_event"

	// KindNumericThreshold is a numeric comparison ("above 25").
	KindNumericThreshold ClauseKind = "numeric_threshold"

	// KindServiceCall is a device action ("turn on the lights").
	KindServiceCall ClauseKind = "service_call"
)

// Services recognised by the rule-based extractor.
const (
	ServiceTurnOn  = "turn_on"
	ServiceTurnOff = "turn_off"
	ServiceToggle  = "toggle"
	ServiceNotify  = "notify"
)

// Sun events.
const (
	SunEventSunrise = "sunrise"
	SunEventSunset  = "sunset"
)

// Utterance is the immutable free-text input to one compile request.
type Utterance struct {
	// ID is the request identifier carried through the pipeline.
	ID string `json:"id"`

	// Text is the raw description as entered by the user.
	Text string `json:"text"`
}

// NewUtterance wraps the given text with a fresh request identifier.
func NewUtterance(text string) Utterance {
	return Utterance{
		ID:   uuid.New().String(),
		Text: strings.TrimSpace(text),
	}
}

// Mention is a span of text believed to reference a controllable entity.
type Mention struct {
	// Text is the raw span as it appeared in the utterance.
	Text string `json:"text"`

	// Name is the cleaned candidate entity name used for resolution.
	Name string `json:"name"`

	// DomainHint narrows resolution to one entity domain when the wording
	// implies it ("lights" implies light). Empty when not derivable.
	DomainHint string `json:"domain_hint,omitempty"`

	// Confidence is the extractor's confidence that this span names an
	// entity at all, in [0,1].
	Confidence float64 `json:"confidence"`
}

// Clause is one trigger, condition, or action extracted from the utterance.
//
// Kind decides which parameter fields are meaningful; the rest stay at
// their zero values.
type Clause struct {
	Kind     ClauseKind `json:"kind"`
	Mentions []Mention  `json:"mentions,omitempty"`

	// TargetState is the state a state-change clause watches for or a
	// condition requires ("on", "off", "home").
	TargetState string `json:"target_state,omitempty"`

	// Service is the device action of a service-call clause.
	Service string `json:"service,omitempty"`

	// At is the wall-clock time of a time-of-day clause, "HH:MM:SS".
	At string `json:"at,omitempty"`

	// SunEvent is "sunrise" or "sunset" for sun-event clauses.
	SunEvent string `json:"sun_event,omitempty"`

	// SunBefore marks a sun-event condition as "before" the event rather
	// than "after" it.
	SunBefore bool `json:"sun_before,omitempty"`

	// Offset is the signed offset of a sun-event clause, the duration of a
	// relative-offset clause, or the hold a state clause must persist for.
	Offset time.Duration `json:"offset,omitempty"`

	// Above/Below are the bounds of a numeric-threshold clause.
	Above *float64 `json:"above,omitempty"`
	Below *float64 `json:"below,omitempty"`

	// Message is the notification text of a notify service call.
	Message string `json:"message,omitempty"`

	// Confidence is the extractor's confidence in the clause as a whole.
	Confidence float64 `json:"confidence"`
}

// IR is the intermediate representation of one utterance: clauses grouped
// by role with insertion order preserved. Action order carries sequential
// execution semantics; conditions are conjunctive.
type IR struct {
	Utterance  Utterance `json:"utterance"`
	Path       Path      `json:"path"`
	Triggers   []Clause  `json:"triggers"`
	Conditions []Clause  `json:"conditions"`
	Actions    []Clause  `json:"actions"`
}

// ClauseCount returns the total number of clauses across all roles.
func (ir *IR) ClauseCount() int {
	return len(ir.Triggers) + len(ir.Conditions) + len(ir.Actions)
}

// AllMentions returns every mention in role order (triggers, conditions,
// actions), preserving clause order within each role.
func (ir *IR) AllMentions() []Mention {
	var out []Mention
	for _, c := range ir.Triggers {
		out = append(out, c.Mentions...)
	}
	for _, c := range ir.Conditions {
		out = append(out, c.Mentions...)
	}
	for _, c := range ir.Actions {
		out = append(out, c.Mentions...)
	}
	return out
}
