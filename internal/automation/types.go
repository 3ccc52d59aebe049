package automation

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Execution modes. Synthesised documents always use ModeSingle: a second
// firing while the first is still running is dropped.
const ModeSingle = "single"

// Trigger platforms.
const (
	TriggerState        = "state"
	TriggerTime         = "time"
	TriggerSun          = "sun"
	TriggerNumericState = "numeric_state"
)

// Condition types.
const (
	ConditionState        = "state"
	ConditionTime         = "time"
	ConditionSun          = "sun"
	ConditionNumericState = "numeric_state"
)

// Document is a complete Home Assistant automation: what fires it, what
// gates it, and what it does. The YAML rendering is the wire format Home
// Assistant accepts in automations.yaml and on its config API.
type Document struct {
	// Identity
	ID    string `yaml:"id,omitempty" json:"id,omitempty"`
	Alias string `yaml:"alias" json:"alias"`

	// Description holds the original utterance the document was built from.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Behaviour (ordered; conditions are conjunctive)
	Triggers   []Trigger   `yaml:"trigger" json:"trigger"`
	Conditions []Condition `yaml:"condition,omitempty" json:"condition,omitempty"`
	Actions    []Action    `yaml:"action" json:"action"`

	// Execution mode (default single)
	Mode string `yaml:"mode" json:"mode"`
}

// TimeString is a wall-clock time, duration, or offset field rendered as
// a double-quoted YAML scalar. Home Assistant parses automations with a
// YAML 1.1 loader that reads bare HH:MM:SS as a sexagesimal integer;
// quoting keeps these values strings.
type TimeString string

// MarshalYAML forces the double-quoted style.
func (t TimeString) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Style: yaml.DoubleQuotedStyle,
		Value: string(t),
	}, nil
}

// Trigger describes one way the automation can fire.
//
// Platform decides which fields are meaningful; the rest stay at their
// zero values and are omitted from the rendered document.
type Trigger struct {
	Platform string `yaml:"platform" json:"platform"`

	// State and numeric_state triggers
	EntityID string `yaml:"entity_id,omitempty" json:"entity_id,omitempty"`

	// State the entity must reach ("on", "off", "open")
	To string `yaml:"to,omitempty" json:"to,omitempty"`

	// How long the state must hold before firing ("00:05:00")
	For TimeString `yaml:"for,omitempty" json:"for,omitempty"`

	// Wall-clock time for time triggers ("19:30:00")
	At TimeString `yaml:"at,omitempty" json:"at,omitempty"`

	// Sun event ("sunrise", "sunset") with optional signed offset
	Event  string     `yaml:"event,omitempty" json:"event,omitempty"`
	Offset TimeString `yaml:"offset,omitempty" json:"offset,omitempty"`

	// Numeric bounds (numeric_state)
	Above *float64 `yaml:"above,omitempty" json:"above,omitempty"`
	Below *float64 `yaml:"below,omitempty" json:"below,omitempty"`
}

// Condition gates the actions after a trigger fires. All conditions on a
// document must hold (logical AND).
type Condition struct {
	Condition string `yaml:"condition" json:"condition"`

	// State and numeric_state conditions
	EntityID string     `yaml:"entity_id,omitempty" json:"entity_id,omitempty"`
	State    string     `yaml:"state,omitempty" json:"state,omitempty"`
	For      TimeString `yaml:"for,omitempty" json:"for,omitempty"`

	// Sun and time windows. Sun conditions carry an event name
	// ("sunset"), time conditions a clock time ("22:00:00").
	After        TimeString `yaml:"after,omitempty" json:"after,omitempty"`
	AfterOffset  TimeString `yaml:"after_offset,omitempty" json:"after_offset,omitempty"`
	Before       TimeString `yaml:"before,omitempty" json:"before,omitempty"`
	BeforeOffset TimeString `yaml:"before_offset,omitempty" json:"before_offset,omitempty"`

	// Numeric bounds (numeric_state)
	Above *float64 `yaml:"above,omitempty" json:"above,omitempty"`
	Below *float64 `yaml:"below,omitempty" json:"below,omitempty"`
}

// Action is one step in the automation's ordered action sequence: either a
// service call against one or more entities, or a fixed delay.
type Action struct {
	// Service in "domain.service" form ("light.turn_on", "notify.notify")
	Service string `yaml:"service,omitempty" json:"service,omitempty"`

	// Entities the service targets
	EntityID []string `yaml:"entity_id,omitempty" json:"entity_id,omitempty"`

	// Service payload ("message" for notifications)
	Data map[string]any `yaml:"data,omitempty" json:"data,omitempty"`

	// Delay step ("00:10:00"); exclusive with Service
	Delay TimeString `yaml:"delay,omitempty" json:"delay,omitempty"`
}

// IsDelay reports whether the action is a pure delay step.
func (a *Action) IsDelay() bool {
	return a.Delay != "" && a.Service == ""
}

// YAML renders the document as a Home Assistant automation.
func (d *Document) YAML() (string, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("automation: render yaml: %w", err)
	}
	return string(out), nil
}

// ObjectID derives the config-API object identifier from the alias:
// lowercased, non-alphanumeric runs collapsed to single underscores,
// capped at 40 characters.
func (d *Document) ObjectID() string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(d.Alias) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte('_')
			pending = false
		}
		b.WriteRune(r)
		if b.Len() >= maxObjectIDLength {
			break
		}
	}
	id := b.String()
	if len(id) > maxObjectIDLength {
		id = id[:maxObjectIDLength]
	}
	return strings.TrimRight(id, "_")
}

const maxObjectIDLength = 40

// EntityIDs returns every entity the document references, deduplicated,
// in trigger, condition, action order.
func (d *Document) EntityIDs() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, t := range d.Triggers {
		add(t.EntityID)
	}
	for _, c := range d.Conditions {
		add(c.EntityID)
	}
	for _, a := range d.Actions {
		for _, id := range a.EntityID {
			add(id)
		}
	}
	return out
}

// ServiceActionCount returns the number of non-delay action steps.
func (d *Document) ServiceActionCount() int {
	n := 0
	for i := range d.Actions {
		if !d.Actions[i].IsDelay() {
			n++
		}
	}
	return n
}

// DeepCopy returns a completely independent copy of the document. Used
// when a document is handed to asynchronous consumers while the original
// is still being serialised for the response.
func (d *Document) DeepCopy() *Document {
	if d == nil {
		return nil
	}
	out := *d

	if d.Triggers != nil {
		out.Triggers = make([]Trigger, len(d.Triggers))
		for i, t := range d.Triggers {
			t.Above = cloneFloatPtr(t.Above)
			t.Below = cloneFloatPtr(t.Below)
			out.Triggers[i] = t
		}
	}

	if d.Conditions != nil {
		out.Conditions = make([]Condition, len(d.Conditions))
		for i, c := range d.Conditions {
			c.Above = cloneFloatPtr(c.Above)
			c.Below = cloneFloatPtr(c.Below)
			out.Conditions[i] = c
		}
	}

	if d.Actions != nil {
		out.Actions = make([]Action, len(d.Actions))
		for i, a := range d.Actions {
			if a.EntityID != nil {
				a.EntityID = append([]string(nil), a.EntityID...)
			}
			a.Data = deepCopyData(a.Data)
			out.Actions[i] = a
		}
	}

	return &out
}

func cloneFloatPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// deepCopyData copies a service payload, recursing into nested maps and
// slices.
func deepCopyData(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return deepCopyData(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}

// formatDuration renders a duration as "HH:MM:SS", the form Home
// Assistant accepts for trigger holds and delay steps.
func formatDuration(d time.Duration) TimeString {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return TimeString(fmt.Sprintf("%02d:%02d:%02d", h, m, s))
}

// formatSignedDuration is formatDuration with a leading minus for
// negative offsets ("-00:30:00" for half an hour before a sun event).
func formatSignedDuration(d time.Duration) TimeString {
	if d < 0 {
		return "-" + formatDuration(-d)
	}
	return formatDuration(d)
}
