package extract

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// RuleExtractor is the deterministic keyword extraction path. It matches
// patterns over normalised text (lower-cased, punctuation stripped) and
// needs no external collaborators, so it is the terminal fallback when the
// model path is unavailable.
//
// Thread Safety: stateless, safe for concurrent use.
type RuleExtractor struct{}

// NewRuleExtractor creates a rule-based extractor.
func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

// Extract implements Extractor. It never returns an error: wording the
// rules cannot interpret yields an IR with fewer clauses, down to none,
// and unrecognised fragments are kept as low-confidence mentions on the
// nearest clause so validation can surface them.
func (x *RuleExtractor) Extract(_ context.Context, utt Utterance) (*IR, error) {
	ir := &IR{Utterance: utt, Path: PathRules}

	last := Role("")
	for _, seg := range splitSegments(normalize(utt.Text)) {
		last = x.parseSegment(seg, ir, last)
	}
	resolveAnaphora(ir)

	return ir, nil
}

var segmentSplitPattern = regexp.MustCompile(`[,;.]\s+|[,;.]+$|\s+(?:and then|and|then|but)\s+`)

// normalize lower-cases the text and strips punctuation, keeping colons
// for clock times and [,;.] for segmentation.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == ':', r == ',', r == ';', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// splitSegments cuts normalised text at connectives and punctuation into
// independently parseable fragments.
func splitSegments(text string) []string {
	parts := segmentSplitPattern.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// leadingMarkers classify a segment by its opening words. Condition
// markers come first so "only if" is not consumed by the bare "if" rule.
var leadingMarkers = []struct {
	prefix string
	role   Role
}{
	{"but only if ", RoleCondition},
	{"only if ", RoleCondition},
	{"only when ", RoleCondition},
	{"as long as ", RoleCondition},
	{"when ", RoleTrigger},
	{"whenever ", RoleTrigger},
	{"every time ", RoleTrigger},
	{"once ", RoleTrigger},
	{"if ", RoleTrigger},
}

// embeddedMarkers split an action from a trailing trigger or condition
// ("turn on the lights when motion is detected"). The " at " marker only
// applies when a clock time or sun event follows it.
var embeddedMarkers = []struct {
	text         string
	role         Role
	temporalOnly bool
}{
	{text: " but only if ", role: RoleCondition},
	{text: " only if ", role: RoleCondition},
	{text: " only when ", role: RoleCondition},
	{text: " as long as ", role: RoleCondition},
	{text: " whenever ", role: RoleTrigger},
	{text: " when ", role: RoleTrigger},
	{text: " every time ", role: RoleTrigger},
	{text: " if ", role: RoleTrigger},
	{text: " at ", role: RoleTrigger, temporalOnly: true},
}

// parseSegment classifies one fragment and appends whatever clauses it
// yields. last is the role of the previous fragment so marker-free
// continuations ("... and the door opens") stay in role.
func (x *RuleExtractor) parseSegment(seg string, ir *IR, last Role) Role {
	seg = strings.TrimSpace(seg)
	seg = trimAnyPrefix(seg, "and ", "then ", "but ", "also ")
	if seg == "" || isFillerOnly(seg) {
		return last
	}

	for _, m := range leadingMarkers {
		rest, ok := strings.CutPrefix(seg, m.prefix)
		if !ok {
			continue
		}
		// A verb later in the fragment starts the action part: "when
		// motion is detected turn on the lights".
		if idx, found := indexActionVerb(rest); found && idx > 0 {
			x.parsePhraseOrLeftover(strings.TrimSpace(rest[:idx]), m.role, ir)
			return x.parseSegment(rest[idx:], ir, m.role)
		}
		x.parsePhraseOrLeftover(rest, m.role, ir)
		return m.role
	}

	for _, m := range embeddedMarkers {
		idx := strings.Index(seg, m.text)
		if idx < 0 {
			continue
		}
		post := strings.TrimSpace(seg[idx+len(m.text):])
		if m.temporalOnly && !looksTemporal(post) {
			continue
		}
		x.parseSegment(seg[:idx], ir, last)
		if vi, found := indexActionVerb(post); found && vi > 0 {
			x.parsePhraseOrLeftover(strings.TrimSpace(post[:vi]), m.role, ir)
			return x.parseSegment(post[vi:], ir, m.role)
		}
		x.parsePhraseOrLeftover(post, m.role, ir)
		return m.role
	}

	// Verb-led fragments are actions; a temporal lead-in becomes the
	// trigger ("after sunset turn on the lights").
	if idx, found := indexActionVerb(seg); found {
		if idx > 0 {
			prefix := strings.TrimSpace(seg[:idx])
			if c, ok := parseTemporalClause(prefix); ok {
				ir.Triggers = append(ir.Triggers, c)
			} else if !isFillerOnly(prefix) {
				attachLeftover(prefix, ir, last)
			}
			seg = seg[idx:]
		}
		if x.parseActionPhrase(seg, ir) {
			return RoleAction
		}
	}

	// Marker-free continuation of the previous role.
	if last == RoleTrigger || last == RoleCondition {
		if x.parsePhrase(seg, last, ir) {
			return last
		}
	}

	// Bare temporal fragments trigger ("at 07:30", "every morning").
	if c, ok := parseTemporalClause(seg); ok {
		ir.Triggers = append(ir.Triggers, c)
		return RoleTrigger
	}

	attachLeftover(seg, ir, last)
	return last
}

// parsePhrase parses a marker-free fragment in the given role.
func (x *RuleExtractor) parsePhrase(seg string, role Role, ir *IR) bool {
	switch role {
	case RoleTrigger:
		return x.parseTriggerPhrase(seg, ir)
	case RoleCondition:
		return x.parseConditionPhrase(seg, ir)
	case RoleAction:
		return x.parseActionPhrase(seg, ir)
	}
	return false
}

func (x *RuleExtractor) parsePhraseOrLeftover(seg string, role Role, ir *IR) {
	if !x.parsePhrase(seg, role, ir) {
		attachLeftover(seg, ir, role)
	}
}

// ParsePhrase parses a single phrase whose role is already known, appending
// any clauses it yields to ir. The model-assisted path segments utterances
// with a token classifier and reuses this grammar at the phrase level, so
// both paths emit the same clause shapes.
func ParsePhrase(phrase string, role Role, ir *IR) bool {
	seg := normalize(phrase)
	seg = trimAnyPrefix(seg, "and ", "then ", "but ", "also ")
	for _, m := range leadingMarkers {
		if rest, ok := strings.CutPrefix(seg, m.prefix); ok {
			seg = rest
			break
		}
	}
	if seg == "" || isFillerOnly(seg) {
		return false
	}
	var x RuleExtractor
	return x.parsePhrase(seg, role, ir)
}

// parseTriggerPhrase parses the wording after a trigger marker. A sun
// reference alone is the trigger; combined with further wording it becomes
// a condition on the remaining trigger ("when motion is detected after
// sunset").
func (x *RuleExtractor) parseTriggerPhrase(phrase string, ir *IR) bool {
	phrase = strings.TrimSpace(phrase)
	phrase = trimAnyPrefix(phrase, "there is ", "there s ", "it is ", "it s ")
	if phrase == "" {
		return false
	}

	if p, ok := findSunPhrase(phrase); ok {
		rest := joinFragments(phrase[:p.start], phrase[p.end:])
		rest = trimAnyPrefix(rest, "it is ", "it s ")
		if isFillerOnly(rest) {
			rest = ""
		}
		if rest == "" {
			ir.Triggers = append(ir.Triggers, Clause{
				Kind:       KindSunEvent,
				SunEvent:   p.event,
				Offset:     p.offset,
				Confidence: 0.95,
			})
			return true
		}
		ir.Conditions = append(ir.Conditions, Clause{
			Kind:       KindSunEvent,
			SunEvent:   p.event,
			SunBefore:  p.before,
			Offset:     p.offset,
			Confidence: 0.9,
		})
		phrase = rest
	}

	// "stays open for 5 minutes" carries the hold duration on the trigger.
	var held time.Duration
	phrase, held = cutHoldDuration(phrase)

	if above, below, idx, ok := parseNumericThreshold(phrase); ok {
		subject := strings.TrimSpace(phrase[:idx])
		subject = trimAnySuffix(subject, " rises", " drops", " goes", " gets", " falls", " climbs", " is")
		if m, mok := mentionFromObject(subject); mok {
			if m.DomainHint == "" {
				m.DomainHint = "sensor"
			}
			ir.Triggers = append(ir.Triggers, Clause{
				Kind:       KindNumericThreshold,
				Mentions:   []Mention{m},
				Above:      above,
				Below:      below,
				Offset:     held,
				Confidence: 0.9,
			})
			return true
		}
	}

	if c, ok := parseStatePhrase(phrase); ok {
		c.Offset = held
		ir.Triggers = append(ir.Triggers, c)
		return true
	}

	if at, ok := parseClockTime(phrase); ok {
		ir.Triggers = append(ir.Triggers, Clause{
			Kind:       KindTimeOfDay,
			At:         at,
			Confidence: 0.95,
		})
		return true
	}

	// Bare noun phrase: assume an activation trigger ("whenever motion").
	if m, ok := mentionFromObject(phrase); ok {
		m.Confidence = 0.5
		ir.Triggers = append(ir.Triggers, Clause{
			Kind:        KindStateChange,
			Mentions:    []Mention{m},
			TargetState: coverAdjust("on", m.DomainHint),
			Confidence:  0.5,
		})
		return true
	}

	return false
}

// parseConditionPhrase parses the wording after a condition marker.
func (x *RuleExtractor) parseConditionPhrase(phrase string, ir *IR) bool {
	phrase = strings.TrimSpace(phrase)
	phrase = trimAnyPrefix(phrase, "it is ", "it s ", "the time is ")
	if phrase == "" {
		return false
	}

	if p, ok := findSunPhrase(phrase); ok {
		ir.Conditions = append(ir.Conditions, Clause{
			Kind:       KindSunEvent,
			SunEvent:   p.event,
			SunBefore:  p.before,
			Offset:     p.offset,
			Confidence: 0.9,
		})
		return true
	}

	var held time.Duration
	phrase, held = cutHoldDuration(phrase)

	if above, below, idx, ok := parseNumericThreshold(phrase); ok {
		subject := strings.TrimSpace(phrase[:idx])
		subject = trimAnySuffix(subject, " rises", " drops", " goes", " gets", " falls", " climbs", " is")
		if m, mok := mentionFromObject(subject); mok {
			if m.DomainHint == "" {
				m.DomainHint = "sensor"
			}
			ir.Conditions = append(ir.Conditions, Clause{
				Kind:       KindNumericThreshold,
				Mentions:   []Mention{m},
				Above:      above,
				Below:      below,
				Confidence: 0.9,
			})
			return true
		}
	}

	if c, ok := parseStatePhrase(phrase); ok {
		c.Offset = held
		ir.Conditions = append(ir.Conditions, c)
		return true
	}

	return false
}

// cutHoldDuration removes a "for N minutes" qualifier and returns its
// value. Other duration contexts are left in place.
func cutHoldDuration(phrase string) (string, time.Duration) {
	m := durationContextPattern.FindStringSubmatchIndex(phrase)
	if m == nil || phrase[m[2]:m[3]] != "for" {
		return phrase, 0
	}
	d, ok := parseDuration(phrase[m[4]:m[5]])
	if !ok {
		return phrase, 0
	}
	return joinFragments(phrase[:m[0]], phrase[m[1]:]), d
}

// Connector words linking a subject to its state.
var stateConnectors = []string{
	" is ", " are ", " becomes ", " turns ", " goes ", " gets ",
	" stays ", " remains ", " has been ", " have been ",
}

// stateWords maps state wording to canonical entity states.
var stateWords = map[string]string{
	"on":        "on",
	"off":       "off",
	"open":      "on",
	"opened":    "on",
	"closed":    "off",
	"shut":      "off",
	"detected":  "on",
	"triggered": "on",
	"active":    "on",
	"occupied":  "on",
	"clear":     "off",
	"empty":     "off",
	"home":      "home",
	"away":      "not_home",
	"gone":      "not_home",
	"locked":    "locked",
	"unlocked":  "unlocked",
}

// verbStates are subject-final verb forms ("the door opens").
var verbStates = []struct {
	suffix string
	state  string
}{
	{" opens", "on"},
	{" closes", "off"},
	{" detected", "on"},
	{" arrives", "home"},
	{" comes home", "home"},
	{" leaves", "not_home"},
}

// leadingTriggerVerbs are verb-first forms ("someone rings the doorbell").
var leadingTriggerVerbs = map[string]string{
	"rings":   "on",
	"presses": "on",
	"pushes":  "on",
	"opens":   "on",
	"closes":  "off",
}

// parseStatePhrase recognises subject/state wording shared by triggers and
// conditions.
func parseStatePhrase(phrase string) (Clause, bool) {
	for _, conn := range stateConnectors {
		idx := strings.Index(phrase, conn)
		if idx < 0 {
			continue
		}
		m, mok := mentionFromObject(phrase[:idx])
		if !mok {
			continue
		}
		state, sok := stateFromWords(phrase[idx+len(conn):], m.DomainHint)
		if !sok {
			continue
		}
		return Clause{
			Kind:        KindStateChange,
			Mentions:    []Mention{m},
			TargetState: state,
			Confidence:  0.85,
		}, true
	}

	for _, v := range verbStates {
		subject, ok := strings.CutSuffix(phrase, v.suffix)
		if !ok {
			continue
		}
		if m, mok := mentionFromObject(subject); mok {
			return Clause{
				Kind:        KindStateChange,
				Mentions:    []Mention{m},
				TargetState: coverAdjust(v.state, m.DomainHint),
				Confidence:  0.85,
			}, true
		}
	}

	rest := trimAnyPrefix(phrase, "someone ", "somebody ", "anyone ", "anybody ")
	if fields := strings.Fields(rest); len(fields) > 1 {
		if state, ok := leadingTriggerVerbs[fields[0]]; ok {
			if m, mok := mentionFromObject(strings.Join(fields[1:], " ")); mok {
				return Clause{
					Kind:        KindStateChange,
					Mentions:    []Mention{m},
					TargetState: coverAdjust(state, m.DomainHint),
					Confidence:  0.8,
				}, true
			}
		}
	}

	return Clause{}, false
}

// stateFromWords finds the first state word in a fragment, honouring a
// preceding negation ("is not home").
func stateFromWords(s, domainHint string) (string, bool) {
	negated := false
	for _, w := range strings.Fields(s) {
		if w == "not" || w == "no" {
			negated = true
			continue
		}
		state, ok := canonicalState(w, domainHint)
		if !ok {
			continue
		}
		if negated {
			state = negateState(state)
		}
		return state, true
	}
	return "", false
}

func canonicalState(word, domainHint string) (string, bool) {
	if domainHint == "cover" {
		switch word {
		case "open", "opened":
			return "open", true
		case "closed", "shut":
			return "closed", true
		}
	}
	s, ok := stateWords[word]
	return s, ok
}

func negateState(state string) string {
	switch state {
	case "on":
		return "off"
	case "off":
		return "on"
	case "open":
		return "closed"
	case "closed":
		return "open"
	case "home":
		return "not_home"
	case "not_home":
		return "home"
	case "locked":
		return "unlocked"
	case "unlocked":
		return "locked"
	}
	return state
}

// coverAdjust rewrites binary states to cover states when the mention
// names a cover.
func coverAdjust(state, domainHint string) string {
	if domainHint != "cover" {
		return state
	}
	switch state {
	case "on":
		return "open"
	case "off":
		return "closed"
	}
	return state
}

// actionRule maps verb wording to a device service.
type actionRule struct {
	keywords   []string
	service    string
	confidence float64
}

var actionRules = []actionRule{
	{keywords: []string{"turn on", "switch on", "power on", "start"}, service: ServiceTurnOn, confidence: 0.9},
	{keywords: []string{"turn off", "switch off", "power off", "shut off", "stop"}, service: ServiceTurnOff, confidence: 0.9},
	{keywords: []string{"toggle", "flip", "flash", "blink"}, service: ServiceToggle, confidence: 0.85},
	{keywords: []string{"send me a notification", "send a notification", "send an alert", "let me know", "notify", "alert", "tell", "remind"}, service: ServiceNotify, confidence: 0.85},
}

// actionVerbTokens are the first words of action phrases, used to find
// where an action starts inside a longer fragment. Ambiguous words that
// also describe states (open, close) are deliberately absent.
var actionVerbTokens = []string{
	"turn", "switch", "power", "toggle", "flip", "flash", "blink",
	"notify", "send", "alert", "tell", "remind", "let",
	"wait", "pause", "delay", "start", "stop", "shut",
}

var splitVerbPattern = regexp.MustCompile(`\b(?:turn|switch|power)\s+(.+?)\s+(on|off)\b`)

// indexActionVerb returns the position of the earliest action verb in s.
func indexActionVerb(s string) (int, bool) {
	best := -1
	for _, v := range actionVerbTokens {
		if idx := indexWord(s, v); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best, best >= 0
}

// matchActionRule finds the earliest action keyword in s, preferring the
// longest keyword at equal positions.
func matchActionRule(s string) (actionRule, int, string, bool) {
	bestIdx := -1
	var bestRule actionRule
	var bestKeyword string
	for _, rule := range actionRules {
		for _, kw := range rule.keywords {
			idx := indexWord(s, kw)
			if idx < 0 {
				continue
			}
			if bestIdx < 0 || idx < bestIdx || (idx == bestIdx && len(kw) > len(bestKeyword)) {
				bestIdx = idx
				bestRule = rule
				bestKeyword = kw
			}
		}
	}
	if bestIdx < 0 {
		return actionRule{}, 0, "", false
	}
	return bestRule, bestIdx, bestKeyword, true
}

// parseActionPhrase parses a verb-led fragment into service-call and
// relative-offset clauses.
func (x *RuleExtractor) parseActionPhrase(seg string, ir *IR) bool {
	seg = strings.TrimSpace(seg)
	if seg == "" {
		return false
	}

	// A sun reference inside an action fragment is its trigger ("turn on
	// the lights every morning").
	if p, ok := findSunPhrase(seg); ok {
		ir.Triggers = append(ir.Triggers, Clause{
			Kind:       KindSunEvent,
			SunEvent:   p.event,
			Offset:     p.offset,
			Confidence: 0.9,
		})
		seg = joinFragments(seg[:p.start], seg[p.end:])
	}

	// Temporal qualifiers: "after 10 minutes" delays the action, "for 10
	// minutes" reverses it after the hold. A qualifier that is not at the
	// start runs to the end of the fragment ("after 10 minutes of no
	// motion").
	var delayBefore, holdFor time.Duration
	if m := durationContextPattern.FindStringSubmatchIndex(seg); m != nil {
		if d, ok := parseDuration(seg[m[4]:m[5]]); ok {
			if seg[m[2]:m[3]] == "for" {
				holdFor = d
			} else {
				delayBefore = d
			}
			if m[0] == 0 {
				seg = strings.TrimSpace(seg[m[1]:])
			} else {
				seg = strings.TrimSpace(seg[:m[0]])
			}
		}
	}

	// Bare waits.
	if fields := strings.Fields(seg); len(fields) > 0 && isWaitVerb(fields[0]) {
		d := holdFor
		if d == 0 {
			d = delayBefore
		}
		if d == 0 {
			d, _ = parseDuration(seg)
		}
		if d > 0 {
			ir.Actions = append(ir.Actions, Clause{
				Kind:       KindRelativeOffset,
				Offset:     d,
				Confidence: 0.9,
			})
			return true
		}
		return false
	}

	rule, idx, keyword, ok := matchActionRule(seg)
	if !ok {
		// Split verb forms: "turn the lights off".
		if m := splitVerbPattern.FindStringSubmatch(seg); m != nil {
			service := ServiceTurnOn
			if m[2] == "off" {
				service = ServiceTurnOff
			}
			x.appendServiceAction(ir, service, m[1], 0.9, delayBefore, holdFor)
			return true
		}
		return false
	}

	if prefix := strings.TrimSpace(seg[:idx]); prefix != "" && !isFillerOnly(prefix) {
		attachLeftover(prefix, ir, RoleAction)
	}
	object := strings.TrimSpace(seg[idx+len(keyword):])

	if rule.service == ServiceNotify {
		if delayBefore > 0 {
			ir.Actions = append(ir.Actions, Clause{
				Kind:       KindRelativeOffset,
				Offset:     delayBefore,
				Confidence: 0.9,
			})
		}
		msg := trimAnyPrefix(object, "me that ", "me about ", "me ", "us ", "that ", "saying ")
		if msg == "me" || msg == "us" {
			msg = ""
		}
		ir.Actions = append(ir.Actions, Clause{
			Kind:       KindServiceCall,
			Service:    ServiceNotify,
			Message:    msg,
			Confidence: rule.confidence,
		})
		return true
	}

	x.appendServiceAction(ir, rule.service, object, rule.confidence, delayBefore, holdFor)
	return true
}

// appendServiceAction emits a service-call clause plus the relative-offset
// clauses its temporal qualifiers imply.
func (x *RuleExtractor) appendServiceAction(ir *IR, service, object string, confidence float64, delayBefore, holdFor time.Duration) {
	if delayBefore > 0 {
		ir.Actions = append(ir.Actions, Clause{
			Kind:       KindRelativeOffset,
			Offset:     delayBefore,
			Confidence: 0.9,
		})
	}

	clause := Clause{Kind: KindServiceCall, Service: service, Confidence: confidence}
	if m, ok := mentionFromObject(object); ok {
		clause.Mentions = append(clause.Mentions, m)
	}
	ir.Actions = append(ir.Actions, clause)

	if holdFor > 0 {
		if inverse, ok := inverseService(service); ok {
			ir.Actions = append(ir.Actions,
				Clause{Kind: KindRelativeOffset, Offset: holdFor, Confidence: 0.9},
				Clause{Kind: KindServiceCall, Service: inverse, Mentions: clause.Mentions, Confidence: confidence},
			)
		}
	}
}

func inverseService(service string) (string, bool) {
	switch service {
	case ServiceTurnOn:
		return ServiceTurnOff, true
	case ServiceTurnOff:
		return ServiceTurnOn, true
	case ServiceToggle:
		return ServiceToggle, true
	}
	return "", false
}

func isWaitVerb(word string) bool {
	switch word {
	case "wait", "pause", "delay", "hold", "sleep":
		return true
	}
	return false
}

// parseTemporalClause parses fragments that are nothing but a time or sun
// reference ("at 07:30", "every morning", "30 minutes before sunset").
func parseTemporalClause(s string) (Clause, bool) {
	s = strings.TrimSpace(s)
	s = trimAnyPrefix(s, "every day at ", "daily at ", "every day ", "every ", "at ")
	if s == "" {
		return Clause{}, false
	}

	if p, ok := findSunPhrase(s); ok {
		rest := joinFragments(s[:p.start], s[p.end:])
		if rest == "" || isFillerOnly(rest) {
			return Clause{
				Kind:       KindSunEvent,
				SunEvent:   p.event,
				Offset:     p.offset,
				Confidence: 0.95,
			}, true
		}
		return Clause{}, false
	}

	if at, ok := parseClockTime(s); ok {
		return Clause{Kind: KindTimeOfDay, At: at, Confidence: 0.95}, true
	}

	return Clause{}, false
}

// looksTemporal reports whether a fragment contains a clock time or sun
// reference.
func looksTemporal(s string) bool {
	if _, ok := parseClockTime(s); ok {
		return true
	}
	_, ok := findSunPhrase(s)
	return ok
}

// domainVocabulary maps mention wording to entity domains. The first
// matching token wins.
var domainVocabulary = []struct {
	domain string
	words  []string
}{
	{"light", []string{"light", "lights", "lamp", "lamps", "bulb", "bulbs"}},
	{"binary_sensor", []string{"motion", "presence", "occupancy", "door", "doors", "window", "windows", "doorbell", "contact", "leak"}},
	{"sensor", []string{"temperature", "humidity", "co2", "battery", "energy", "illuminance", "luminance"}},
	{"climate", []string{"thermostat", "heating", "heater", "hvac", "radiator"}},
	{"switch", []string{"plug", "plugs", "outlet", "socket", "switch", "switches"}},
	{"media_player", []string{"tv", "television", "speaker", "speakers", "music", "radio", "stereo"}},
	{"fan", []string{"fan", "fans"}},
	{"lock", []string{"lock", "locks"}},
	{"cover", []string{"blind", "blinds", "curtain", "curtains", "shutter", "shutters", "garage", "gate"}},
	{"camera", []string{"camera", "cameras"}},
	{"vacuum", []string{"vacuum", "hoover"}},
}

func inferDomain(name string) string {
	for _, tok := range strings.Fields(name) {
		for _, v := range domainVocabulary {
			for _, w := range v.words {
				if tok == w {
					return v.domain
				}
			}
		}
	}
	return ""
}

var articleWords = map[string]bool{
	"the": true, "a": true, "an": true, "my": true, "our": true,
	"your": true, "all": true, "every": true, "each": true, "some": true,
}

var fillerWords = map[string]bool{
	"a": true, "also": true, "an": true, "and": true, "at": true,
	"each": true, "every": true, "is": true, "it": true, "now": true,
	"of": true, "please": true, "the": true, "then": true,
	"there": true, "to": true, "too": true,
}

var pronounWords = map[string]bool{
	"it": true, "them": true, "they": true, "these": true,
	"those": true, "everything": true,
}

// recurringSuffixes are schedule qualifiers that are not part of an entity
// name.
var recurringSuffixes = []string{
	" every day", " each day", " daily", " every night",
	" every morning", " every evening", " tonight", " today",
}

// cleanObject reduces a noun phrase to a candidate entity name.
func cleanObject(s string) string {
	s = strings.TrimSpace(s)
	s = trimAnySuffix(s, recurringSuffixes...)

	fields := strings.Fields(s)
	for len(fields) > 0 && articleWords[fields[0]] {
		fields = fields[1:]
	}
	for len(fields) > 0 && fillerWords[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// mentionFromObject builds a Mention from a noun phrase. Pronouns are kept
// at low confidence for the anaphora pass.
func mentionFromObject(text string) (Mention, bool) {
	name := cleanObject(text)
	if name == "" {
		return Mention{}, false
	}
	confidence := 0.9
	if isPronoun(name) {
		confidence = 0.5
	}
	return Mention{
		Text:       strings.TrimSpace(text),
		Name:       name,
		DomainHint: inferDomain(name),
		Confidence: confidence,
	}, true
}

func isPronoun(name string) bool {
	return pronounWords[name]
}

func isFillerOnly(s string) bool {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return true
	}
	for _, f := range fields {
		if !fillerWords[f] {
			return false
		}
	}
	return true
}

// attachLeftover keeps an unrecognised fragment as a low-confidence
// mention on the nearest clause. With no clause to attach to the fragment
// is dropped; the structural diagnostics cover that case.
func attachLeftover(text string, ir *IR, prefer Role) {
	name := cleanObject(text)
	if name == "" || isFillerOnly(name) {
		return
	}
	m := Mention{
		Text:       strings.TrimSpace(text),
		Name:       name,
		DomainHint: inferDomain(name),
		Confidence: 0.3,
	}
	if c := lastClause(ir, prefer); c != nil {
		c.Mentions = append(c.Mentions, m)
	}
}

func lastClause(ir *IR, prefer Role) *Clause {
	pick := func(role Role) *Clause {
		switch role {
		case RoleTrigger:
			if n := len(ir.Triggers); n > 0 {
				return &ir.Triggers[n-1]
			}
		case RoleCondition:
			if n := len(ir.Conditions); n > 0 {
				return &ir.Conditions[n-1]
			}
		case RoleAction:
			if n := len(ir.Actions); n > 0 {
				return &ir.Actions[n-1]
			}
		}
		return nil
	}
	if c := pick(prefer); c != nil {
		return c
	}
	for _, role := range []Role{RoleAction, RoleTrigger, RoleCondition} {
		if c := pick(role); c != nil {
			return c
		}
	}
	return nil
}

// resolveAnaphora binds pronoun mentions ("turn them off") to the nearest
// concrete mention, searching backwards first.
func resolveAnaphora(ir *IR) {
	var order []*Mention
	collect := func(clauses []Clause) {
		for i := range clauses {
			for j := range clauses[i].Mentions {
				order = append(order, &clauses[i].Mentions[j])
			}
		}
	}
	collect(ir.Triggers)
	collect(ir.Conditions)
	collect(ir.Actions)

	for i, m := range order {
		if !isPronoun(m.Name) {
			continue
		}
		src := nearestConcrete(order, i)
		if src == nil {
			continue
		}
		m.Name = src.Name
		m.DomainHint = src.DomainHint
		m.Confidence = 0.6
	}
}

func nearestConcrete(order []*Mention, from int) *Mention {
	for j := from - 1; j >= 0; j-- {
		if !isPronoun(order[j].Name) && order[j].Name != "" {
			return order[j]
		}
	}
	for j := from + 1; j < len(order); j++ {
		if !isPronoun(order[j].Name) && order[j].Name != "" {
			return order[j]
		}
	}
	return nil
}

func trimAnyPrefix(s string, prefixes ...string) string {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(s, p); ok {
			return rest
		}
	}
	return s
}

func trimAnySuffix(s string, suffixes ...string) string {
	for _, suf := range suffixes {
		if rest, ok := strings.CutSuffix(s, suf); ok {
			return rest
		}
	}
	return s
}

// joinFragments glues the text around a removed span back together.
func joinFragments(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
