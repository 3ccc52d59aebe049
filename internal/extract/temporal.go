package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Temporal phrase parsing shared by the rule-based extractor. All input is
// expected to be normalised (lowercase, punctuation stripped, single
// spaces); callers pass fragments, not whole utterances.

const (
	durationNumber = `\d+|an?|one|two|three|four|five|six|seven|eight|nine|ten|fifteen|twenty|thirty|sixty`
	durationUnit   = `seconds?|secs?|minutes?|mins?|hours?|hrs?`
)

var (
	clockPattern           = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	durationPattern        = regexp.MustCompile(`\b(` + durationNumber + `)\s*(` + durationUnit + `)\b`)
	durationContextPattern = regexp.MustCompile(`\b(after|in|for)\s+((?:` + durationNumber + `)\s*(?:` + durationUnit + `))\b`)
	numericPattern         = regexp.MustCompile(`\b(above|over|exceeds|rises above|below|under|drops below)\s+(\d+(?:\.\d+)?)\b`)
)

// wordCounts spells out the small counts people write in words.
var wordCounts = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"fifteen": 15, "twenty": 20, "thirty": 30, "sixty": 60,
}

// sunVocabulary maps wording to a sun event and a canned offset. "Morning"
// and "nightfall" are softened by half an hour so automations do not fire
// at the exact horizon crossing.
var sunVocabulary = []struct {
	word   string
	event  string
	offset time.Duration
}{
	{"sunrise", SunEventSunrise, 0},
	{"sunset", SunEventSunset, 0},
	{"dawn", SunEventSunrise, 0},
	{"dusk", SunEventSunset, 0},
	{"morning", SunEventSunrise, 30 * time.Minute},
	{"evening", SunEventSunset, 0},
	{"nightfall", SunEventSunset, 30 * time.Minute},
}

// parseClockTime extracts a wall-clock time from a fragment such as
// "7:30", "7 pm", "19:45", "noon" or "midnight". It returns the time in
// "HH:MM:SS" form.
func parseClockTime(s string) (string, bool) {
	if strings.Contains(s, "noon") {
		return "12:00:00", true
	}
	if strings.Contains(s, "midnight") {
		return "00:00:00", true
	}

	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return "", false
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return "", false
		}
	}

	switch m[3] {
	case "pm":
		if hour > 12 {
			return "", false
		}
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour > 12 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
	case "":
		// Bare small numbers without minutes ("at 7") are ambiguous between
		// am and pm; require an explicit marker or minutes.
		if m[2] == "" && hour < 10 {
			return "", false
		}
	}

	return fmt.Sprintf("%02d:%02d:00", hour, minute), true
}

// parseDuration extracts the first duration phrase ("10 minutes", "an
// hour", "30 secs") from a fragment.
func parseDuration(s string) (time.Duration, bool) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	count, ok := wordCounts[m[1]]
	if !ok {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		count = n
	}

	var unit time.Duration
	switch {
	case strings.HasPrefix(m[2], "sec"):
		unit = time.Second
	case strings.HasPrefix(m[2], "min"):
		unit = time.Minute
	case strings.HasPrefix(m[2], "h"):
		unit = time.Hour
	default:
		return 0, false
	}

	return time.Duration(count) * unit, true
}

// sunPhrase is a parsed sun reference within a fragment.
type sunPhrase struct {
	event  string
	offset time.Duration
	before bool
	start  int
	end    int
}

// findSunPhrase locates a sun reference in a fragment, including optional
// lead-in offsets ("30 minutes before sunset") and direction words
// ("after sunset"). The returned start/end cover the full phrase so the
// caller can cut it out of the fragment.
func findSunPhrase(s string) (sunPhrase, bool) {
	for _, v := range sunVocabulary {
		idx := indexWord(s, v.word)
		if idx < 0 {
			continue
		}

		p := sunPhrase{event: v.event, offset: v.offset, start: idx, end: idx + len(v.word)}

		// Direction and offset precede the event word: "[10 minutes]
		// [before|after] sunset". Walk backwards over the lead-in.
		lead := strings.TrimRight(s[:idx], " ")
		if word, rest, ok := lastWord(lead); ok && (word == "before" || word == "after") {
			p.before = word == "before"
			p.start = strings.LastIndex(s[:idx], word)

			if d, dStart, ok := trailingDuration(rest); ok {
				if p.before {
					p.offset = -d
				} else {
					p.offset = d
				}
				p.start = dStart
			} else if p.before {
				p.offset = -p.offset
			}
		}

		return p, true
	}
	return sunPhrase{}, false
}

// trailingDuration matches a duration phrase at the end of a fragment and
// returns its value and start offset.
func trailingDuration(s string) (time.Duration, int, bool) {
	locs := durationPattern.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return 0, 0, false
	}
	last := locs[len(locs)-1]
	if strings.TrimSpace(s[last[1]:]) != "" {
		return 0, 0, false
	}
	d, ok := parseDuration(s[last[0]:last[1]])
	if !ok {
		return 0, 0, false
	}
	return d, last[0], true
}

// parseNumericThreshold extracts a comparison such as "above 25" or
// "drops below 18.5". It returns the bound and the comparator's position
// so the caller can treat the preceding text as the mention.
func parseNumericThreshold(s string) (above, below *float64, start int, ok bool) {
	m := numericPattern.FindStringSubmatchIndex(s)
	if m == nil {
		return nil, nil, 0, false
	}

	comparator := s[m[2]:m[3]]
	value, err := strconv.ParseFloat(s[m[4]:m[5]], 64)
	if err != nil {
		return nil, nil, 0, false
	}

	switch comparator {
	case "above", "over", "exceeds", "rises above":
		return &value, nil, m[0], true
	default:
		return nil, &value, m[0], true
	}
}

// indexWord returns the index of word in s when it appears on word
// boundaries, or -1.
func indexWord(s, word string) int {
	from := 0
	for {
		idx := strings.Index(s[from:], word)
		if idx < 0 {
			return -1
		}
		idx += from
		beforeOK := idx == 0 || s[idx-1] == ' '
		after := idx + len(word)
		afterOK := after == len(s) || s[after] == ' '
		if beforeOK && afterOK {
			return idx
		}
		from = idx + len(word)
	}
}

// lastWord splits off the final space-separated word of a fragment.
func lastWord(s string) (word, rest string, ok bool) {
	s = strings.TrimRight(s, " ")
	if s == "" {
		return "", "", false
	}
	idx := strings.LastIndexByte(s, ' ')
	if idx < 0 {
		return s, "", true
	}
	return s[idx+1:], s[:idx+1], true
}
