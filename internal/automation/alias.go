package automation

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/patrickmn/go-cache"
)

const (
	// aliasPrefix marks generated automations in the Home Assistant UI.
	aliasPrefix = "AI Generated: "

	// maxAliasTextLength caps the derived part of the alias, cutting at a
	// word boundary.
	maxAliasTextLength = 50

	// aliasWordLimit caps how many utterance words the alias keeps.
	aliasWordLimit = 8

	aliasPunctuation = ".,!?;:\"'"
)

// aliasStopwords are utterance words that carry nothing in a title.
var aliasStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "my": {}, "our": {}, "your": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "it": {}, "its": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"i": {}, "we": {}, "you": {}, "they": {}, "them": {}, "me": {}, "us": {},
	"do": {}, "does": {}, "did": {}, "can": {}, "could": {}, "should": {},
	"would": {}, "will": {}, "want": {}, "wants": {}, "like": {},
	"please": {}, "to": {}, "of": {}, "and": {}, "or": {}, "but": {},
	"if": {}, "then": {}, "when": {}, "whenever": {}, "while": {},
	"once": {}, "as": {}, "so": {}, "there": {}, "here": {}, "just": {},
	"some": {}, "any": {}, "make": {}, "let": {}, "get": {},
}

// aliasDanglers are words dropped from the end of a derived alias; a
// title ending in a connective reads as cut off.
var aliasDanglers = map[string]struct{}{
	"after": {}, "before": {}, "at": {}, "and": {}, "when": {},
	"whenever": {}, "if": {}, "then": {}, "of": {}, "no": {}, "not": {},
	"with": {}, "for": {}, "in": {},
}

// AliasGenerator derives human-readable aliases from utterances and keeps
// them unique for the lifetime of a session cache entry. Two compiles of
// the same wording within the TTL get distinct aliases ("... 2", "... 3")
// so saving both does not overwrite the first.
//
// Thread Safety: safe for concurrent use.
type AliasGenerator struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewAliasGenerator creates a generator whose reservations expire after
// ttl. A non-positive ttl keeps reservations for the process lifetime.
func NewAliasGenerator(ttl time.Duration) *AliasGenerator {
	return &AliasGenerator{
		cache: cache.New(ttl, ttl*2),
	}
}

// Reserve derives an alias for the utterance text and reserves it,
// appending a numeric suffix when the derived alias is already taken.
func (g *AliasGenerator) Reserve(text string) string {
	base := buildAlias(text)

	g.mu.Lock()
	defer g.mu.Unlock()

	candidate := base
	for n := 2; ; n++ {
		key := strings.ToLower(candidate)
		if _, taken := g.cache.Get(key); !taken {
			g.cache.Set(key, struct{}{}, cache.DefaultExpiration)
			return candidate
		}
		candidate = fmt.Sprintf("%s %d", base, n)
	}
}

// buildAlias derives an alias from utterance text without reserving it.
func buildAlias(text string) string {
	derived := deriveAliasText(text)
	if derived == "" {
		derived = "New Automation"
	}
	return aliasPrefix + derived
}

// deriveAliasText keeps the salient words of the utterance: stopwords
// skipped, capped by word count and length, title-cased.
func deriveAliasText(text string) string {
	var words []string
	size := 0
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		w := strings.Trim(raw, aliasPunctuation)
		if w == "" {
			continue
		}
		if _, skip := aliasStopwords[w]; skip {
			continue
		}
		extra := len(w)
		if len(words) > 0 {
			extra++
		}
		if size+extra > maxAliasTextLength {
			break
		}
		words = append(words, w)
		size += extra
		if len(words) == aliasWordLimit {
			break
		}
	}

	for len(words) > 0 {
		if _, dangling := aliasDanglers[words[len(words)-1]]; !dangling {
			break
		}
		words = words[:len(words)-1]
	}

	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	r := []rune(w)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
