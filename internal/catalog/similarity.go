package catalog

import (
	"strings"
	"unicode"
)

// Similarity blend weights. Containment dominates so that a short mention
// ("motion") still scores well against a longer entity name
// ("motion living room"), while the Jaccard term keeps unrelated long names
// from riding on a single shared token.
const (
	containmentWeight = 0.7
	jaccardWeight     = 0.3
)

// Tokenize splits a name into lowercase comparison tokens.
//
// Punctuation and separators (including underscores from entity slugs)
// collapse to spaces before splitting. Short tokens are kept; names like
// "tv" and "fan" are real entity names in this domain.
func Tokenize(s string) []string {
	lower := strings.ToLower(s)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, lower)
	return strings.Fields(cleaned)
}

// Similarity returns a name-likeness score in [0,1] for a query against a
// candidate name.
//
// The score blends query-token containment (how much of the query the
// candidate covers) with the Jaccard coefficient of the two token sets.
// Identical token sets score 1.0; disjoint sets score 0.
func Similarity(query, candidate string) float64 {
	qt := Tokenize(query)
	ct := Tokenize(candidate)
	if len(qt) == 0 || len(ct) == 0 {
		return 0
	}

	candidateSet := make(map[string]struct{}, len(ct))
	for _, tok := range ct {
		candidateSet[tok] = struct{}{}
	}

	seen := make(map[string]struct{}, len(qt))
	overlap := 0
	querySize := 0
	for _, tok := range qt {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		querySize++
		if _, ok := candidateSet[tok]; ok {
			overlap++
		}
	}

	if overlap == 0 {
		return 0
	}

	union := querySize + len(candidateSet) - overlap
	containment := float64(overlap) / float64(querySize)
	jaccard := float64(overlap) / float64(union)

	return containmentWeight*containment + jaccardWeight*jaccard
}
