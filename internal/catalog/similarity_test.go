package catalog

import (
	"math"
	"reflect"
	"testing"
)

const scoreTolerance = 1e-9

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "friendly name",
			input:    "Living Room Lights",
			expected: []string{"living", "room", "lights"},
		},
		{
			name:     "entity slug underscores",
			input:    "motion_living_room",
			expected: []string{"motion", "living", "room"},
		},
		{
			name:     "punctuation collapses",
			input:    "Dad's office-lamp (main)",
			expected: []string{"dad", "s", "office", "lamp", "main"},
		},
		{
			name:     "short tokens kept",
			input:    "TV Fan",
			expected: []string{"tv", "fan"},
		},
		{
			name:     "empty input",
			input:    "",
			expected: []string{},
		},
		{
			name:     "only punctuation",
			input:    "?!,.",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		candidate string
		expected  float64
	}{
		{
			name:      "identical token sets",
			query:     "light",
			candidate: "light",
			expected:  1.0,
		},
		{
			name:      "identical after normalisation",
			query:     "Living Room Lights",
			candidate: "living_room_lights",
			expected:  1.0,
		},
		{
			name:      "query contained in longer name",
			query:     "motion",
			candidate: "motion living room",
			expected:  0.7 + 0.3/3.0,
		},
		{
			name:      "partial overlap",
			query:     "living room lights",
			candidate: "living room",
			expected:  0.7*(2.0/3.0) + 0.3*(2.0/3.0),
		},
		{
			name:      "disjoint names",
			query:     "kitchen",
			candidate: "bedroom lamp",
			expected:  0,
		},
		{
			name:      "empty query",
			query:     "",
			candidate: "light",
			expected:  0,
		},
		{
			name:      "empty candidate",
			query:     "light",
			candidate: "",
			expected:  0,
		},
		{
			name:      "duplicate query tokens count once",
			query:     "lamp lamp",
			candidate: "lamp",
			expected:  1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.query, tt.candidate)
			if math.Abs(got-tt.expected) > scoreTolerance {
				t.Errorf("Similarity(%q, %q) = %v, want %v", tt.query, tt.candidate, got, tt.expected)
			}
		})
	}
}

func TestSimilarity_Symmetry(t *testing.T) {
	// Containment is query-relative, so the blend is deliberately asymmetric:
	// a short query against a long name scores higher than the reverse.
	short := Similarity("motion", "motion living room")
	long := Similarity("motion living room", "motion")

	if short <= long {
		t.Errorf("expected short-query score %v to exceed long-query score %v", short, long)
	}
}
