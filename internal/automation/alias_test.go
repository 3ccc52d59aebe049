package automation

import (
	"strings"
	"testing"
	"time"
)

func TestDeriveAliasText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "stopwords skipped",
			in:   "Turn on the living room lights when motion is detected after sunset and turn them off after 10 minutes of no motion",
			want: "Turn On Living Room Lights Motion Detected",
		},
		{
			name: "short utterance",
			in:   "do something cool",
			want: "Something Cool",
		},
		{
			name: "punctuation trimmed",
			in:   "Turn off the fan, please!",
			want: "Turn Off Fan",
		},
		{
			name: "word limit",
			in:   "open close lock unlock dim brighten mute pause play stop",
			want: "Open Close Lock Unlock Dim Brighten Mute Pause",
		},
		{
			name: "length cap at word boundary",
			in:   "notify me when the temperature of the greenhouse sensor rises above twenty five degrees",
			want: "Notify Temperature Greenhouse Sensor Rises Above",
		},
		{
			name: "only stopwords",
			in:   "please do it",
			want: "",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveAliasText(tt.in)
			if got != tt.want {
				t.Errorf("deriveAliasText(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if len(got) > maxAliasTextLength {
				t.Errorf("derived text %d chars, cap is %d", len(got), maxAliasTextLength)
			}
		})
	}
}

func TestBuildAlias_Fallback(t *testing.T) {
	for _, in := range []string{"", "please do it"} {
		if got := buildAlias(in); got != "AI Generated: New Automation" {
			t.Errorf("buildAlias(%q) = %q, want fallback", in, got)
		}
	}
}

func TestBuildAlias_Prefix(t *testing.T) {
	got := buildAlias("do something cool")
	if !strings.HasPrefix(got, aliasPrefix) {
		t.Errorf("alias %q missing prefix", got)
	}
	if got != "AI Generated: Something Cool" {
		t.Errorf("alias = %q", got)
	}
}

func TestAliasGenerator_ReserveDisambiguates(t *testing.T) {
	g := NewAliasGenerator(time.Minute)

	want := []string{
		"AI Generated: Something Cool",
		"AI Generated: Something Cool 2",
		"AI Generated: Something Cool 3",
	}
	for i, w := range want {
		if got := g.Reserve("do something cool"); got != w {
			t.Errorf("reserve %d = %q, want %q", i+1, got, w)
		}
	}
}

func TestAliasGenerator_CollisionIsCaseInsensitive(t *testing.T) {
	g := NewAliasGenerator(time.Minute)

	first := g.Reserve("turn on the lamp")
	second := g.Reserve("Turn ON the lamp")

	if first != "AI Generated: Turn On Lamp" {
		t.Errorf("first = %q", first)
	}
	if second != "AI Generated: Turn On Lamp 2" {
		t.Errorf("second = %q, want case-insensitive collision suffix", second)
	}
}

func TestAliasGenerator_DistinctTextsDoNotCollide(t *testing.T) {
	g := NewAliasGenerator(time.Minute)

	a := g.Reserve("turn on the lamp")
	b := g.Reserve("turn off the lamp")

	if a == b {
		t.Errorf("distinct utterances reserved the same alias %q", a)
	}
}
