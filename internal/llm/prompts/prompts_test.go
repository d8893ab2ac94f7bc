package prompts

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"cut", "abcdef", 3, "abc"},
		{"runes", "привет", 3, "при"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.n); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

func TestQuizPrompt(t *testing.T) {
	p, err := Quiz("Mitochondria produce ATP.", 7, "Hard")
	if err != nil {
		t.Fatalf("Quiz: %v", err)
	}
	for _, want := range []string{"Generate exactly 7 questions.", "should be: Hard.", "Mitochondria produce ATP.", `"answerOptions"`} {
		if !strings.Contains(p, want) {
			t.Errorf("quiz prompt missing %q", want)
		}
	}
}

// carriesRun reports whether prompt holds a run of exactly n "x" runes.
func carriesRun(prompt string, n int) bool {
	return strings.Contains(prompt, strings.Repeat("x", n)) && !strings.Contains(prompt, strings.Repeat("x", n+1))
}

func TestPromptInputLimits(t *testing.T) {
	long := strings.Repeat("x", MaxSummaryRunes+500)

	topics, err := Topics(long)
	if err != nil {
		t.Fatalf("Topics: %v", err)
	}
	if !carriesRun(topics, MaxInputRunes) {
		t.Errorf("topics prompt should carry exactly %d input runes", MaxInputRunes)
	}
	if !strings.Contains(topics, "5 most important topics") {
		t.Error("topics prompt should ask for 5 topics")
	}

	summary, err := Summary(long)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !carriesRun(summary, MaxSummaryRunes) {
		t.Errorf("summary prompt should carry exactly %d input runes", MaxSummaryRunes)
	}
	if !utf8.ValidString(summary) {
		t.Error("summary prompt is not valid UTF-8")
	}
}

func TestExplainPrompt(t *testing.T) {
	p, err := Explain("  Osmosis ", "Water moves across membranes.")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if !strings.Contains(p, "Explain the topic 'Osmosis'") {
		t.Errorf("unexpected prompt: %s", p)
	}
}
