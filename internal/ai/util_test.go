package ai

import (
	"strings"
	"testing"
)

func TestCleanReplyStripsThinkBlocksAndQuotes(t *testing.T) {
	in := "<think>internal chain</think>  \"You did well today.\"  "
	got := cleanReply(in)
	if got != "You did well today." {
		t.Errorf("cleanReply = %q", got)
	}
}

func TestCleanReplyTruncatesLongOutput(t *testing.T) {
	got := cleanReply(strings.Repeat("a", 4000))
	if !strings.HasSuffix(got, "[truncated]") {
		t.Error("overlong reply must be marked truncated")
	}
	if len(got) > 2900 {
		t.Errorf("truncated reply still too long: %d", len(got))
	}
}

func TestIsGarbageResponse(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"<html><body>error</body></html>", true},
		{"This endpoint is not allowed", true},
		{"ok", true},
		{"That sounds like a really long day, be kind to yourself.", false},
	}
	for _, c := range cases {
		if got := isGarbageResponse(c.in); got != c.want {
			t.Errorf("isGarbageResponse(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestEstimateConfidence(t *testing.T) {
	if got := estimateConfidence("short"); got != 0.65 {
		t.Errorf("short reply confidence = %v", got)
	}
	if got := estimateConfidence(strings.Repeat("b", 100) + "[truncated]"); got != 0.55 {
		t.Errorf("truncated reply confidence = %v", got)
	}
	if got := estimateConfidence(strings.Repeat("a solid reply ", 10)); got != 0.9 {
		t.Errorf("normal reply confidence = %v", got)
	}
}
