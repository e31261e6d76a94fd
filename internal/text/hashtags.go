package text

import (
	"regexp"
	"strings"
)

var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{M}\p{N}_]+`)

// Extract splits a caption into its cleaned body and the space separated
// hashtags in order of appearance. A nil caption yields (nil, nil) so callers
// can tell "no caption" apart from "caption without hashtags".
func Extract(caption *string) (clean *string, hashtags *string) {
	if caption == nil {
		return nil, nil
	}

	tags := strings.Join(Hashtags(*caption), " ")
	body := strings.TrimSpace(hashtagPattern.ReplaceAllString(*caption, ""))

	return &body, &tags
}

// Hashtags returns every hashtag token in s, first to last.
func Hashtags(s string) []string {
	return hashtagPattern.FindAllString(s, -1)
}

// Snippet truncates s to at most n runes, marking the cut with "...".
func Snippet(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
