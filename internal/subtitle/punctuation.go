package subtitle

import (
	"strings"
	"unicode"
)

const trailingPunctuation = ",.!?;:、，。！？；：…~～"

// strips trailing sentence punctuation and whitespace
func TrimTrailingPunctuation(text string) string {
	return strings.TrimRightFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(trailingPunctuation, r)
	})
}

func TrimTrailingPunctuationAll(segments []Segment) {
	for i := range segments {
		segments[i].Text = TrimTrailingPunctuation(segments[i].Text)
	}
}
