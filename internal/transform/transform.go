package transform

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// a consecutive run of units [Start, End) plus its read-only lookback [ContextStart, Start)
type Chunk struct {
	Start        int
	End          int
	ContextStart int
}

func (c Chunk) Len() int { return c.End - c.Start }

// splits n units into chunks of at most batchSize, each with up to contextSize
// preceding units attached as context
func Chunks(n, batchSize, contextSize int) []Chunk {
	if batchSize <= 0 {
		batchSize = 1
	}
	if contextSize < 0 {
		contextSize = 0
	}

	chunks := make([]Chunk, 0, (n+batchSize-1)/batchSize)
	for start := 0; start < n; start += batchSize {
		chunks = append(chunks, Chunk{
			Start:        start,
			End:          min(start+batchSize, n),
			ContextStart: max(0, start-contextSize),
		})
	}
	return chunks
}

// LLM output whose shape does not match the request; never retried
type ValidationError struct {
	Stage    string
	Chunk    int
	Expected int
	Got      int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: chunk %d: expected %d lines, got %d", e.Stage, e.Chunk, e.Expected, e.Got)
}

// contextBlock renders the lookback lines of a chunk, or "" when there are none.
func contextBlock(lines []string, c Chunk) string {
	if c.ContextStart >= c.Start {
		return ""
	}
	return "Context:\n" + strings.Join(lines[c.ContextStart:c.Start], "\n") + "\n\n"
}

// English display name of a BCP 47 code; unknown codes are returned unchanged
func LanguageName(code string) string {
	code = strings.TrimSpace(code)
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

func sameLanguage(a, b string) bool {
	ta, errA := language.Parse(strings.TrimSpace(a))
	tb, errB := language.Parse(strings.TrimSpace(b))
	if errA == nil && errB == nil {
		return ta == tb
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func truncateRunes(s string, n int) (string, bool) {
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}
