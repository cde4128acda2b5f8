package subtitle

import (
	"time"
)

// one sentence as returned by the ASR service, times in milliseconds
type RawSegment struct {
	Text    string `json:"text"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Speaker int    `json:"spk"`
}

// represents one timed cue
type Segment struct {
	Text      string
	StartTime time.Duration
	EndTime   time.Duration
	Speaker   int
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatLRC Format = "lrc"
)

func (f Format) Extension() string {
	return "." + string(f)
}

// text of each segment, in order
func Texts(segments []Segment) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = s.Text
	}
	return out
}

// SetTexts replaces segment texts positionally. The lengths must match.
func SetTexts(segments []Segment, texts []string) bool {
	if len(texts) != len(segments) {
		return false
	}
	for i := range segments {
		segments[i].Text = texts[i]
	}
	return true
}

func ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}
