package subtitle

import (
	"strings"
	"unicode/utf8"
)

const DefaultMinTextLength = 5

// merges raw ASR sentences into speaker-turn cues
type SpeechFormatter struct {
	MinTextLength int
}

func NewSpeechFormatter(minTextLength int) *SpeechFormatter {
	if minTextLength <= 0 {
		minTextLength = DefaultMinTextLength
	}
	return &SpeechFormatter{MinTextLength: minTextLength}
}

func FormatSpeech(raw []RawSegment, minTextLength int) []Segment {
	return NewSpeechFormatter(minTextLength).Format(raw)
}

// Format walks raw in arrival order. Consecutive sentences from one speaker are
// space-joined until the cue reaches MinTextLength runes; a speaker change
// closes the pending cue whatever its length.
func (f *SpeechFormatter) Format(raw []RawSegment) []Segment {
	minLen := f.MinTextLength
	if minLen <= 0 {
		minLen = DefaultMinTextLength
	}

	out := make([]Segment, 0, len(raw))
	var pending *Segment

	flush := func() {
		if pending == nil {
			return
		}
		pending.Text = TrimTrailingPunctuation(pending.Text)
		out = append(out, *pending)
		pending = nil
	}

	for _, r := range raw {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}

		if pending != nil && pending.Speaker != r.Speaker {
			flush()
		}

		if pending == nil {
			pending = &Segment{
				Text:      text,
				StartTime: ms(r.Start),
				EndTime:   ms(r.End),
				Speaker:   r.Speaker,
			}
		} else {
			pending.Text += " " + text
			pending.EndTime = ms(r.End)
		}

		if utf8.RuneCountInString(pending.Text) >= minLen {
			flush()
		}
	}
	flush()

	return out
}
