package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/llm"
)

const (
	DefaultTranslateBatchSize   = 1
	DefaultTranslateContextSize = 0
	translateTemperature        = 0.7
)

// translates lines positionally; each reply must have exactly one line per input line
type Translator struct {
	llm         llm.Completer
	BatchSize   int
	ContextSize int
}

func NewTranslator(completer llm.Completer) *Translator {
	return &Translator{
		llm:         completer,
		BatchSize:   DefaultTranslateBatchSize,
		ContextSize: DefaultTranslateContextSize,
	}
}

func (t *Translator) Translate(ctx context.Context, from, to string, lines []string) ([]string, error) {
	if sameLanguage(from, to) {
		return nil, &config.ConfigurationError{
			Field:  "translate.to",
			Reason: fmt.Sprintf("source and target language cannot be the same (%s)", from),
		}
	}

	out := make([]string, len(lines))
	if len(lines) == 0 {
		return out, nil
	}

	system := t.systemPrompt(LanguageName(from), LanguageName(to))
	for i, chunk := range Chunks(len(lines), t.BatchSize, t.ContextSize) {
		reply, err := t.llm.Complete(ctx, llm.Request{
			System:      system,
			User:        contextBlock(lines, chunk) + strings.Join(lines[chunk.Start:chunk.End], "\n"),
			Temperature: llm.Temperature(translateTemperature),
		})
		if err != nil {
			return nil, fmt.Errorf("translate chunk %d: %w", i, err)
		}

		translated := strings.Split(reply, "\n")
		if len(translated) != chunk.Len() {
			return nil, &ValidationError{Stage: "translate", Chunk: i, Expected: chunk.Len(), Got: len(translated)}
		}
		for j, line := range translated {
			out[chunk.Start+j] = strings.TrimSpace(line)
		}
	}
	return out, nil
}

func (t *Translator) systemPrompt(from, to string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a professional translator specialising in %s to %s translation.\n\n", from, to)
	fmt.Fprintf(&sb, "Task: translate the text from %s into %s accurately.\n", from, to)
	sb.WriteString("Keep the meaning and context of the original.\n")
	sb.WriteString("Use a formal, professional tone.\n")
	sb.WriteString("Return exactly one translated line for every input line, in the same order, with no extra lines.\n")
	sb.WriteString("Lines under Context are for reference only and must not be translated or returned.\n")
	fmt.Fprintf(&sb, "The %s output must not contain %s words or characters.\n", to, from)
	return sb.String()
}
