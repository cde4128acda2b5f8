package transform

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/llm"
)

const (
	DefaultCorrectBatchSize   = 20
	DefaultCorrectContextSize = 4
)

// fixes speech recognition errors, returning only the lines the model changed
type Corrector struct {
	llm          llm.Completer
	BatchSize    int
	ContextSize  int
	CommonErrors []config.CommonError
}

func NewCorrector(completer llm.Completer, commonErrors []config.CommonError) *Corrector {
	return &Corrector{
		llm:          completer,
		BatchSize:    DefaultCorrectBatchSize,
		ContextSize:  DefaultCorrectContextSize,
		CommonErrors: commonErrors,
	}
}

// Correct returns a copy of lines with the corrections applied. Lines the model
// does not mention, and reply lines with an unusable index, leave the input unchanged.
func (c *Corrector) Correct(ctx context.Context, lines []string) ([]string, error) {
	out := make([]string, len(lines))
	copy(out, lines)
	if len(lines) == 0 {
		return out, nil
	}

	system := c.systemPrompt()
	for i, chunk := range Chunks(len(lines), c.BatchSize, c.ContextSize) {
		reply, err := c.llm.Complete(ctx, llm.Request{
			System: system,
			User:   c.userPrompt(lines, chunk),
		})
		if err != nil {
			return nil, fmt.Errorf("correct chunk %d: %w", i, err)
		}
		for idx, text := range parseIndexedLines(reply, len(lines)) {
			out[idx] = text
		}
	}
	return out, nil
}

func (c *Corrector) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a professional speech recognition proofreader. ")
	sb.WriteString("Correct recognition errors in the numbered sentences while keeping their meaning and context.\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("1. Return only the sentences you changed, one per line, as {index}: {text}\n")
	sb.WriteString("2. Leave out any sentence that needs no correction.\n")
	sb.WriteString("3. Keep the speaker's tone, wording and speech habits.\n")
	sb.WriteString("4. Do not remove repetitions, stutters or filler words.\n")
	sb.WriteString("5. Fix only obvious recognition mistakes such as homophones.\n")
	sb.WriteString("6. Lines under Context are for reference only and must not be returned.\n")

	if len(c.CommonErrors) > 0 {
		sb.WriteString("\nKnown recognition errors in this recording:\n")
		for _, e := range c.CommonErrors {
			fmt.Fprintf(&sb, "- %s => %s\n", e.From, e.To)
		}
	}

	sb.WriteString("\nExample input:\n")
	sb.WriteString("0: 家人们，今天给大家介绍这款超级好用的面膜\n")
	sb.WriteString("1: 我觉得还型，用了之后皮肤真的变得又白又嫩\n\n")
	sb.WriteString("Example output:\n")
	sb.WriteString("1: 我觉得还行，用了之后皮肤真的变得又白又嫩")
	return sb.String()
}

// indices are global so corrections land on the right line after reassembly
func (c *Corrector) userPrompt(lines []string, chunk Chunk) string {
	var sb strings.Builder
	sb.WriteString(contextBlock(lines, chunk))
	for i := chunk.Start; i < chunk.End; i++ {
		if i > chunk.Start {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d: %s", i, lines[i])
	}
	return sb.String()
}

// parses "idx: text" lines, dropping anything unparsable or out of [0, n)
func parseIndexedLines(reply string, n int) map[int]string {
	out := map[int]string{}
	for _, line := range strings.Split(reply, "\n") {
		head, text, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil || idx < 0 || idx >= n {
			continue
		}
		out[idx] = strings.TrimSpace(text)
	}
	return out
}
