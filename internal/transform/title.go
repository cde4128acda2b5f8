package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mgpai22/libersonora/internal/llm"
)

const (
	DefaultTitleMaxInput = 500
	DefaultTitleMaxRunes = 100
	titleTemperature     = 0.4
	unknownMetadata      = "unknown"
)

var titleReplacer = strings.NewReplacer(
	"。", "", "，", "", "！", "", "？", "",
	"/", "", "\\", "", ":", "", "*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
)

// summarises a section of text into a short filesystem-safe title
type TitleGenerator struct {
	llm       llm.Completer
	BookTitle string
	Author    string
	Lang      string
	MaxInput  int
	MaxRunes  int
}

func NewTitleGenerator(completer llm.Completer, bookTitle, author, lang string) *TitleGenerator {
	return &TitleGenerator{
		llm:       completer,
		BookTitle: orUnknown(bookTitle),
		Author:    orUnknown(author),
		Lang:      orUnknown(lang),
		MaxInput:  DefaultTitleMaxInput,
		MaxRunes:  DefaultTitleMaxRunes,
	}
}

func (g *TitleGenerator) Generate(ctx context.Context, content string) (string, error) {
	if capped, cut := truncateRunes(content, g.maxInput()); cut {
		content = capped + "..."
	}

	reply, err := g.llm.Complete(ctx, llm.Request{
		System:      g.systemPrompt(),
		User:        content,
		Temperature: llm.Temperature(titleTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}
	title := SanitizeTitle(reply, g.maxRunes())
	if title == "" {
		return "", errors.New("generate title: reply contains no usable title")
	}
	return title, nil
}

// removes punctuation and path characters, then clamps to maxRunes
func SanitizeTitle(title string, maxRunes int) string {
	title = strings.TrimSpace(titleReplacer.Replace(title))
	if maxRunes > 0 {
		title, _ = truncateRunes(title, maxRunes)
	}
	return strings.TrimSpace(title)
}

func (g *TitleGenerator) systemPrompt() string {
	lang := g.Lang
	if lang != unknownMetadata {
		lang = LanguageName(lang)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an expert multilingual editor writing section titles for the book %q by %s.\n\n", g.BookTitle, g.Author)
	fmt.Fprintf(&sb, "Task: write one section title in %s for the text provided.\n", lang)
	sb.WriteString("Requirements:\n")
	sb.WriteString("1. The title must summarise the text accurately.\n")
	sb.WriteString("2. Keep it short.\n")
	sb.WriteString("3. Use no punctuation.\n")
	sb.WriteString("4. Make it clear, focused and engaging.\n")
	sb.WriteString("5. Do not include words such as chapter or section.\n")
	sb.WriteString("6. It may describe who did what, or the idea under discussion.\n\n")
	sb.WriteString("Good titles:\n")
	sb.WriteString("武松打虎\n")
	sb.WriteString("刘备三顾茅庐\n")
	sb.WriteString("The Rise of Artificial Intelligence\n")
	sb.WriteString("Renewable Energy Solutions\n")
	sb.WriteString("人工智能与就业市场变革\n\n")
	sb.WriteString("Reply with the title only.")
	return sb.String()
}

func (g *TitleGenerator) maxInput() int {
	if g.MaxInput > 0 {
		return g.MaxInput
	}
	return DefaultTitleMaxInput
}

func (g *TitleGenerator) maxRunes() int {
	if g.MaxRunes > 0 {
		return g.MaxRunes
	}
	return DefaultTitleMaxRunes
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unknownMetadata
	}
	return s
}
