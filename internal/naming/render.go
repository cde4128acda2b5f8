package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultTemplate = "{origin}"
	DefaultPattern  = `(\d+)`
)

// values available to a naming template
type Fields struct {
	Origin    string
	Index     int // 0-based position of the file in its batch
	Title     string
	BookTitle string
	Author    string
	Groups    []string // positional {0}, {1}, ...
}

// capture groups of the first match of pattern in origin; none when it does not match
func Extract(origin, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid origin pattern %q: %w", pattern, err)
	}
	m := re.FindStringSubmatch(origin)
	if len(m) < 2 {
		return nil, nil
	}
	return m[1:], nil
}

func (f Fields) named(name string) (string, bool) {
	switch name {
	case "origin":
		return f.Origin, true
	case "index":
		return fmt.Sprintf("%03d", f.Index+1), true
	case "title":
		return f.Title, true
	case "book_title":
		return f.BookTitle, true
	case "author":
		return f.Author, true
	default:
		return "", false
	}
}

// Render expands {name} and {N} placeholders. "{{" and "}}" produce literal
// braces. Unknown names, out-of-range positions and unbalanced braces are errors.
func Render(template string, f Fields) (string, error) {
	if template == "" {
		template = DefaultTemplate
	}

	var sb strings.Builder
	for i := 0; i < len(template); i++ {
		ch := template[i]
		switch ch {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				sb.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("template %q: unclosed '{' at offset %d", template, i)
			}
			key := strings.TrimSpace(template[i+1 : i+1+end])
			value, err := f.resolve(key)
			if err != nil {
				return "", fmt.Errorf("template %q: %w", template, err)
			}
			sb.WriteString(value)
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("template %q: unmatched '}' at offset %d", template, i)
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String(), nil
}

func (f Fields) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty placeholder")
	}
	if pos, err := strconv.Atoi(key); err == nil {
		if pos < 0 || pos >= len(f.Groups) {
			return "", fmt.Errorf("placeholder {%d} has no matching capture group (%d available)", pos, len(f.Groups))
		}
		return f.Groups[pos], nil
	}
	if v, ok := f.named(key); ok {
		return v, nil
	}
	return "", fmt.Errorf("unknown placeholder {%s}", key)
}

var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// replaces filesystem-unsafe characters in a basename
func Sanitize(name string) string {
	name = strings.TrimSpace(fileNameReplacer.Replace(name))
	return strings.Trim(name, ". ")
}
