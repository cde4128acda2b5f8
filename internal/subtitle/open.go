package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadText returns the plain cue text of an .srt or .lrc file, one cue line per line.
func ReadText(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case FormatLRC.Extension():
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read LRC file: %w", err)
		}
		return LRCText(string(data)), nil
	case FormatSRT.Extension():
		file, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open SRT file: %w", err)
		}
		defer file.Close()

		segments, err := ParseSRT(file)
		if err != nil {
			return "", err
		}
		return strings.Join(Texts(segments), "\n"), nil
	default:
		return "", fmt.Errorf("unsupported subtitle format: %s", ext)
	}
}
