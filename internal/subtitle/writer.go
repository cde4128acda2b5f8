package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type LRCOptions struct {
	// emit the physical lines of a multi-line cue last-to-first
	Reverse bool
}

// renders indexed SubRip blocks
func RenderSRT(segments []Segment) string {
	var sb strings.Builder
	for i, seg := range segments {
		// index (1-based)
		fmt.Fprintf(&sb, "%d\n", i+1)

		// timestamps: 00:00:00,000 --> 00:00:00,000
		fmt.Fprintf(&sb, "%s --> %s\n", formatSRTTime(seg.StartTime), formatSRTTime(seg.EndTime))

		sb.WriteString(seg.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// renders one [MM:SS.xx] tagged line per physical cue line
func RenderLRC(segments []Segment, opts LRCOptions) string {
	var sb strings.Builder
	for _, seg := range segments {
		tag := formatLRCTime(seg.StartTime)
		lines := strings.Split(seg.Text, "\n")
		if opts.Reverse {
			for i := len(lines) - 1; i >= 0; i-- {
				fmt.Fprintf(&sb, "[%s]%s\n", tag, lines[i])
			}
			continue
		}
		for _, line := range lines {
			fmt.Fprintf(&sb, "[%s]%s\n", tag, line)
		}
	}
	return sb.String()
}

// writes content to path, creating parent directories
func WriteFile(path, content string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

func formatSRTTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

// minutes are not wrapped at the hour
func formatLRCTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	centis := (int(d.Milliseconds()) % 1000) / 10

	return fmt.Sprintf("%02d:%02d.%02d", minutes, seconds, centis)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}
