package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseSRT(t *testing.T) {
	content := "\ufeff" + `1
00:00:01,000 --> 00:00:04,000
Hello, world!

2
00:00:05,500 --> 00:00:08,200
This is a test.
With multiple lines.

3
00:00:10,000 --> 00:00:12,500
Final subtitle.
`
	segments, err := ParseSRT(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseSRT() error = %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if segments[0].StartTime != 1*time.Second || segments[0].EndTime != 4*time.Second {
		t.Errorf("segment 0 times = %v-%v", segments[0].StartTime, segments[0].EndTime)
	}
	if segments[1].Text != "This is a test.\nWith multiple lines." {
		t.Errorf("segment 1 text = %q", segments[1].Text)
	}
	if segments[1].StartTime != 5500*time.Millisecond {
		t.Errorf("segment 1 start = %v", segments[1].StartTime)
	}
}

func TestParseSRTRoundTripsRender(t *testing.T) {
	in := []Segment{
		{Text: "你好世界", StartTime: 0, EndTime: 1500 * time.Millisecond},
		{Text: "第二句\nsecond line", StartTime: 2 * time.Second, EndTime: 3 * time.Second},
	}
	out, err := ParseSRT(strings.NewReader(RenderSRT(in)))
	if err != nil {
		t.Fatalf("ParseSRT() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d segments, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Text != in[i].Text || out[i].StartTime != in[i].StartTime || out[i].EndTime != in[i].EndTime {
			t.Errorf("segment %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestReadText(t *testing.T) {
	dir := t.TempDir()
	srtPath := filepath.Join(dir, "ep001.srt")
	lrcPath := filepath.Join(dir, "ep001.lrc")

	if err := os.WriteFile(srtPath, []byte("1\n00:00:00,000 --> 00:00:01,000\nfirst\n\n2\n00:00:01,000 --> 00:00:02,000\nsecond\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(lrcPath, []byte("[00:00.00]first\n[00:01.00]second\n"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{srtPath, lrcPath} {
		got, err := ReadText(path)
		if err != nil {
			t.Fatalf("ReadText(%s) error = %v", filepath.Base(path), err)
		}
		if got != "first\nsecond" {
			t.Errorf("ReadText(%s) = %q", filepath.Base(path), got)
		}
	}

	if _, err := ReadText(filepath.Join(dir, "x.vtt")); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestLRCText(t *testing.T) {
	content := "[00:01.50]translated\r\n[00:01.50]original\n\n[12:03.07][12:04.00]twice tagged\nplain\n"
	want := "translated\noriginal\ntwice tagged\nplain"
	if got := LRCText(content); got != want {
		t.Errorf("LRCText() = %q, want %q", got, want)
	}
}
