package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/mgpai22/libersonora/internal/audio"
	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/llm"
	"github.com/mgpai22/libersonora/internal/naming"
	"github.com/mgpai22/libersonora/internal/subtitle"
	"github.com/mgpai22/libersonora/internal/transcribe"
)

type fakeNormalizer struct{}

func (fakeNormalizer) Normalize(_ context.Context, u audio.Unit) ([]byte, error) {
	return []byte("wav:" + u.Name()), nil
}

// fails for any audio whose name contains "bad"
type fakeTranscriber struct {
	segments []subtitle.RawSegment
}

func (f fakeTranscriber) Transcribe(_ context.Context, wav []byte, _ transcribe.Options) ([]subtitle.RawSegment, error) {
	if strings.Contains(string(wav), "bad") {
		return nil, errors.New("asr service returned code 1")
	}
	return f.segments, nil
}

var sampleSegments = []subtitle.RawSegment{
	{Text: "你好", Start: 0, End: 1000, Speaker: 0},
	{Text: "世界和平。", Start: 1000, End: 2500, Speaker: 0},
	{Text: "再见！", Start: 3000, End: 4000, Speaker: 1},
}

func stageReplies(replies map[string]func(llm.Request) string) CompleterFactory {
	return func(_ context.Context, _ config.LlmConfig, stage string) (llm.Completer, error) {
		reply, ok := replies[stage]
		if !ok {
			return nil, errors.New("unexpected stage " + stage)
		}
		return llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
			return reply(req), nil
		}), nil
	}
}

func newTestProcessor(t *testing.T, completers CompleterFactory) *Processor {
	t.Helper()
	return NewProcessor(Deps{
		Normalizer:  fakeNormalizer{},
		Transcriber: fakeTranscriber{segments: sampleSegments},
		Completers:  completers,
		Reserver:    &naming.Reserver{LockDir: t.TempDir()},
		LRC:         subtitle.LRCOptions{Reverse: true},
	})
}

func mp3(name string) audio.Unit {
	return audio.MemoryUnit{FileName: name, Data: []byte("ID3 " + name)}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestProcessTranscriptionOnly(t *testing.T) {
	out := t.TempDir()
	p := newTestProcessor(t, nil)
	cfg := &config.PipelineConfig{
		Subtitle: &config.SubtitleConfig{MinTextLength: 5},
		Title:    &config.TitleConfig{SkipRename: true},
	}

	res, err := p.Process(context.Background(), 0, mp3("ep01.mp3"), cfg, out)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	want := subtitle.FormatSpeech(sampleSegments, 5)
	if res.Cues != len(want) {
		t.Errorf("Cues = %d, want %d", res.Cues, len(want))
	}
	if got := listDir(t, out); strings.Join(got, ",") != "ep01.lrc,ep01.srt" {
		t.Errorf("output files = %v, want only subtitles", got)
	}

	srt := readFile(t, filepath.Join(out, "ep01.srt"))
	for _, s := range []string{
		"1\n00:00:00,000 --> 00:00:02,500\n你好 世界和平\n",
		"2\n00:00:03,000 --> 00:00:04,000\n再见\n",
	} {
		if !strings.Contains(srt, s) {
			t.Errorf("srt missing %q:\n%s", s, srt)
		}
	}
	lrc := readFile(t, filepath.Join(out, "ep01.lrc"))
	if !strings.HasPrefix(lrc, "[00:00.00]你好 世界和平\n") {
		t.Errorf("lrc = %q", lrc)
	}
}

func TestProcessAllStages(t *testing.T) {
	out := t.TempDir()
	p := newTestProcessor(t, stageReplies(map[string]func(llm.Request) string{
		StageCorrect: func(llm.Request) string { return "0: 你好，世界和平。" },
		StageTitle:   func(llm.Request) string { return "武松打虎" },
		StageTranslate: func(req llm.Request) string {
			return "T[" + strings.TrimSpace(req.User) + "]."
		},
	}))
	cfg := &config.PipelineConfig{
		Correct:   &config.CorrectConfig{},
		Translate: &config.TranslateConfig{From: "zh", To: "en"},
		Title: &config.TitleConfig{
			Generate:    true,
			Rule:        "{0}_{title}",
			RegexOrigin: config.DefaultRegexOrigin,
		},
	}

	res, err := p.Process(context.Background(), 6, mp3("ep07.mp3"), cfg, out)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Title != "武松打虎" {
		t.Errorf("Title = %q", res.Title)
	}
	if res.Names.Base != "07_武松打虎" {
		t.Errorf("Base = %q", res.Names.Base)
	}

	got := listDir(t, out)
	want := []string{"07_武松打虎.lrc", "07_武松打虎.mp3", "07_武松打虎.srt"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("output files = %v, want %v", got, want)
	}
	if data := readFile(t, filepath.Join(out, "07_武松打虎.mp3")); data != "ID3 ep07.mp3" {
		t.Errorf("audio copy = %q", data)
	}

	srt := readFile(t, filepath.Join(out, "07_武松打虎.srt"))
	if !strings.Contains(srt, "你好，世界和平\nT[你好，世界和平]\n") {
		t.Errorf("srt missing corrected and translated cue:\n%s", srt)
	}
	lrc := readFile(t, filepath.Join(out, "07_武松打虎.lrc"))
	if !strings.HasPrefix(lrc, "[00:00.00]T[你好，世界和平]\n[00:00.00]你好，世界和平\n") {
		t.Errorf("lrc = %q", lrc)
	}
}

func TestProcessFailureWritesNothing(t *testing.T) {
	out := t.TempDir()
	p := newTestProcessor(t, nil)

	_, err := p.Process(context.Background(), 2, mp3("bad.mp3"), &config.PipelineConfig{}, out)
	var fe *FileError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FileError", err)
	}
	if fe.Index != 2 || fe.Stage != StageTranscribe || fe.Name != "bad.mp3" {
		t.Errorf("FileError = %+v", fe)
	}
	if got := listDir(t, out); len(got) != 0 {
		t.Errorf("output files = %v, want none", got)
	}
}

func TestProcessRejectsTranslationMismatch(t *testing.T) {
	out := t.TempDir()
	p := newTestProcessor(t, stageReplies(map[string]func(llm.Request) string{
		StageTranslate: func(llm.Request) string { return "one\ntwo" },
	}))
	cfg := &config.PipelineConfig{Translate: &config.TranslateConfig{From: "zh", To: "en"}}

	_, err := p.Process(context.Background(), 0, mp3("ep01.mp3"), cfg, out)
	var fe *FileError
	if !errors.As(err, &fe) || fe.Stage != StageTranslate {
		t.Fatalf("error = %v, want translate FileError", err)
	}
	if got := listDir(t, out); len(got) != 0 {
		t.Errorf("output files = %v, want none", got)
	}
}

func TestProcessCollisionSuffix(t *testing.T) {
	out := t.TempDir()
	p := newTestProcessor(t, nil)
	cfg := &config.PipelineConfig{}

	for i := 0; i < 2; i++ {
		if _, err := p.Process(context.Background(), i, mp3("ep01.mp3"), cfg, out); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
	}
	want := "ep01-1.lrc,ep01-1.mp3,ep01-1.srt,ep01.lrc,ep01.mp3,ep01.srt"
	if got := strings.Join(listDir(t, out), ","); got != want {
		t.Errorf("output files = %s, want %s", got, want)
	}
}

func TestRunners(t *testing.T) {
	units := []audio.Unit{mp3("a.mp3"), mp3("bad.mp3"), mp3("c.mp3")}
	cfg := &config.PipelineConfig{}

	type runner func(*Processor, context.Context, []audio.Unit, *config.PipelineConfig, string, RunOptions) (BatchResult, error)
	runners := map[string]runner{
		"concurrent": (*Processor).RunConcurrent,
		"sequential": (*Processor).RunSequential,
	}

	for name, run := range runners {
		t.Run(name+"/continue", func(t *testing.T) {
			out := t.TempDir()
			batch, err := run(newTestProcessor(t, nil), context.Background(), units, cfg, out, RunOptions{Policy: Continue, Concurrency: 2})

			var fe *FileError
			if !errors.As(err, &fe) || fe.Index != 1 {
				t.Fatalf("error = %v, want FileError for index 1", err)
			}
			if len(batch.Results) != 2 || batch.Results[0].Source != "a.mp3" || batch.Results[1].Source != "c.mp3" {
				t.Errorf("Results = %+v", batch.Results)
			}
			if len(batch.Failed) != 1 {
				t.Errorf("Failed = %v", batch.Failed)
			}
			if got := len(listDir(t, out)); got != 6 {
				t.Errorf("wrote %d files, want 6", got)
			}
		})

		t.Run(name+"/fail-fast", func(t *testing.T) {
			out := t.TempDir()
			batch, err := run(newTestProcessor(t, nil), context.Background(), units, cfg, out, RunOptions{Policy: FailFast, Concurrency: 1})
			if err == nil {
				t.Fatal("expected error")
			}
			if len(batch.Results) != 0 {
				t.Errorf("Results = %+v, want none", batch.Results)
			}
			if got := listDir(t, out); len(got) != 0 {
				t.Errorf("output files = %v, want cleanup", got)
			}
		})
	}
}

func TestParseErrorPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ErrorPolicy
		wantErr bool
	}{
		{"", FailFast, false},
		{"fail-fast", FailFast, false},
		{"continue", Continue, false},
		{"ignore", "", true},
	}
	for _, tt := range tests {
		got, err := ParseErrorPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseErrorPolicy(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestRenderBase(t *testing.T) {
	tc := &config.TitleConfig{Rule: "{book_title}_{0}_{title}", RegexOrigin: config.DefaultRegexOrigin, BookTitle: "水浒"}
	got, err := RenderBase(tc, 0, "景阳冈", "第12回")
	if err != nil || got != "水浒_12_景阳冈" {
		t.Errorf("RenderBase() = %q, %v", got, err)
	}

	tc.Rule = "{nope}"
	if _, err := RenderBase(tc, 0, "x", "y"); err == nil {
		t.Error("expected error for unknown placeholder")
	}
}

func TestInterleave(t *testing.T) {
	got := Interleave([]string{"你好", "再见"}, []string{"Hello.", "Bye!"})
	want := []string{"你好\nHello", "再见\nBye"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Interleave()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
