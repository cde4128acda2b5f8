package naming

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		fields   Fields
		want     string
		wantErr  bool
	}{
		{
			name:     "named placeholders",
			template: "{origin}_{index}_{title}",
			fields:   Fields{Origin: "ep001", Index: 0, Title: "Intro"},
			want:     "ep001_001_Intro",
		},
		{
			name:     "positional groups",
			template: "{book_title}-{0}-{author}",
			fields:   Fields{BookTitle: "Book", Author: "Ann", Groups: []string{"12"}},
			want:     "Book-12-Ann",
		},
		{
			name:     "escaped braces",
			template: "{{{index}}}",
			fields:   Fields{Index: 41},
			want:     "{042}",
		},
		{
			name:     "empty template uses origin",
			template: "",
			fields:   Fields{Origin: "track"},
			want:     "track",
		},
		{
			name:     "positional out of range",
			template: "{1}",
			fields:   Fields{Groups: []string{"1"}},
			wantErr:  true,
		},
		{
			name:     "positional without match",
			template: "{0}_{title}",
			fields:   Fields{Title: "x"},
			wantErr:  true,
		},
		{name: "unknown name", template: "{chapter}", wantErr: true},
		{name: "unclosed", template: "{origin", wantErr: true},
		{name: "stray close", template: "origin}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, tt.fields)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Render() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		origin  string
		pattern string
		want    []string
	}{
		{origin: "第12集_final3", pattern: "", want: []string{"12"}},
		{origin: "s02e07", pattern: `s(\d+)e(\d+)`, want: []string{"02", "07"}},
		{origin: "nodigits", pattern: "", want: nil},
	}
	for _, tt := range tests {
		got, err := Extract(tt.origin, tt.pattern)
		if err != nil {
			t.Fatalf("Extract(%q) error = %v", tt.origin, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("Extract(%q) = %v, want %v", tt.origin, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Extract(%q)[%d] = %q, want %q", tt.origin, i, got[i], tt.want[i])
			}
		}
	}
	if _, err := Extract("x", "("); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"a/b:c":     "a-b-c",
		` "why?" `:  "why",
		"..hidden.": "hidden",
		"第1章 <开始>|": "第1章 开始",
	}
	for in, want := range tests {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func newTestReserver(t *testing.T) *Reserver {
	r := NewReserver()
	r.LockDir = filepath.Join(t.TempDir(), "locks")
	return r
}

func TestReserveCollision(t *testing.T) {
	dir := t.TempDir()
	r := newTestReserver(t)
	ctx := context.Background()

	base, err := Render("{origin}_{index}_{title}", Fields{Origin: "ep001", Index: 0, Title: "Intro"})
	if err != nil {
		t.Fatal(err)
	}

	names, err := r.Reserve(ctx, dir, base, ".mp3")
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if names.Base != "ep001_001_Intro" {
		t.Errorf("Base = %q", names.Base)
	}
	if _, err := os.Stat(names.SRT); err != nil {
		t.Errorf("SRT marker not created: %v", err)
	}

	// a stray audio file alone also blocks the name
	os.Remove(names.SRT)
	if err := os.WriteFile(filepath.Join(dir, "ep001_001_Intro.mp3"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	names, err = r.Reserve(ctx, dir, base, ".mp3")
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if names.Base != "ep001_001_Intro-1" {
		t.Errorf("Base = %q, want ep001_001_Intro-1", names.Base)
	}
	if filepath.Base(names.Audio) != "ep001_001_Intro-1.mp3" || filepath.Base(names.LRC) != "ep001_001_Intro-1.lrc" {
		t.Errorf("artifacts not in lockstep: %+v", names)
	}
}

func TestReserveWithoutAudio(t *testing.T) {
	dir := t.TempDir()
	names, err := newTestReserver(t).Reserve(context.Background(), dir, "clip", "")
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if names.Audio != "" || len(names.Paths()) != 2 {
		t.Errorf("names = %+v, want no audio path", names)
	}
}

func TestReserveConcurrent(t *testing.T) {
	dir := t.TempDir()
	r := newTestReserver(t)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			names, err := r.Reserve(context.Background(), dir, "same", ".wav")
			results[i], errs[i] = names.Base, err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("Reserve() error = %v", err)
		}
	}
	sort.Strings(results)
	seen := map[string]bool{}
	for _, b := range results {
		if seen[b] {
			t.Fatalf("duplicate reservation %q in %v", b, results)
		}
		seen[b] = true
	}
	if !seen["same"] || !seen["same-7"] {
		t.Errorf("results = %v, want same..same-7", results)
	}
}
