package ffmpeg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(dir, "plain")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	onPath := func(string) (string, error) { return "/usr/bin/ffmpeg", nil }
	notOnPath := func(string) (string, error) { return "", errors.New("missing") }
	env := func(v string) func(string) string {
		return func(string) string { return v }
	}

	tests := []struct {
		name       string
		configured string
		getenv     func(string) string
		lookPath   func(string) (string, error)
		want       string
		wantErr    bool
	}{
		{name: "env wins", configured: plain, getenv: env(exe), lookPath: onPath, want: exe},
		{name: "configured", configured: exe, getenv: env(""), lookPath: onPath, want: exe},
		{name: "path fallback", getenv: env(""), lookPath: onPath, want: "/usr/bin/ffmpeg"},
		{name: "not executable", configured: plain, getenv: env(""), lookPath: onPath, wantErr: true},
		{name: "nowhere", getenv: env(""), lookPath: notOnPath, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := locate(tt.configured, tt.getenv, tt.lookPath)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("locate() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("locate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("locate() = %q, want %q", got, tt.want)
			}
		})
	}
}
