package output

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mgpai22/libersonora/internal/audio"
)

// the artifacts found under one relative basename
type Entry struct {
	RelativePath string
	Audio        string
	SRT          string
	LRC          string
}

func (e Entry) HasAudio() bool { return e.Audio != "" }
func (e Entry) HasSRT() bool   { return e.SRT != "" }
func (e Entry) HasLRC() bool   { return e.LRC != "" }

// Scan walks dir recursively and groups audio, .srt and .lrc files by their
// path relative to dir without extension. Groups with neither subtitle are left out.
func Scan(dir string) ([]Entry, error) {
	byKey := map[string]*Entry{}
	get := func(key string) *Entry {
		e, ok := byKey[key]
		if !ok {
			e = &Entry{RelativePath: key}
			byKey[key] = e
		}
		return e
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		ext := filepath.Ext(rel)
		key := filepath.ToSlash(strings.TrimSuffix(rel, ext))

		switch {
		case strings.EqualFold(ext, ".srt"):
			get(key).SRT = path
		case strings.EqualFold(ext, ".lrc"):
			get(key).LRC = path
		case audio.IsAudioFile(path):
			get(key).Audio = path
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan output dir: %w", err)
	}

	entries := make([]Entry, 0, len(byKey))
	for _, e := range byKey {
		if e.HasSRT() || e.HasLRC() {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelativePath < entries[j].RelativePath
	})
	return entries, nil
}
