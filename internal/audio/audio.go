package audio

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// extensions picked up when scanning a directory
var Extensions = []string{".mp3", ".wav", ".pcm"}

// read-only input audio: uploaded bytes or a file on disk
type Unit interface {
	Name() string
	Bytes() ([]byte, error)
}

// audio already on disk
type FileUnit struct {
	Path string
}

func (u FileUnit) Name() string { return filepath.Base(u.Path) }

func (u FileUnit) Bytes() ([]byte, error) {
	data, err := os.ReadFile(u.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	return data, nil
}

// audio held in memory, e.g. an upload
type MemoryUnit struct {
	FileName string
	Data     []byte
}

func (u MemoryUnit) Name() string { return u.FileName }

func (u MemoryUnit) Bytes() ([]byte, error) { return u.Data, nil }

// lower-cased extension including the dot
func Ext(u Unit) string {
	return strings.ToLower(filepath.Ext(u.Name()))
}

// name without directory or extension
func Basename(u Unit) string {
	name := filepath.Base(u.Name())
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func IsAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// audio files under dir, recursively, sorted by lower-cased basename
func ListAudioFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsAudioFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(files[i])) < strings.ToLower(filepath.Base(files[j]))
	})
	return files, nil
}

// FileUnits wraps paths as units.
func FileUnits(paths []string) []Unit {
	units := make([]Unit, len(paths))
	for i, p := range paths {
		units[i] = FileUnit{Path: p}
	}
	return units
}
