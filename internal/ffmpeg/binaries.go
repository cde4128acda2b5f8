package ffmpeg

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// overrides the ffmpeg binary location
const EnvFFmpegPath = "LIBERSONORA_FFMPEG_PATH"

var ErrNotFound = errors.New("ffmpeg not found: install it, set " + EnvFFmpegPath + ", or set services.ffmpeg_path")

// Locate resolves the ffmpeg binary: the environment override first, then the
// configured path, then $PATH.
func Locate(configured string) (string, error) {
	return locate(configured, os.Getenv, exec.LookPath)
}

func locate(configured string, getenv func(string) string, lookPath func(string) (string, error)) (string, error) {
	for _, candidate := range []string{getenv(EnvFFmpegPath), configured} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if !isExecutable(candidate) {
			return "", fmt.Errorf("ffmpeg at %s is not an executable file", candidate)
		}
		return candidate, nil
	}

	if found, err := lookPath("ffmpeg"); err == nil {
		return found, nil
	}
	return "", ErrNotFound
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
