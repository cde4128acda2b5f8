package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// converts any input container to the WAV layout the backends expect
type Normalizer interface {
	Normalize(ctx context.Context, u Unit) ([]byte, error)
}

// settings for normalization
type NormalizeOptions struct {
	SampleRate int // Sample rate in Hz
	Channels   int // Number of channels (1=mono, 2=stereo)
}

// defaults for the ASR and enhancement services
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		SampleRate: 48000,
		Channels:   1,
	}
}

// runs ffmpeg to produce 16-bit PCM WAV
type FFmpegNormalizer struct {
	ffmpegPath string
	tempDir    string
	opts       NormalizeOptions
}

func NewFFmpegNormalizer(ffmpegPath, tempDir string, opts NormalizeOptions) *FFmpegNormalizer {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultNormalizeOptions().SampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = DefaultNormalizeOptions().Channels
	}
	return &FFmpegNormalizer{ffmpegPath: ffmpegPath, tempDir: tempDir, opts: opts}
}

func (n *FFmpegNormalizer) Normalize(ctx context.Context, u Unit) ([]byte, error) {
	workDir, err := os.MkdirTemp(n.tempDir, "libersonora-normalize-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputPath, err := n.inputPath(u, workDir)
	if err != nil {
		return nil, err
	}
	outputPath := filepath.Join(workDir, "normalized.wav")

	kwargs := ffmpeg.KwArgs{
		"vn":     "", // No video
		"acodec": "pcm_s16le",
		"ar":     n.opts.SampleRate,
		"ac":     n.opts.Channels,
	}

	var stderr bytes.Buffer
	stream := ffmpeg.Input(inputPath).
		Output(outputPath, kwargs).
		OverWriteOutput().
		WithErrorOutput(&stderr)
	if n.ffmpegPath != "" {
		stream = stream.SetFfmpegPath(n.ffmpegPath)
	}

	if err := runWithContext(ctx, stream.Compile()); err != nil {
		return nil, fmt.Errorf("ffmpeg conversion of %s failed: %w: %s", u.Name(), err, lastLine(stderr.String()))
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read normalized audio: %w", err)
	}
	return data, nil
}

// approximate playback length of WAV produced with these options
func (n *FFmpegNormalizer) Duration(wav []byte) time.Duration {
	const headerBytes = 44
	bytesPerSecond := n.opts.SampleRate * n.opts.Channels * 2
	if len(wav) <= headerBytes || bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(float64(len(wav)-headerBytes) / float64(bytesPerSecond) * float64(time.Second))
}

// on-disk units are read in place; others are spilled to workDir
func (n *FFmpegNormalizer) inputPath(u Unit, workDir string) (string, error) {
	if fu, ok := u.(FileUnit); ok {
		if _, err := os.Stat(fu.Path); err != nil {
			return "", fmt.Errorf("input file not found: %s", fu.Path)
		}
		return fu.Path, nil
	}

	data, err := u.Bytes()
	if err != nil {
		return "", err
	}
	path := filepath.Join(workDir, "input"+Ext(u))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to stage input audio: %w", err)
	}
	return path, nil
}
