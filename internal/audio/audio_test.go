package audio

import (
	"context"
	"encoding/binary"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestUnits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Ep01.MP3")
	if err := os.WriteFile(path, []byte("ID3"), 0644); err != nil {
		t.Fatal(err)
	}

	units := []Unit{FileUnit{Path: path}, MemoryUnit{FileName: "Ep01.MP3", Data: []byte("ID3")}}
	for _, u := range units {
		if u.Name() != "Ep01.MP3" {
			t.Errorf("Name() = %q", u.Name())
		}
		if Ext(u) != ".mp3" {
			t.Errorf("Ext() = %q", Ext(u))
		}
		if Basename(u) != "Ep01" {
			t.Errorf("Basename() = %q", Basename(u))
		}
		data, err := u.Bytes()
		if err != nil || string(data) != "ID3" {
			t.Errorf("Bytes() = %q, %v", data, err)
		}
	}

	if _, err := (FileUnit{Path: filepath.Join(t.TempDir(), "missing.wav")}).Bytes(); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestListAudioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.wav", "A.mp3", "c.PCM", "notes.txt", "d.flac"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.wav"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub.wav", "B2.mp3"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	files, err := ListAudioFiles(dir)
	if err != nil {
		t.Fatalf("ListAudioFiles() error = %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	if got := strings.Join(names, ","); got != "A.mp3,b.wav,B2.mp3,c.PCM" {
		t.Errorf("ListAudioFiles() = %s", got)
	}
	if len(FileUnits(files)) != 4 {
		t.Error("FileUnits length mismatch")
	}
}

func TestNormalizerDuration(t *testing.T) {
	n := NewFFmpegNormalizer("", "", NormalizeOptions{})
	wav := make([]byte, 44+96000*2)
	if got := n.Duration(wav); got != 2*time.Second {
		t.Errorf("Duration() = %v, want 2s", got)
	}
	if n.Duration(nil) != 0 {
		t.Error("Duration(nil) should be 0")
	}
}

func TestFFmpegNormalizerIntegration(t *testing.T) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}

	// one second of 8 kHz stereo silence
	input := silentWAV(8000, 2, 8000)
	n := NewFFmpegNormalizer(ffmpegPath, t.TempDir(), DefaultNormalizeOptions())

	out, err := n.Normalize(context.Background(), MemoryUnit{FileName: "in.wav", Data: input})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if string(out[:4]) != "RIFF" {
		t.Fatalf("output is not WAV")
	}
	if rate := binary.LittleEndian.Uint32(out[24:28]); rate != 48000 {
		t.Errorf("sample rate = %d, want 48000", rate)
	}
	if channels := binary.LittleEndian.Uint16(out[22:24]); channels != 1 {
		t.Errorf("channels = %d, want 1", channels)
	}
}

func TestFFmpegNormalizerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := NewFFmpegNormalizer("ffmpeg", t.TempDir(), DefaultNormalizeOptions())
	if _, err := n.Normalize(ctx, MemoryUnit{FileName: "x.wav", Data: []byte("x")}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func silentWAV(sampleRate, channels, frames int) []byte {
	dataLen := frames * channels * 2
	buf := make([]byte, 44+dataLen)
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataLen))
	copy(buf[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1)
	binary.LittleEndian.PutUint16(buf[22:], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:], uint32(sampleRate*channels*2))
	binary.LittleEndian.PutUint16(buf[32:], uint16(channels*2))
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataLen))
	return buf
}
