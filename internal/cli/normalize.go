package cli

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/libersonora/internal/audio"
	"github.com/mgpai22/libersonora/internal/resilient"
	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [audio_file]",
	Short: "Convert an audio file to the WAV the pipeline sends to ASR",
	Long: `Convert an audio file to 16-bit PCM WAV the same way the pipeline does
before transcription, optionally passing it through the enhancement service.
Handy for checking what the ASR service actually hears.

Examples:
  libersonora normalize ep01.mp3
  libersonora normalize ep01.mp3 -o ep01.clean.wav --enhance
  libersonora normalize ep01.mp3 --sample-rate 16000`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().
		StringP("out", "o", "", "Output WAV path (default: <input>.wav next to the input)")
	normalizeCmd.Flags().
		IntP("sample-rate", "r", audio.DefaultNormalizeOptions().SampleRate, "Sample rate in Hz")
	normalizeCmd.Flags().
		Int("channels", audio.DefaultNormalizeOptions().Channels, "Number of audio channels (1=mono, 2=stereo)")
	normalizeCmd.Flags().
		Bool("enhance", false, "Remove background noise with the enhancement service")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	ctx := cmd.Context()

	outputPath, _ := cmd.Flags().GetString("out")
	sampleRate, _ := cmd.Flags().GetInt("sample-rate")
	channels, _ := cmd.Flags().GetInt("channels")
	enhanceAudio, _ := cmd.Flags().GetBool("enhance")

	if err := checkAudioFiles(args); err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".normalized.wav"
	}

	normalizer, err := newNormalizer(settings, audio.NormalizeOptions{SampleRate: sampleRate, Channels: channels})
	if err != nil {
		return err
	}

	logger.Infow("Normalizing audio",
		"input", inputPath,
		"output", outputPath,
		"sample_rate", sampleRate,
		"channels", channels,
		"enhance", enhanceAudio,
	)

	wav, err := normalizer.Normalize(ctx, audio.FileUnit{Path: inputPath})
	if err != nil {
		return fmt.Errorf("normalization failed: %w", err)
	}

	if enhanceAudio {
		client := resilient.NewClient(&http.Client{}, serviceRetrier(settings, nil, logger))
		enhancer, err := newEnhancer(settings, client)
		if err != nil {
			return err
		}
		wav, err = enhancer.Enhance(ctx, wav)
		if err != nil {
			return fmt.Errorf("enhancement failed: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, wav, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Audio normalized successfully: %s\n", absOutput)
	if !enhanceAudio {
		fmt.Printf("  Duration: %s\n", normalizer.Duration(wav))
	}
	return nil
}
