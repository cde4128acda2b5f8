package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mgpai22/libersonora/internal/audio"
	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/metrics"
	"github.com/mgpai22/libersonora/internal/pipeline"
	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process [audio_file...]",
	Short: "Transcribe audio files into SRT and LRC subtitles",
	Long: `Run the subtitle pipeline on one or more audio files (.mp3, .wav, .pcm).

Stages are switched on by the pipeline config (JSON or YAML): background
removal, hotwords, LLM correction, title generation and translation.
Files are processed in parallel; by default the first failure cancels the
batch and removes everything it wrote.

Examples:
  libersonora process ep01.mp3 -p pipeline.yaml
  libersonora process *.mp3 -p pipeline.json -o out --zip out.zip
  libersonora process a.wav b.wav -p pipeline.yaml --policy continue --metrics-addr :9090`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().
		StringP("pipeline", "p", "", "Pipeline config file (.json, .yaml, .yml)")
	processCmd.Flags().
		StringP("out-dir", "o", "output", "Directory for the generated files")
	processCmd.Flags().
		String("zip", "", "Also package the generated files into this ZIP archive")
	processCmd.Flags().
		String("policy", "", "Error policy: fail-fast or continue (default from settings)")
	processCmd.Flags().
		Int("concurrency", 0, "Number of files processed in parallel (default from settings)")
	processCmd.Flags().
		String("metrics-addr", "", "Serve Prometheus metrics on this address while running")

	_ = processCmd.MarkFlagRequired("pipeline")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pipelinePath, _ := cmd.Flags().GetString("pipeline")
	outDir, _ := cmd.Flags().GetString("out-dir")
	zipPath, _ := cmd.Flags().GetString("zip")
	policyStr, _ := cmd.Flags().GetString("policy")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	if err := checkAudioFiles(args); err != nil {
		return err
	}
	cfg, err := config.LoadPipeline(pipelinePath)
	if err != nil {
		return err
	}

	fallback := pipeline.Continue
	if settings.Output.FailFast {
		fallback = pipeline.FailFast
	}
	policy, err := resolvePolicy(policyStr, fallback)
	if err != nil {
		return err
	}
	if concurrency <= 0 {
		concurrency = settings.Output.Concurrency
	}

	m := metrics.NewMetrics()
	if metricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, metricsAddr); err != nil {
				logger.Warnw("Metrics endpoint stopped", "addr", metricsAddr, "error", err)
			}
		}()
		logger.Infow("Serving metrics", "addr", metricsAddr)
	}

	processor, err := newProcessor(settings, m, logger)
	if err != nil {
		return err
	}

	logger.Infow("Starting subtitle pipeline",
		"files", len(args),
		"output", outDir,
		"policy", policy,
		"concurrency", concurrency,
		"remove_background", cfg.RemoveBackground,
		"correct", cfg.Correct != nil,
		"translate", cfg.Translate != nil,
		"title", cfg.GeneratesTitle(),
	)

	batch, runErr := processor.RunConcurrent(ctx, audio.FileUnits(args), cfg, outDir, pipeline.RunOptions{
		Policy:      policy,
		Concurrency: concurrency,
	})

	if zipPath != "" && len(batch.Results) > 0 {
		if err := writeZip(zipPath, batch.Paths()); err != nil {
			return err
		}
		absZip, _ := filepath.Abs(zipPath)
		fmt.Printf("Archive written: %s\n", absZip)
	}

	printBatch(batch)
	return runErr
}

func printBatch(batch pipeline.BatchResult) {
	if len(batch.Results) > 0 {
		fmt.Printf("Subtitles generated: %d file(s)\n", len(batch.Results))
		for _, r := range batch.Results {
			fmt.Printf("  %s -> %s (%d cues, %s)\n", r.Source, r.Names.Base, r.Cues, r.Elapsed.Round(time.Millisecond))
		}
	}
	if len(batch.Failed) > 0 {
		fmt.Printf("Failed: %d file(s)\n", len(batch.Failed))
		for _, f := range batch.Failed {
			fmt.Printf("  %s: %s: %v\n", f.Name, f.Stage, f.Err)
		}
	}
}
