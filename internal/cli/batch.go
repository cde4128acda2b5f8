package cli

import (
	"fmt"
	"path/filepath"

	"github.com/mgpai22/libersonora/internal/audio"
	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/job"
	"github.com/mgpai22/libersonora/internal/pipeline"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch [input_dir]",
	Short: "Process a directory of audio files in the background",
	Long: `Queue every audio file under input_dir (recursively) for a detached
background worker and return immediately.

Files are processed one at a time to keep load on the ASR and enhancement
services low. Progress is visible through the output directory (see the
outputs command) and the job log, which is removed when every file succeeds.

Examples:
  libersonora batch ./book -p pipeline.yaml -o ./book-subs
  libersonora batch ./book -p pipeline.yaml --policy fail-fast`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().
		StringP("pipeline", "p", "", "Pipeline config file (.json, .yaml, .yml)")
	batchCmd.Flags().
		StringP("out-dir", "o", "output", "Directory for the generated files")
	batchCmd.Flags().
		String("policy", string(pipeline.Continue), "Error policy: fail-fast or continue")

	_ = batchCmd.MarkFlagRequired("pipeline")
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputDir := args[0]

	pipelinePath, _ := cmd.Flags().GetString("pipeline")
	outDir, _ := cmd.Flags().GetString("out-dir")
	policyStr, _ := cmd.Flags().GetString("policy")

	policy, err := resolvePolicy(policyStr, pipeline.Continue)
	if err != nil {
		return err
	}
	cfg, err := config.LoadPipeline(pipelinePath)
	if err != nil {
		return err
	}

	files, err := audio.ListAudioFiles(inputDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no audio files found in %s", inputDir)
	}

	launcher, err := job.NewLauncher(settings.Jobs.StateDir, settings.Jobs.LogDir)
	if err != nil {
		return err
	}
	launcher.Policy = policy
	launcher.Args, err = workerGlobalArgs()
	if err != nil {
		return err
	}

	j, err := launcher.Launch(cmd.Context(), cfg, files, outDir)
	if err != nil {
		return err
	}

	logger.Infow("Background job launched",
		"job", j.ID,
		"pid", j.PID,
		"files", len(files),
		"policy", policy,
	)

	absOut, _ := filepath.Abs(outDir)
	fmt.Printf("Background job started: %s\n", j.ID)
	fmt.Printf("  Files: %d\n", len(files))
	fmt.Printf("  Output: %s\n", absOut)
	if j.LogFile != "" {
		fmt.Printf("  Log: %s\n", j.LogFile)
	}
	return nil
}

// global flags the worker needs to see the same settings
func workerGlobalArgs() ([]string, error) {
	var args []string
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", abs)
	}
	if verbose {
		args = append(args, "--verbose")
	}
	return args, nil
}
