package cli

import (
	"github.com/mgpai22/libersonora/internal/job"
	"github.com/mgpai22/libersonora/internal/logging"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Run a background job (started by batch)",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().String("state-dir", "", "Directory holding the job state files")
	workerCmd.Flags().String("job", "", "Job identifier")

	_ = workerCmd.MarkFlagRequired("state-dir")
	_ = workerCmd.MarkFlagRequired("job")
}

func runWorker(cmd *cobra.Command, args []string) error {
	stateDir, _ := cmd.Flags().GetString("state-dir")
	id, _ := cmd.Flags().GetString("job")

	st, err := job.Load(stateDir, id)
	if err != nil {
		return err
	}

	level := settings.Logging.Level
	if verbose {
		level = "debug"
	}
	jobLog, err := logging.New(logging.Options{
		Level:  level,
		Format: settings.Logging.Format,
		File:   st.LogFile,
	})
	if err != nil {
		return err
	}

	processor, err := newProcessor(settings, nil, jobLog)
	if err != nil {
		jobLog.Errorw("Could not start job", "job", id, "error", err)
		_ = jobLog.Close()
		return err
	}
	return job.RunWorker(cmd.Context(), stateDir, st, processor, jobLog)
}
