package job

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/mgpai22/libersonora/internal/audio"
	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/logging"
	"github.com/mgpai22/libersonora/internal/pipeline"
)

// sequential batch runner; *pipeline.Processor satisfies it
type Runner interface {
	RunSequential(ctx context.Context, units []audio.Unit, cfg *config.PipelineConfig, outDir string, opts pipeline.RunOptions) (pipeline.BatchResult, error)
}

// RunWorker processes the job's files one at a time, then removes the state
// documents. It takes ownership of logger and closes it before deciding on the
// log file: removed after a fully successful batch, kept otherwise.
func RunWorker(ctx context.Context, stateDir string, st *State, runner Runner, logger *logging.Logger) error {
	policy := st.Policy
	if policy == "" {
		policy = pipeline.Continue
	}
	start := time.Now()
	logger.Infow("Background job started",
		"job", st.ID,
		"files", len(st.Files),
		"output", st.OutDir,
		"policy", policy,
	)

	batch, err := runner.RunSequential(ctx, audio.FileUnits(st.Files), st.Pipeline, st.OutDir, pipeline.RunOptions{Policy: policy})
	if err != nil {
		for _, f := range batch.Failed {
			logger.Errorw("File failed", "index", f.Index+1, "file", f.Name, "stage", f.Stage, "error", f.Err)
		}
	}
	logger.Infow("Background job finished",
		"job", st.ID,
		"succeeded", len(batch.Results),
		"failed", len(batch.Failed),
		"elapsed", time.Since(start),
	)

	if rmErr := Remove(stateDir, st.ID); rmErr != nil {
		logger.Warnw("Could not remove job state", "job", st.ID, "error", rmErr)
	}
	closeErr := logger.Close()

	if err == nil && st.LogFile != "" {
		if rmErr := os.Remove(st.LogFile); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return rmErr
		}
	}
	if err != nil {
		return err
	}
	return closeErr
}
