package job

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/pipeline"
)

// starts the worker process and returns its pid without waiting for it
type Starter func(exe string, args []string, logFile string) (int, error)

// handle returned to the caller; there is no channel back to the worker
type Job struct {
	ID      string
	PID     int
	LogFile string
}

type Launcher struct {
	StateDir   string
	LogDir     string
	Policy     pipeline.ErrorPolicy
	Executable string
	// global flags passed to the worker before the subcommand, e.g. --config
	Args  []string
	Start Starter
	NewID func() string
}

func NewLauncher(stateDir, logDir string) (*Launcher, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return &Launcher{
		StateDir:   stateDir,
		LogDir:     logDir,
		Executable: exe,
		Start:      StartDetached,
		NewID:      uuid.NewString,
	}, nil
}

// Launch persists the batch and starts a detached worker for it.
func (l *Launcher) Launch(ctx context.Context, cfg *config.PipelineConfig, files []string, outDir string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	if len(files) == 0 {
		return Job{}, fmt.Errorf("no input files")
	}

	abs := make([]string, len(files))
	for i, f := range files {
		p, err := filepath.Abs(f)
		if err != nil {
			return Job{}, fmt.Errorf("resolve %s: %w", f, err)
		}
		abs[i] = p
	}
	out, err := filepath.Abs(outDir)
	if err != nil {
		return Job{}, fmt.Errorf("resolve output dir: %w", err)
	}

	newID := l.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	st := &State{ID: newID(), OutDir: out, Policy: l.Policy, Pipeline: cfg, Files: abs}
	if l.LogDir != "" {
		if err := os.MkdirAll(l.LogDir, 0755); err != nil {
			return Job{}, fmt.Errorf("create log dir: %w", err)
		}
		st.LogFile = filepath.Join(l.LogDir, "libersonora_"+st.ID+".log")
	}

	if err := Save(l.StateDir, st); err != nil {
		return Job{}, err
	}

	args := append(append([]string{}, l.Args...), "worker", "--state-dir", l.StateDir, "--job", st.ID)
	pid, err := l.Start(l.Executable, args, st.LogFile)
	if err != nil {
		_ = Remove(l.StateDir, st.ID)
		return Job{}, fmt.Errorf("start worker: %w", err)
	}
	return Job{ID: st.ID, PID: pid, LogFile: st.LogFile}, nil
}

// StartDetached runs exe in its own session with output appended to logFile,
// then releases it so the caller can exit.
func StartDetached(exe string, args []string, logFile string) (int, error) {
	cmd := exec.Command(exe, args...)
	cmd.SysProcAttr = detachAttr()

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return 0, fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("release worker: %w", err)
	}
	return pid, nil
}
