package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	logger     *logging.Logger
	settings   *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "libersonora",
	Short: "Audiobook transcription and subtitle pipeline",
	Long: `Libersonora turns audiobook recordings into SRT and LRC subtitles.

Each file is normalized with ffmpeg, optionally cleaned by a speech
enhancement service, transcribed by a FunASR service and then optionally
corrected, titled and translated by an LLM.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, path, found, err := config.LoadSettings(configPath)
		if err != nil {
			return err
		}
		settings = s

		if verbose {
			logger = logging.NewLogger(true)
		} else {
			logger, err = logging.New(logging.Options{
				Level:  s.Logging.Level,
				Format: s.Logging.Format,
				File:   s.Logging.File,
			})
			if err != nil {
				return err
			}
		}
		logger.Debugw("Settings loaded", "path", path, "found", found)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	},
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "Settings file (default ~/.config/libersonora/config.toml)")
}
