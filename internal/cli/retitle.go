package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/libersonora/internal/audio"
	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/naming"
	"github.com/mgpai22/libersonora/internal/pipeline"
	"github.com/mgpai22/libersonora/internal/subtitle"
	"github.com/mgpai22/libersonora/internal/transform"
	"github.com/spf13/cobra"
)

// swapped in tests
var rename = os.Rename

var retitleCmd = &cobra.Command{
	Use:   "retitle [subtitle_file]",
	Short: "Generate a new title for existing subtitles and rename them",
	Long: `Read an existing .lrc or .srt file, ask the title LLM for a chapter
title and rename the whole artifact set (audio copy, SRT and LRC) with the
naming rule from the pipeline config's title section.

Examples:
  libersonora retitle output/ep07.lrc -p pipeline.yaml
  libersonora retitle output/ep07.srt -p pipeline.yaml --index 7`,
	Args: cobra.ExactArgs(1),
	RunE: runRetitle,
}

func init() {
	rootCmd.AddCommand(retitleCmd)

	retitleCmd.Flags().
		StringP("pipeline", "p", "", "Pipeline config file with a title section")
	retitleCmd.Flags().
		Int("index", 1, "Position of the file in its book, used by {index}")

	_ = retitleCmd.MarkFlagRequired("pipeline")
}

func runRetitle(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := cmd.Context()

	pipelinePath, _ := cmd.Flags().GetString("pipeline")
	index, _ := cmd.Flags().GetInt("index")
	if index < 1 {
		return fmt.Errorf("index must be positive, got %d", index)
	}

	cfg, err := config.LoadPipeline(pipelinePath)
	if err != nil {
		return err
	}
	if !cfg.GeneratesTitle() {
		return &config.ConfigurationError{Field: "title", Reason: "title.generate must be enabled and skip_rename off"}
	}
	tc := cfg.Title

	content, err := subtitle.ReadText(path)
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("no subtitle text in %s", path)
	}

	completer, err := pipeline.RetryingCompleters(llmRetrier(settings, nil, logger))(ctx, tc.LLM, pipeline.StageTitle)
	if err != nil {
		return err
	}

	logger.Infow("Generating title", "input", path, "provider", tc.LLM.ProviderName(), "model", tc.LLM.Model)
	title, err := transform.NewTitleGenerator(completer, tc.BookTitle, tc.Author, tc.Lang).Generate(ctx, content)
	if err != nil {
		return fmt.Errorf("title generation failed: %w", err)
	}

	dir := filepath.Dir(path)
	origin := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base, err := pipeline.RenderBase(tc, index-1, title, origin)
	if err != nil {
		return &config.ConfigurationError{Field: "title.rule", Reason: err.Error()}
	}

	names, err := renameArtifacts(ctx, naming.NewReserver(), dir, origin, base)
	if err != nil {
		return err
	}

	fmt.Printf("Title: %s\n", title)
	if names.Base == origin {
		fmt.Printf("  Name unchanged: %s\n", origin)
		return nil
	}
	fmt.Printf("  Renamed %s -> %s\n", origin, names.Base)
	return nil
}

// moves the artifact set named from to a collision-free variant of to
func renameArtifacts(ctx context.Context, r *naming.Reserver, dir, from, to string) (naming.RenderedNames, error) {
	audioExt := ""
	for _, ext := range audio.Extensions {
		if exists(filepath.Join(dir, from+ext)) {
			audioExt = ext
			break
		}
	}
	if from == to {
		return naming.RenderedNames{Base: from}, nil
	}

	names, err := r.Reserve(ctx, dir, to, audioExt)
	if err != nil {
		return naming.RenderedNames{}, err
	}

	moves := [][2]string{
		{filepath.Join(dir, from+".srt"), names.SRT},
		{filepath.Join(dir, from+".lrc"), names.LRC},
	}
	if audioExt != "" {
		moves = append(moves, [2]string{filepath.Join(dir, from+audioExt), names.Audio})
	}

	srtMoved := false
	var done [][2]string
	for _, m := range moves {
		if !exists(m[0]) {
			continue
		}
		if err := rename(m[0], m[1]); err != nil {
			return naming.RenderedNames{}, errors.Join(
				&pipeline.PersistenceError{Path: m[1], Err: err},
				undoMoves(done, names.SRT),
			)
		}
		done = append(done, m)
		if m[1] == names.SRT {
			srtMoved = true
		}
	}
	if !srtMoved {
		// drop the reservation marker
		if err := os.Remove(names.SRT); err != nil && !errors.Is(err, os.ErrNotExist) {
			return names, err
		}
		names.SRT = ""
	}
	return names, nil
}

// moves completed renames back in reverse order and drops the reservation marker
func undoMoves(done [][2]string, marker string) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		if err := rename(done[i][1], done[i][0]); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", done[i][0], err))
		}
	}
	if err := os.Remove(marker); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
