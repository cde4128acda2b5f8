package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/pipeline"
	"github.com/mgpai22/libersonora/internal/subtitle"
	"github.com/mgpai22/libersonora/internal/transform"
	"github.com/spf13/cobra"
)

var translateCmd = &cobra.Command{
	Use:   "translate [subtitle_file]",
	Short: "Translate an existing SRT file into bilingual subtitles",
	Long: `Translate an existing SRT file with an LLM and write bilingual SRT and
LRC files in which every cue holds the original line followed by its
translation.

The API key falls back to OPENAI_API_KEY, ANTHROPIC_API_KEY or GEMINI_API_KEY
depending on the provider.

Examples:
  libersonora translate ep01.srt --from zh --to en --model gpt-4o-mini
  libersonora translate ep01.srt --from zh --to ja --provider anthropic --model claude-sonnet-4-5
  libersonora translate ep01.srt --from zh --to en --local --endpoint http://localhost:11434 --model qwen2.5`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().
		String("from", "", "Source language code (required)")
	translateCmd.Flags().
		StringP("to", "t", "", "Target language code (required)")
	translateCmd.Flags().
		String("provider", config.ProviderOpenAI, "LLM provider (openai, anthropic, gemini)")
	translateCmd.Flags().
		String("model", "", "Model to use for translation (required)")
	translateCmd.Flags().
		StringP("api-key", "k", "", "API key (or set the provider's environment variable)")
	translateCmd.Flags().
		String("endpoint", "", "Custom API endpoint")
	translateCmd.Flags().
		Bool("local", false, "Use a local OpenAI-compatible endpoint (no API key)")
	translateCmd.Flags().
		StringP("out-dir", "o", "", "Output directory (default: next to the input)")

	_ = translateCmd.MarkFlagRequired("from")
	_ = translateCmd.MarkFlagRequired("to")
	_ = translateCmd.MarkFlagRequired("model")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	subtitlePath := args[0]
	ctx := cmd.Context()

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	provider, _ := cmd.Flags().GetString("provider")
	model, _ := cmd.Flags().GetString("model")
	apiKey, _ := cmd.Flags().GetString("api-key")
	endpoint, _ := cmd.Flags().GetString("endpoint")
	local, _ := cmd.Flags().GetBool("local")
	outDir, _ := cmd.Flags().GetString("out-dir")

	if ext := strings.ToLower(filepath.Ext(subtitlePath)); ext != ".srt" {
		return fmt.Errorf("unsupported subtitle format %q: use .srt", ext)
	}

	tc := &config.TranslateConfig{
		From: from,
		To:   to,
		LLM: withEnvAPIKey(config.LlmConfig{
			Provider:         provider,
			Model:            model,
			UseLocalProvider: local,
			EndpointURL:      endpoint,
			APIKey:           apiKey,
		}),
	}
	if err := (&config.PipelineConfig{Translate: tc}).Validate(); err != nil {
		return err
	}

	f, err := os.Open(subtitlePath)
	if err != nil {
		return fmt.Errorf("subtitle file not found: %s", subtitlePath)
	}
	segments, err := subtitle.ParseSRT(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}
	if len(segments) == 0 {
		return fmt.Errorf("subtitle file contains no entries")
	}

	completer, err := pipeline.RetryingCompleters(llmRetrier(settings, nil, logger))(ctx, tc.LLM, pipeline.StageTranslate)
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}

	logger.Infow("Translating subtitles",
		"input", subtitlePath,
		"entries", len(segments),
		"from", from,
		"to", to,
		"provider", tc.LLM.ProviderName(),
		"model", model,
	)

	texts := subtitle.Texts(segments)
	translated, err := transform.NewTranslator(completer).Translate(ctx, from, to, texts)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}
	subtitle.SetTexts(segments, pipeline.Interleave(texts, translated))

	if outDir == "" {
		outDir = filepath.Dir(subtitlePath)
	}
	base := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(subtitlePath), filepath.Ext(subtitlePath))+"."+to)
	srtPath := base + subtitle.FormatSRT.Extension()
	lrcPath := base + subtitle.FormatLRC.Extension()

	if err := subtitle.WriteFile(srtPath, subtitle.RenderSRT(segments)); err != nil {
		return &pipeline.PersistenceError{Path: srtPath, Err: err}
	}
	if err := subtitle.WriteFile(lrcPath, subtitle.RenderLRC(segments, subtitle.LRCOptions{Reverse: settings.Output.LRCReverse})); err != nil {
		return &pipeline.PersistenceError{Path: lrcPath, Err: err}
	}

	absSRT, _ := filepath.Abs(srtPath)
	fmt.Printf("Subtitles translated successfully: %s\n", absSRT)
	fmt.Printf("  Entries: %d\n", len(segments))
	fmt.Printf("  Target language: %s\n", transform.LanguageName(to))
	return nil
}
