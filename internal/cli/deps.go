package cli

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/mgpai22/libersonora/internal/audio"
	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/enhance"
	"github.com/mgpai22/libersonora/internal/ffmpeg"
	"github.com/mgpai22/libersonora/internal/logging"
	"github.com/mgpai22/libersonora/internal/metrics"
	"github.com/mgpai22/libersonora/internal/naming"
	"github.com/mgpai22/libersonora/internal/pipeline"
	"github.com/mgpai22/libersonora/internal/resilient"
	"github.com/mgpai22/libersonora/internal/subtitle"
	"github.com/mgpai22/libersonora/internal/transcribe"
)

func retryPolicy(s *config.Settings) resilient.Policy {
	return resilient.Policy{
		Timeout:     s.Network.Timeout(),
		MaxAttempts: s.Network.MaxAttempts,
		Backoff:     s.Network.Backoff(),
	}
}

// retrier for the ASR and enhancement services
func serviceRetrier(s *config.Settings, m *metrics.Metrics, log *logging.Logger) *resilient.Retrier {
	return resilient.NewRetrier(retryPolicy(s),
		resilient.WithObserver(m),
		resilient.WithLogger(log.SugaredLogger),
	)
}

// retrier for LLM calls, paced by llm_requests_per_minute
func llmRetrier(s *config.Settings, m *metrics.Metrics, log *logging.Logger) *resilient.Retrier {
	return resilient.NewRetrier(retryPolicy(s),
		resilient.WithObserver(m),
		resilient.WithLogger(log.SugaredLogger),
		resilient.WithLimiter(resilient.PerMinute(s.Network.LLMRequestsPerMinute)),
	)
}

func newNormalizer(s *config.Settings, opts audio.NormalizeOptions) (*audio.FFmpegNormalizer, error) {
	path, err := ffmpeg.Locate(s.Services.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	return audio.NewFFmpegNormalizer(path, "", opts), nil
}

func newEnhancer(s *config.Settings, client *resilient.Client) (*enhance.Client, error) {
	return enhance.NewClient(s.Services.ClearVoiceURL, s.Services.EnhanceModel, client)
}

// wires the per-file pipeline from settings
func newProcessor(s *config.Settings, m *metrics.Metrics, log *logging.Logger) (*pipeline.Processor, error) {
	normalizer, err := newNormalizer(s, audio.DefaultNormalizeOptions())
	if err != nil {
		return nil, err
	}

	client := resilient.NewClient(&http.Client{}, serviceRetrier(s, m, log))
	asr, err := transcribe.NewClient(s.Services.FunASRURL, client)
	if err != nil {
		return nil, err
	}
	enhancer, err := newEnhancer(s, client)
	if err != nil {
		return nil, err
	}

	return pipeline.NewProcessor(pipeline.Deps{
		Normalizer:  normalizer,
		Enhancer:    enhancer,
		Transcriber: asr,
		Completers:  pipeline.RetryingCompleters(llmRetrier(s, m, log)),
		Reserver:    naming.NewReserver(),
		Metrics:     m,
		Logger:      log.SugaredLogger,
		LRC:         subtitle.LRCOptions{Reverse: s.Output.LRCReverse},
	}), nil
}

// fills an empty api key from the provider's environment variable
func withEnvAPIKey(l config.LlmConfig) config.LlmConfig {
	if l.APIKey == "" && !l.UseLocalProvider {
		l.APIKey = os.Getenv(config.APIKeyEnv(l.ProviderName()))
	}
	return l
}

// validates that every path exists and has an audio extension
func checkAudioFiles(paths []string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
		if err != nil {
			return err
		}
		if info.IsDir() || !audio.IsAudioFile(p) {
			return fmt.Errorf("unsupported file type: %s (expected %s)", p, strings.Join(audio.Extensions, ", "))
		}
	}
	return nil
}

func resolvePolicy(flag string, fallback pipeline.ErrorPolicy) (pipeline.ErrorPolicy, error) {
	if flag == "" {
		return fallback, nil
	}
	return pipeline.ParseErrorPolicy(flag)
}
