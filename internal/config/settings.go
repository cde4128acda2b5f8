package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultFunASRURL     = "http://funasr:8000"
	DefaultClearVoiceURL = "http://clear-voice:8000"
	DefaultEnhanceModel  = "MossFormer2_SE_48K"

	EnvFunASRURL     = "FUNASR_URL"
	EnvClearVoiceURL = "CLEAR_VOICE_URL"
)

// speech enhancement models accepted by the enhancement service
var EnhanceModels = []string{"MossFormer2_SE_48K", "FRCRN_SE_16K", "MossFormerGAN_SE_16K"}

type Services struct {
	FunASRURL     string `toml:"funasr_url"`
	ClearVoiceURL string `toml:"clear_voice_url"`
	EnhanceModel  string `toml:"enhance_model"`
	FFmpegPath    string `toml:"ffmpeg_path"`
}

type Network struct {
	TimeoutSeconds       int     `toml:"timeout_seconds"`
	MaxAttempts          int     `toml:"max_attempts"`
	BackoffSeconds       float64 `toml:"backoff_seconds"`
	LLMRequestsPerMinute float64 `toml:"llm_requests_per_minute"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

type Jobs struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

type Output struct {
	Concurrency int  `toml:"concurrency"`
	LRCReverse  bool `toml:"lrc_reverse"`
	FailFast    bool `toml:"fail_fast"`
}

// process-wide settings loaded from TOML
type Settings struct {
	Services Services `toml:"services"`
	Network  Network  `toml:"network"`
	Logging  Logging  `toml:"logging"`
	Jobs     Jobs     `toml:"jobs"`
	Output   Output   `toml:"output"`
}

func DefaultSettings() Settings {
	return Settings{
		Services: Services{
			FunASRURL:     DefaultFunASRURL,
			ClearVoiceURL: DefaultClearVoiceURL,
			EnhanceModel:  DefaultEnhanceModel,
		},
		Network: Network{
			TimeoutSeconds: 360,
			MaxAttempts:    3,
			BackoffSeconds: 1,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		Jobs: Jobs{
			StateDir: os.TempDir(),
			LogDir:   os.TempDir(),
		},
		Output: Output{
			Concurrency: 4,
			LRCReverse:  true,
			FailFast:    true,
		},
	}
}

// loads settings from path (or the default location), applies env overrides and validates.
// The returned bool reports whether a config file was found.
func LoadSettings(path string) (*Settings, string, bool, error) {
	cfg := DefaultSettings()

	resolved, err := resolveSettingsPath(path)
	if err != nil {
		return nil, "", false, err
	}

	exists := false
	file, err := os.Open(resolved)
	switch {
	case err == nil:
		exists = true
		decoder := toml.NewDecoder(file)
		decodeErr := decoder.Decode(&cfg)
		file.Close()
		if decodeErr != nil {
			return nil, resolved, true, fmt.Errorf("parse config %s: %w", resolved, decodeErr)
		}
	case errors.Is(err, os.ErrNotExist):
		if path != "" {
			return nil, resolved, false, fmt.Errorf("config file %s not found", resolved)
		}
	default:
		return nil, resolved, false, fmt.Errorf("open config %s: %w", resolved, err)
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.normalize(); err != nil {
		return nil, resolved, exists, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, exists, err
	}
	return &cfg, resolved, exists, nil
}

func resolveSettingsPath(path string) (string, error) {
	if path != "" {
		return expandPath(path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "libersonora", "config.toml"), nil
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand path %q: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

func (s *Settings) applyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvFunASRURL)); v != "" {
		s.Services.FunASRURL = v
	}
	if v := strings.TrimSpace(getenv(EnvClearVoiceURL)); v != "" {
		s.Services.ClearVoiceURL = v
	}
}

func (s *Settings) normalize() error {
	s.Services.FunASRURL = strings.TrimRight(strings.TrimSpace(s.Services.FunASRURL), "/")
	s.Services.ClearVoiceURL = strings.TrimRight(strings.TrimSpace(s.Services.ClearVoiceURL), "/")
	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))
	s.Logging.Format = strings.ToLower(strings.TrimSpace(s.Logging.Format))

	var err error
	if s.Logging.File, err = expandPath(s.Logging.File); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	if s.Jobs.StateDir, err = expandPath(s.Jobs.StateDir); err != nil {
		return fmt.Errorf("jobs.state_dir: %w", err)
	}
	if s.Jobs.LogDir, err = expandPath(s.Jobs.LogDir); err != nil {
		return fmt.Errorf("jobs.log_dir: %w", err)
	}
	return nil
}

// Validate ensures the settings are usable.
func (s *Settings) Validate() error {
	if err := validateServiceURL("services.funasr_url", s.Services.FunASRURL); err != nil {
		return err
	}
	if err := validateServiceURL("services.clear_voice_url", s.Services.ClearVoiceURL); err != nil {
		return err
	}
	if !isEnhanceModel(s.Services.EnhanceModel) {
		return fmt.Errorf("services.enhance_model must be one of %s", strings.Join(EnhanceModels, ", "))
	}
	if s.Network.TimeoutSeconds <= 0 {
		return errors.New("network.timeout_seconds must be positive")
	}
	if s.Network.MaxAttempts <= 0 {
		return errors.New("network.max_attempts must be positive")
	}
	if s.Network.BackoffSeconds < 0 {
		return errors.New("network.backoff_seconds must not be negative")
	}
	if s.Network.LLMRequestsPerMinute < 0 {
		return errors.New("network.llm_requests_per_minute must not be negative")
	}
	switch s.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", s.Logging.Format)
	}
	if s.Output.Concurrency <= 0 {
		return errors.New("output.concurrency must be positive")
	}
	if s.Jobs.StateDir == "" {
		return errors.New("jobs.state_dir must be set")
	}
	if s.Jobs.LogDir == "" {
		return errors.New("jobs.log_dir must be set")
	}
	return nil
}

func (n Network) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

func (n Network) Backoff() time.Duration {
	return time.Duration(n.BackoffSeconds * float64(time.Second))
}

func validateServiceURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s must be set", field)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, raw)
	}
	return nil
}

func isEnhanceModel(model string) bool {
	for _, m := range EnhanceModels {
		if m == model {
			return true
		}
	}
	return false
}
