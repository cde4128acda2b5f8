package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// LLM provider names
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

const (
	DefaultRule        = "{origin}"
	DefaultRegexOrigin = `(\d+)`
)

// connection settings for one LLM-backed stage
type LlmConfig struct {
	Provider         string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model            string `json:"model" yaml:"model"`
	UseLocalProvider bool   `json:"use_local_provider" yaml:"use_local_provider"`
	EndpointURL      string `json:"endpoint_url,omitempty" yaml:"endpoint_url,omitempty"`
	APIKey           string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

type SubtitleConfig struct {
	Hotwords      string `json:"hotwords" yaml:"hotwords"`
	MinTextLength int    `json:"min_text_length,omitempty" yaml:"min_text_length,omitempty"`
}

// a known ASR confusion fed to the corrector prompt
type CommonError struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

type CorrectConfig struct {
	LLM          LlmConfig     `json:"llm" yaml:"llm"`
	CommonErrors []CommonError `json:"common_errors,omitempty" yaml:"common_errors,omitempty"`
}

type TranslateConfig struct {
	From string    `json:"from" yaml:"from"`
	To   string    `json:"to" yaml:"to"`
	LLM  LlmConfig `json:"llm" yaml:"llm"`
}

type TitleConfig struct {
	Generate    bool      `json:"generate" yaml:"generate"`
	BookTitle   string    `json:"book_title,omitempty" yaml:"book_title,omitempty"`
	Author      string    `json:"author,omitempty" yaml:"author,omitempty"`
	Lang        string    `json:"lang,omitempty" yaml:"lang,omitempty"`
	RegexOrigin string    `json:"regex_origin,omitempty" yaml:"regex_origin,omitempty"`
	Rule        string    `json:"rule,omitempty" yaml:"rule,omitempty"`
	SkipRename  bool      `json:"skip_rename" yaml:"skip_rename"`
	LLM         LlmConfig `json:"llm" yaml:"llm"`
}

// per-request feature tree; a nil sub-object disables its stage
type PipelineConfig struct {
	RemoveBackground bool             `json:"remove_background" yaml:"remove_background"`
	Subtitle         *SubtitleConfig  `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Correct          *CorrectConfig   `json:"correct,omitempty" yaml:"correct,omitempty"`
	Translate        *TranslateConfig `json:"translate,omitempty" yaml:"translate,omitempty"`
	Title            *TitleConfig     `json:"title,omitempty" yaml:"title,omitempty"`
}

// reads a pipeline config from a .json, .yaml or .yml file and validates it
func LoadPipeline(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}

	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = "json"
	case ".yaml", ".yml":
		format = "yaml"
	default:
		return nil, fmt.Errorf("unsupported pipeline config format %q: use .json, .yaml or .yml", filepath.Ext(path))
	}
	return ParsePipeline(data, format)
}

func ParsePipeline(data []byte, format string) (*PipelineConfig, error) {
	var cfg PipelineConfig
	switch format {
	case "json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse pipeline config: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse pipeline config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported pipeline config format %q", format)
	}

	cfg.applyDefaults(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *PipelineConfig) applyDefaults(getenv func(string) string) {
	if c.Correct != nil {
		c.Correct.LLM.applyEnv(getenv)
	}
	if c.Translate != nil {
		c.Translate.LLM.applyEnv(getenv)
	}
	if c.Title != nil {
		c.Title.LLM.applyEnv(getenv)
		if strings.TrimSpace(c.Title.Rule) == "" {
			c.Title.Rule = DefaultRule
		}
		if strings.TrimSpace(c.Title.RegexOrigin) == "" {
			c.Title.RegexOrigin = DefaultRegexOrigin
		}
	}
}

// Validate checks every enabled stage and returns a *ConfigurationError on the first problem.
func (c *PipelineConfig) Validate() error {
	if c.Subtitle != nil && c.Subtitle.MinTextLength < 0 {
		return invalid("subtitle.min_text_length", "must not be negative, got %d", c.Subtitle.MinTextLength)
	}

	if c.Correct != nil {
		if err := c.Correct.LLM.validate("correct.llm"); err != nil {
			return err
		}
		for i, ce := range c.Correct.CommonErrors {
			if strings.TrimSpace(ce.From) == "" {
				return invalid(fmt.Sprintf("correct.common_errors[%d].from", i), "must not be empty")
			}
		}
	}

	if c.Translate != nil {
		from := strings.TrimSpace(c.Translate.From)
		to := strings.TrimSpace(c.Translate.To)
		if from == "" {
			return invalid("translate.from", "source language is required")
		}
		if to == "" {
			return invalid("translate.to", "target language is required")
		}
		if strings.EqualFold(from, to) {
			return invalid("translate.to", "source and target language cannot be the same (%s)", from)
		}
		if err := c.Translate.LLM.validate("translate.llm"); err != nil {
			return err
		}
	}

	if c.Title != nil {
		if c.Title.Generate && !c.Title.SkipRename {
			if err := c.Title.LLM.validate("title.llm"); err != nil {
				return err
			}
		}
		if _, err := regexp.Compile(c.Title.RegexOrigin); err != nil {
			return invalid("title.regex_origin", "%v", err)
		}
	}
	return nil
}

// whether the audio copy is persisted next to the subtitles
func (c *PipelineConfig) KeepsAudio() bool {
	return c.Title == nil || !c.Title.SkipRename
}

// whether the title stage runs
func (c *PipelineConfig) GeneratesTitle() bool {
	return c.Title != nil && c.Title.Generate && !c.Title.SkipRename
}

func (c *PipelineConfig) MinTextLength() int {
	if c.Subtitle == nil {
		return 0
	}
	return c.Subtitle.MinTextLength
}

func (c *PipelineConfig) Hotwords() string {
	if c.Subtitle == nil {
		return ""
	}
	return strings.TrimSpace(c.Subtitle.Hotwords)
}

// environment variable consulted when an llm block has no api_key
func APIKeyEnv(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func (l *LlmConfig) applyEnv(getenv func(string) string) {
	if strings.TrimSpace(l.APIKey) == "" && !l.UseLocalProvider {
		l.APIKey = getenv(APIKeyEnv(l.ProviderName()))
	}
}

// provider name with the default applied
func (l LlmConfig) ProviderName() string {
	p := strings.ToLower(strings.TrimSpace(l.Provider))
	if p == "" {
		return ProviderOpenAI
	}
	return p
}

func (l LlmConfig) validate(field string) error {
	switch l.ProviderName() {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		return invalid(field+".provider", "unsupported provider %q: use openai, anthropic, or gemini", l.Provider)
	}
	if strings.TrimSpace(l.Model) == "" {
		return invalid(field+".model", "model is required")
	}
	if l.UseLocalProvider {
		if l.ProviderName() != ProviderOpenAI {
			return invalid(field+".use_local_provider", "local providers speak the openai protocol, got provider %q", l.Provider)
		}
		if strings.TrimSpace(l.EndpointURL) == "" {
			return invalid(field+".endpoint_url", "endpoint is required for a local provider")
		}
		return nil
	}
	if strings.TrimSpace(l.APIKey) == "" {
		return invalid(field+".api_key", "API key is required")
	}
	return nil
}
