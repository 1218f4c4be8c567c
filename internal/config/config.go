// Package config handles Config/Bootstrap (spec component 17): reading or
// choosing the master seed, theme, model, player name and replay output
// directory, in the teacher's layered-override style (YAML file defaults,
// then environment variables, then explicit flags). It carries no
// content-collaborator setting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// OpenAIConfig configures the OpenAI-backed provider.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// AnthropicConfig configures the Anthropic-backed provider.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// GoogleConfig configures the Gemini-backed provider.
type GoogleConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout_seconds,omitempty"`
}

// LLMConfig selects and configures the active text-generation backend.
type LLMConfig struct {
	Provider  string          `yaml:"provider"` // "openai" | "anthropic" | "google"
	Endpoint  string          `yaml:"endpoint,omitempty"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Google    GoogleConfig    `yaml:"google"`
}

// TelemetryConfig controls optional OpenTelemetry tracing, carried as
// ambient stack even though the spec's observability layer is otherwise
// out of scope (see SPEC_FULL.md §4).
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Config is the full bootstrap configuration for a session.
type Config struct {
	Seed          int64           `yaml:"seed"`
	Theme         string          `yaml:"theme"`
	PlayerName    string          `yaml:"player_name"`
	ReplayDir     string          `yaml:"replay_dir"`
	FrameRate     float64         `yaml:"frame_rate"`
	MaxFrames     int             `yaml:"max_frames"`
	RequireLLM    bool            `yaml:"require_llm"`
	LLM           LLMConfig       `yaml:"llm"`
	OpenAIDirect  OpenAIConfig    `yaml:"openai"`
	Telemetry     TelemetryConfig `yaml:"otel"`
	LogPath       string          `yaml:"log_path,omitempty"`
	LogLevel      string          `yaml:"log_level"`
}

// Default returns a Config with sane defaults, mirroring the teacher's
// LoadConfig default-filling style.
func Default() Config {
	return Config{
		Seed:       42,
		Theme:      "fantasy",
		PlayerName: "Wayfarer",
		ReplayDir:  "./replays",
		FrameRate:  2.0,
		MaxFrames:  0,
		LLM: LLMConfig{
			Provider: "openai",
		},
		LogLevel: "info",
	}
}

// Load reads filename (if non-empty and present) as YAML over the defaults,
// then applies environment variable overrides.
func Load(filename string) (Config, error) {
	cfg := Default()
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %q: %w", filename, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("unmarshal config %q: %w", filename, err)
		}
	}
	applyEnvOverrides(&cfg)
	if cfg.ReplayDir == "" {
		cfg.ReplayDir = "./replays"
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 2.0
	}
	return cfg, nil
}

// applyEnvOverrides layers environment variables over file-provided values,
// matching the precedence order (file, then env, then flags) the teacher's
// loader.go documents for its own config surface.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LLM_ENDPOINT")); v != "" {
		cfg.LLM.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_MODEL")); v != "" {
		cfg.OpenAIDirect.Model = v
		cfg.LLM.Anthropic.Model = v
		cfg.LLM.Google.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_PROVIDER")); v != "" {
		cfg.LLM.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("REPLAY_DIR")); v != "" {
		cfg.ReplayDir = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.OpenAIDirect.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		cfg.LLM.Anthropic.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")); v != "" {
		cfg.LLM.Google.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("WAYFARER_SEED")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = n
		}
	}
}
