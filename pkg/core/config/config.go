// Package config loads the application configuration from YAML with
// environment-variable secrets left to the process environment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Semantic configures the model fallback chain of the semantic tier.
type Semantic struct {
	// Models are OpenRouter model ids tried in order.
	Models []string `yaml:"models"`
	// GeminiModel, when set, is appended to the chain as the final
	// fallback through the GenAI SDK.
	GeminiModel string `yaml:"gemini_model"`
	// MaxAttempts caps total model calls per document.
	MaxAttempts int `yaml:"max_attempts"`
}

// Config is the application configuration.
type Config struct {
	Env         string   `yaml:"env"`
	LogLevel    string   `yaml:"log_level"`
	InputDir    string   `yaml:"input_dir"`
	OutputDir   string   `yaml:"output_dir"`
	CatalogPath string   `yaml:"catalog_path"`
	ReportKind  string   `yaml:"report_kind"`
	Concurrency int      `yaml:"concurrency"`
	StoreRuns   bool     `yaml:"store_runs"`
	Semantic    Semantic `yaml:"semantic"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Env:         "dev",
		InputDir:    "input",
		OutputDir:   "output",
		ReportKind:  "semi_annual",
		Concurrency: 4,
		Semantic: Semantic{
			Models: []string{
				"deepseek/deepseek-chat",
				"qwen/qwen-2.5-72b-instruct",
			},
			GeminiModel: "gemini-2.0-flash",
			MaxAttempts: 3,
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return cfg, nil
}
