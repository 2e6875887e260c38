// Package config handles configuration loading for podium.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for podium.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Hooks     HooksConfig     `mapstructure:"hooks"`
	PlanGate  PlanGateConfig  `mapstructure:"plan_gate"`
	Bus       BusConfig       `mapstructure:"bus"`
	Memory    MemoryConfig    `mapstructure:"memory"`
}

// AnthropicConfig holds Anthropic API settings for API-backed workers.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// DefaultsConfig holds orchestration defaults.
type DefaultsConfig struct {
	// MaxRetries bounds re-assignment of a task after failing verdicts.
	MaxRetries int `mapstructure:"max_retries"`
	// WorkersFile is the path to the worker roles YAML file.
	WorkersFile string `mapstructure:"workers_file"`
}

// HooksConfig holds Hook Runner settings.
type HooksConfig struct {
	// Timeout is the hard per-check wall-clock limit.
	Timeout time.Duration `mapstructure:"timeout"`
	// ExcerptLines bounds the evidence attached to a verdict.
	ExcerptLines int `mapstructure:"excerpt_lines"`
}

// PlanGateConfig holds plan-approval policy settings.
type PlanGateConfig struct {
	// MaxFilesTouched is the files-touched threshold above which a plan
	// is rejected for decomposition.
	MaxFilesTouched int `mapstructure:"max_files_touched"`
	// RiskAreas lists memory-store flagged areas; a plan naming one is
	// rejected unless the request tier is critical.
	RiskAreas []string `mapstructure:"risk_areas"`
}

// BusConfig holds message bus settings.
type BusConfig struct {
	// MailboxCap is the sanity threshold on mailbox growth.
	MailboxCap int `mapstructure:"mailbox_cap"`
}

// MemoryConfig holds memory store settings.
type MemoryConfig struct {
	// Path is the SQLite database location. Empty uses the project path.
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
//  1. Environment variables (ANTHROPIC_API_KEY)
//  2. Project config (.podium.yaml in current directory or a parent)
//  3. User config (~/.config/podium/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// setDefaults configures built-in default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("defaults.max_retries", 1)
	v.SetDefault("defaults.workers_file", "")
	v.SetDefault("hooks.timeout", "5m")
	v.SetDefault("hooks.excerpt_lines", 20)
	v.SetDefault("plan_gate.max_files_touched", 25)
	v.SetDefault("plan_gate.risk_areas", []string{})
	v.SetDefault("bus.mailbox_cap", 10000)
	v.SetDefault("memory.path", "")
	v.SetDefault("anthropic.model", "")
}

// userConfigDir returns the XDG config directory for podium.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "podium")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "podium")
}

// findProjectConfig walks from the working directory upwards looking
// for a .podium.yaml override.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".podium.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(userConfigDir(), "config.yaml")
}
