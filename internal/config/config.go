package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the engine configuration. Carried explicitly on each engine
// instance - there is no process-global state keyed by working directory.
type Config struct {
	Log  LogConfig  `yaml:"log"`
	Edit EditConfig `yaml:"edit"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"; default "info"
	Format string `yaml:"format"` // "console" (default) or "json"
}

// EditConfig configures the edit engine
type EditConfig struct {
	Mode           string   `yaml:"mode"`            // "replace" (default), "patch", or "hashline"
	FuzzyEnabled   *bool    `yaml:"fuzzy_enabled"`   // nil = default true
	FuzzyThreshold float64  `yaml:"fuzzy_threshold"` // 0 = default 0.95
	ModeOverrides  []string `yaml:"mode_overrides"`  // "model-prefix=mode" pairs, most specific wins
}

// Environment controls, checked after the config file so operators can
// flip matching behavior per invocation. "auto" leaves the file value.
const (
	EnvFuzzyEnabled   = "EDITKIT_FUZZY_ENABLED"
	EnvFuzzyThreshold = "EDITKIT_FUZZY_THRESHOLD"
	EnvEditMode       = "EDITKIT_EDIT_MODE"
)

// DefaultFuzzyThreshold mirrors the engine default
const DefaultFuzzyThreshold = 0.95

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Log:  LogConfig{Level: "info", Format: "console"},
		Edit: EditConfig{Mode: "replace", FuzzyThreshold: DefaultFuzzyThreshold},
	}
}

// Load reads a yaml config file, falling back to defaults when the path
// is empty or the file does not exist. Environment overrides always run.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvFuzzyEnabled); v != "" && v != "auto" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a boolean", EnvFuzzyEnabled, v)
		}
		c.Edit.FuzzyEnabled = &enabled
	}
	if v := os.Getenv(EnvFuzzyThreshold); v != "" && v != "auto" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 1 {
			return fmt.Errorf("%s: %q is not in 0.0..1.0", EnvFuzzyThreshold, v)
		}
		c.Edit.FuzzyThreshold = t
	}
	if v := os.Getenv(EnvEditMode); v != "" && v != "auto" {
		c.Edit.Mode = v
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Edit.GetMode() {
	case "replace", "patch", "hashline":
	default:
		return fmt.Errorf("edit.mode: %q is not one of replace, patch, hashline", c.Edit.Mode)
	}
	if t := c.Edit.FuzzyThreshold; t < 0 || t > 1 {
		return fmt.Errorf("edit.fuzzy_threshold: %v is not in 0.0..1.0", t)
	}
	return nil
}

// GetMode returns the configured edit mode, defaulting to "replace"
func (e *EditConfig) GetMode() string {
	if e.Mode == "" {
		return "replace"
	}
	return e.Mode
}

// GetFuzzyEnabled returns whether fuzzy matching is on (default true)
func (e *EditConfig) GetFuzzyEnabled() bool {
	if e.FuzzyEnabled == nil {
		return true
	}
	return *e.FuzzyEnabled
}

// GetFuzzyThreshold returns the acceptance threshold (default 0.95)
func (e *EditConfig) GetFuzzyThreshold() float64 {
	if e.FuzzyThreshold <= 0 {
		return DefaultFuzzyThreshold
	}
	return e.FuzzyThreshold
}

// ModeForModel resolves the edit mode for a model name: the longest
// matching per-model override wins, else the session default.
func (e *EditConfig) ModeForModel(model string) string {
	best := ""
	mode := e.GetMode()
	for _, entry := range e.ModeOverrides {
		prefix, m, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		prefix = strings.TrimSpace(prefix)
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
			mode = strings.TrimSpace(m)
		}
	}
	return mode
}
