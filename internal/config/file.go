package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quocvuong92/clirepl/internal/constants"
)

// ConfigFileName is the name of the config file
const ConfigFileName = "config.yaml"

// FileConfig represents the configuration file structure
type FileConfig struct {
	// Prompt settings
	Prompt *PromptConfig `yaml:"prompt,omitempty"`

	// History settings
	History *HistoryConfig `yaml:"history,omitempty"`

	// Grammar file loaded instead of the built-in commands
	Grammar string `yaml:"grammar,omitempty"`

	// Logging settings
	Log *LogConfig `yaml:"log,omitempty"`

	// CommandTimeout is a Go duration string such as "30s"
	CommandTimeout string `yaml:"command_timeout,omitempty"`

	// Default flags
	Defaults *DefaultsConfig `yaml:"defaults,omitempty"`
}

// PromptConfig holds prompt appearance settings
type PromptConfig struct {
	Text           string `yaml:"text,omitempty"`
	Continuation   string `yaml:"continuation,omitempty"`
	MaxSuggestions int    `yaml:"max_suggestions,omitempty"`
}

// HistoryConfig holds line history settings
type HistoryConfig struct {
	File     string `yaml:"file,omitempty"`
	Size     int    `yaml:"size,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error, none
	Format string `yaml:"format,omitempty"` // text, json, auto
}

// DefaultsConfig holds default flag values
type DefaultsConfig struct {
	NoColor         bool `yaml:"no_color,omitempty"`
	Fuzzy           bool `yaml:"fuzzy,omitempty"`
	ExitOnInterrupt bool `yaml:"exit_on_interrupt,omitempty"`
}

// GetConfigPaths returns the paths to check for config files (in order of priority)
func GetConfigPaths() []string {
	var paths []string

	// 1. Current directory
	paths = append(paths, filepath.Join(".", "."+constants.AppName, ConfigFileName))

	// 2. User config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, constants.AppName, ConfigFileName))
	}

	// 3. Home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", constants.AppName, ConfigFileName))
	}

	return paths
}

// LoadConfigFile attempts to load configuration from a file
func LoadConfigFile() (*FileConfig, error) {
	paths := GetConfigPaths()

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return loadConfigFromPath(path)
		}
	}

	// No config file found, return empty config
	return &FileConfig{}, nil
}

// loadConfigFromPath loads config from a specific path
func loadConfigFromPath(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// ApplyFileConfig applies file configuration to the main Config
// File config has lower priority than environment variables and CLI flags
func (c *Config) ApplyFileConfig(fc *FileConfig) {
	if fc == nil {
		return
	}

	if fc.Prompt != nil {
		if c.Prompt == "" && fc.Prompt.Text != "" {
			c.Prompt = fc.Prompt.Text
		}
		if c.ContinuationPrompt == "" && fc.Prompt.Continuation != "" {
			c.ContinuationPrompt = fc.Prompt.Continuation
		}
		if c.MaxSuggestions == 0 && fc.Prompt.MaxSuggestions > 0 {
			c.MaxSuggestions = fc.Prompt.MaxSuggestions
		}
	}

	if fc.History != nil {
		if c.HistoryFile == "" && fc.History.File != "" {
			c.HistoryFile = fc.History.File
		}
		if c.HistorySize == 0 && fc.History.Size > 0 {
			c.HistorySize = fc.History.Size
		}
		if fc.History.Disabled {
			c.NoHistory = true
		}
	}

	if c.GrammarFile == "" && fc.Grammar != "" {
		c.GrammarFile = fc.Grammar
	}

	if fc.Log != nil {
		if c.LogLevel == "" && fc.Log.Level != "" {
			c.LogLevel = fc.Log.Level
		}
		if c.LogFormat == "" && fc.Log.Format != "" {
			c.LogFormat = fc.Log.Format
		}
	}

	if c.CommandTimeout == 0 && fc.CommandTimeout != "" {
		// An unparsable value is left for the environment or the default
		if d, err := time.ParseDuration(fc.CommandTimeout); err == nil && d > 0 {
			c.CommandTimeout = d
		}
	}

	// Apply defaults (these are applied unless explicitly overridden by flags)
	if fc.Defaults != nil {
		// Since we can't distinguish between "flag not set" and "flag set to false",
		// we apply defaults only for "true" values in the config file
		if fc.Defaults.NoColor {
			c.NoColor = true
		}
		if fc.Defaults.Fuzzy {
			c.Fuzzy = true
		}
		if fc.Defaults.ExitOnInterrupt {
			c.ExitOnInterrupt = true
		}
	}
}

// CreateDefaultConfigFile creates a default config file at the user config directory
func CreateDefaultConfigFile() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine config directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, constants.AppName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}

const defaultConfig = `# clirepl configuration
# Location: ~/.config/clirepl/config.yaml

# Prompt appearance
# prompt:
#   text: "> "
#   continuation: "... "
#   max_suggestions: 15

# Line history (JSON lines, newest last)
# history:
#   file: ~/.config/clirepl/history.jsonl
#   size: 1000
#   disabled: false

# Grammar file (.yaml, .yml, .json or .jsonc) replacing the built-in commands
# grammar: ./commands.yaml

# Logging goes to stderr
# log:
#   level: warn    # debug, info, warn, error, none
#   format: auto   # text, json, auto

# Upper bound for a single command
# command_timeout: 30s

# Default flags for interactive mode
# defaults:
#   no_color: false
#   fuzzy: false
#   exit_on_interrupt: false
`
