package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/quocvuong92/clirepl/internal/constants"
	"github.com/quocvuong92/clirepl/internal/grammar"
	"github.com/quocvuong92/clirepl/internal/logging"
)

// Environment variable names
const (
	EnvPrompt         = "CLIREPL_PROMPT"
	EnvHistoryFile    = "CLIREPL_HISTORY_FILE"
	EnvHistorySize    = "CLIREPL_HISTORY_SIZE"
	EnvGrammar        = "CLIREPL_GRAMMAR"
	EnvLogLevel       = "CLIREPL_LOG_LEVEL"
	EnvLogFormat      = "CLIREPL_LOG_FORMAT"
	EnvCommandTimeout = "CLIREPL_COMMAND_TIMEOUT"

	// EnvNoColor follows the no-color.org convention
	EnvNoColor = "NO_COLOR"
)

// Defaults - re-exported from constants for convenience
const (
	DefaultPrompt             = constants.DefaultPrompt
	DefaultContinuationPrompt = constants.DefaultContinuationPrompt
	DefaultHistorySize        = constants.DefaultHistorySize
	DefaultMaxSuggestions     = constants.DefaultMaxSuggestions
	DefaultCommandTimeout     = constants.DefaultCommandTimeout
	DefaultLogLevel           = constants.DefaultLogLevel
	DefaultLogFormat          = constants.DefaultLogFormat
)

// Errors
var (
	ErrInvalidLogLevel    = errors.New("invalid log level. Use 'debug', 'info', 'warn', 'error' or 'none'")
	ErrInvalidLogFormat   = errors.New("invalid log format. Use 'text', 'json' or 'auto'")
	ErrInvalidHistorySize = errors.New("history size must be a non-negative integer")
	ErrInvalidTimeout     = errors.New("command timeout must be a non-negative duration")
	ErrGrammarNotFound    = errors.New("grammar file not found")
)

// Config holds the application configuration
type Config struct {
	// Prompt settings
	Prompt             string
	ContinuationPrompt string
	MaxSuggestions     int

	// History settings
	HistoryFile string // Empty means the default location
	HistorySize int
	NoHistory   bool

	// GrammarFile replaces the built-in command set when set
	GrammarFile string

	// Logging
	LogLevel  string
	LogFormat string

	CommandTimeout time.Duration

	// Flags
	Verbose         bool
	NoColor         bool
	Fuzzy           bool
	ExitOnInterrupt bool
}

// NewConfig creates a new Config with defaults
func NewConfig() *Config {
	return &Config{}
}

// Validate loads the file and environment layers under anything already set
// (normally from flags), fills in defaults and checks the result.
func (c *Config) Validate() error {
	// Each layer only fills what a higher one left unset: flags, then env
	if err := c.applyEnv(); err != nil {
		return err
	}

	// Config file has the lowest priority
	if fileConfig, err := LoadConfigFile(); err == nil {
		c.ApplyFileConfig(fileConfig)
	}
	// Errors loading config file are silently ignored - env vars and flags take precedence

	c.applyDefaults()
	c.HistoryFile = expandHome(c.HistoryFile)
	c.GrammarFile = expandHome(c.GrammarFile)

	if c.Verbose {
		c.LogLevel = "debug"
	}
	if !validLogLevel(c.LogLevel) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat)
	}
	if c.HistorySize < 0 {
		return ErrInvalidHistorySize
	}
	if c.CommandTimeout < 0 {
		return ErrInvalidTimeout
	}

	if c.GrammarFile != "" {
		if _, err := os.Stat(c.GrammarFile); err != nil {
			return fmt.Errorf("%w: %s", ErrGrammarNotFound, c.GrammarFile)
		}
		if _, err := grammar.FormatFromPath(c.GrammarFile); err != nil {
			return err
		}
	}
	return nil
}

// applyEnv fills unset fields from the environment.
func (c *Config) applyEnv() error {
	if c.Prompt == "" {
		c.Prompt = os.Getenv(EnvPrompt)
	}
	if c.HistoryFile == "" {
		c.HistoryFile = strings.TrimSpace(os.Getenv(EnvHistoryFile))
	}
	if c.GrammarFile == "" {
		c.GrammarFile = strings.TrimSpace(os.Getenv(EnvGrammar))
	}
	if c.LogLevel == "" {
		c.LogLevel = strings.TrimSpace(os.Getenv(EnvLogLevel))
	}
	if c.LogFormat == "" {
		c.LogFormat = strings.TrimSpace(os.Getenv(EnvLogFormat))
	}
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		c.NoColor = true
	}

	if c.HistorySize == 0 {
		if v := strings.TrimSpace(os.Getenv(EnvHistorySize)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("%w: %s=%q", ErrInvalidHistorySize, EnvHistorySize, v)
			}
			c.HistorySize = n
		}
	}
	if c.CommandTimeout == 0 {
		if v := strings.TrimSpace(os.Getenv(EnvCommandTimeout)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d < 0 {
				return fmt.Errorf("%w: %s=%q", ErrInvalidTimeout, EnvCommandTimeout, v)
			}
			c.CommandTimeout = d
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.ContinuationPrompt == "" {
		c.ContinuationPrompt = DefaultContinuationPrompt
	}
	if c.MaxSuggestions <= 0 {
		c.MaxSuggestions = DefaultMaxSuggestions
	}
	if c.HistorySize == 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
}

// expandHome replaces a leading "~/" with the home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func validLogLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "info", "warn", "warning", "error", "none", "off":
		return true
	}
	return false
}

// Level returns the configured log level.
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

// Format returns the configured log format.
func (c *Config) Format() logging.Format {
	f, _ := logging.ParseFormat(c.LogFormat)
	return f
}
