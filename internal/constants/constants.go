// Package constants provides shared constants used across the application
// to avoid circular dependencies between packages.
package constants

import "time"

// AppName is the binary name, also used for config and data directories
const AppName = "clirepl"

// Timeout constants used across the application
const (
	// DefaultCommandTimeout bounds a single handler call
	DefaultCommandTimeout = 30 * time.Second
	// SpinnerDelay is how long a handler runs before a spinner is shown
	SpinnerDelay = 300 * time.Millisecond
)

// Prompt defaults
const (
	DefaultPrompt             = "> "
	DefaultContinuationPrompt = "... "
	DefaultMaxSuggestions     = 15
)

// History defaults
const (
	// DefaultHistorySize is the number of entries kept in the history file
	DefaultHistorySize = 1000
	// HistoryFileName is the history file inside the data directory
	HistoryFileName = "history.jsonl"
)

// Logging defaults
const (
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "auto"
)
