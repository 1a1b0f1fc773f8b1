// Package history provides input line history persistence for interactive sessions.
package history

// Store defines the interface for managing line history.
// This interface enables dependency injection and easier testing.
type Store interface {
	// Load reads the history from its backing storage
	Load() ([]Entry, error)

	// Append records a submitted line
	Append(line string) error

	// Lines returns the known lines, oldest first
	Lines() []string

	// Clear removes all history
	Clear() error
}

// Ensure concrete types implement the interface
var _ Store = (*File)(nil)
var _ Store = (*Memory)(nil)
