// Package dispatch routes parsed commands to the functions that run them.
package dispatch

import (
	"context"
	"time"

	"github.com/quocvuong92/clirepl/internal/parser"
)

// HandlerFunc runs one parsed command.
type HandlerFunc func(ctx context.Context, cmd *parser.Command) error

// Dispatcher defines the interface for running parsed commands.
// This interface enables dependency injection and easier testing.
type Dispatcher interface {
	// Handle runs the handler registered for cmd's path
	Handle(ctx context.Context, cmd *parser.Command) error

	// Register binds a handler to a command path pattern
	Register(pattern string, fn HandlerFunc) error

	// SetTimeout sets the per-command timeout
	SetTimeout(timeout time.Duration)
}

// Ensure concrete types implement the interfaces
var _ Dispatcher = (*Registry)(nil)
