// Package repl runs the interactive read loop: read a line, record it, parse
// it and hand the result to a handler, until the input ends.
package repl

import (
	"context"
	"errors"

	"github.com/quocvuong92/clirepl/internal/parser"
)

// Control signals and faults exchanged with editors and handlers.
var (
	// ErrInterrupted is returned by an editor when the user interrupts the
	// current line (Ctrl-C).
	ErrInterrupted = errors.New("interrupted")
	// ErrExit is returned by a handler to end the loop cleanly.
	ErrExit = errors.New("exit requested")
	// ErrIOFault wraps any read error other than io.EOF and ErrInterrupted.
	ErrIOFault = errors.New("input fault")
)

// LineReader reads one line of input, showing prompt first. It returns io.EOF
// when input ends and ErrInterrupted when the line was interrupted.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// HistoryRecorder remembers submitted lines.
type HistoryRecorder interface {
	Record(line string) error
}

// Editor is the line editing collaborator of the loop.
type Editor interface {
	LineReader
	HistoryRecorder
}

// Handler executes a parsed command.
type Handler func(ctx context.Context, cmd *parser.Command) error

// Reporter shows a recoverable error for an input line.
type Reporter interface {
	Report(line string, err error)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(line string, err error)

// Report calls f(line, err)
func (f ReporterFunc) Report(line string, err error) {
	f(line, err)
}
