package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/quocvuong92/clirepl/internal/constants"
	"github.com/quocvuong92/clirepl/internal/lexer"
	"github.com/quocvuong92/clirepl/internal/logging"
	"github.com/quocvuong92/clirepl/internal/parser"
)

// State is the position of the loop in its cycle
type State int

const (
	// StateAwaitingLine waits for the editor to return a line
	StateAwaitingLine State = iota
	// StateGotLine holds a line that is being recorded and parsed
	StateGotLine
	// StateDispatched runs the handler for a parsed command
	StateDispatched
	// StateTerminated is final
	StateTerminated
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateAwaitingLine:
		return "awaiting-line"
	case StateGotLine:
		return "got-line"
	case StateDispatched:
		return "dispatched"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Reason tells why the loop terminated
type Reason int

const (
	// ReasonEndOfInput means the editor reported io.EOF
	ReasonEndOfInput Reason = iota
	// ReasonExit means a handler returned ErrExit
	ReasonExit
	// ReasonInterrupt means an interrupt arrived with WithExitOnInterrupt set
	ReasonInterrupt
	// ReasonCanceled means the context was canceled
	ReasonCanceled
	// ReasonIOFault means the editor failed
	ReasonIOFault
)

// String returns the string representation of the reason
func (r Reason) String() string {
	switch r {
	case ReasonEndOfInput:
		return "end of input"
	case ReasonExit:
		return "exit"
	case ReasonInterrupt:
		return "interrupt"
	case ReasonCanceled:
		return "canceled"
	case ReasonIOFault:
		return "i/o fault"
	default:
		return "unknown"
	}
}

// Termination describes how a loop ended.
type Termination struct {
	Reason Reason
	// Lines counts the non-empty lines read.
	Lines int
	// Dispatched counts the commands handed to the handler.
	Dispatched int
}

// Loop is a read-eval loop over one editor. A Loop runs once.
type Loop struct {
	editor   Editor
	parser   *parser.Parser
	handler  Handler
	reporter Reporter
	logger   logging.StructuredLogger

	prompt          string
	continuation    string
	exitOnInterrupt bool
	onTransition    func(from, to State)

	state State
	term  Termination
}

// Option configures a Loop
type Option func(*Loop)

// WithReporter sets where lex, grammar and handler errors are shown.
func WithReporter(r Reporter) Option {
	return func(l *Loop) {
		l.reporter = r
	}
}

// WithPrompt sets the primary prompt.
func WithPrompt(prompt string) Option {
	return func(l *Loop) {
		l.prompt = prompt
	}
}

// WithContinuationPrompt sets the prompt shown after a line ending in a
// backslash.
func WithContinuationPrompt(prompt string) Option {
	return func(l *Loop) {
		l.continuation = prompt
	}
}

// WithExitOnInterrupt makes ErrInterrupted end the loop instead of
// discarding the current line.
func WithExitOnInterrupt(exit bool) Option {
	return func(l *Loop) {
		l.exitOnInterrupt = exit
	}
}

// WithLogger sets the loop's logger.
func WithLogger(logger logging.StructuredLogger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithTransitionHook is called on every state change.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(l *Loop) {
		l.onTransition = fn
	}
}

// New creates a loop reading from editor, parsing with p and dispatching to
// handler.
func New(editor Editor, p *parser.Parser, handler Handler, opts ...Option) *Loop {
	l := &Loop{
		editor:       editor,
		parser:       p,
		handler:      handler,
		prompt:       constants.DefaultPrompt,
		continuation: constants.DefaultContinuationPrompt,
		logger:       logging.Discard(),
		reporter: ReporterFunc(func(_ string, err error) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.handler == nil {
		l.handler = func(context.Context, *parser.Command) error { return nil }
	}
	return l
}

// State returns the current state.
func (l *Loop) State() State {
	return l.state
}

func (l *Loop) transition(to State) {
	from := l.state
	l.state = to
	if l.onTransition != nil && from != to {
		l.onTransition(from, to)
	}
}

func (l *Loop) terminate(reason Reason) Termination {
	l.term.Reason = reason
	l.transition(StateTerminated)
	l.logger.Debug("loop terminated", logging.Fields{
		"reason":     reason.String(),
		"lines":      l.term.Lines,
		"dispatched": l.term.Dispatched,
	})
	return l.term
}

// Run reads and dispatches lines until input ends, a handler returns ErrExit,
// ctx is canceled or the editor fails. Only an editor failure produces an
// error, which wraps ErrIOFault.
func (l *Loop) Run(ctx context.Context) (Termination, error) {
	if l.state == StateTerminated {
		return l.term, nil
	}

	var pending string
	for {
		l.transition(StateAwaitingLine)
		if ctx.Err() != nil {
			return l.terminate(ReasonCanceled), nil
		}

		prompt := l.prompt
		if pending != "" {
			prompt = l.continuation
		}
		line, err := l.editor.ReadLine(prompt)
		if ctx.Err() != nil {
			return l.terminate(ReasonCanceled), nil
		}
		switch {
		case err == nil:
		case errors.Is(err, ErrInterrupted):
			pending = ""
			if l.exitOnInterrupt {
				return l.terminate(ReasonInterrupt), nil
			}
			continue
		case errors.Is(err, io.EOF):
			return l.terminate(ReasonEndOfInput), nil
		default:
			l.logger.Error("read failed", err)
			return l.terminate(ReasonIOFault), fmt.Errorf("%w: %w", ErrIOFault, err)
		}

		if pending != "" {
			line = pending + "\n" + line
			pending = ""
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		l.transition(StateGotLine)
		tokens, lexErr := lexer.Tokenize(line)
		if errors.Is(lexErr, lexer.ErrDanglingEscape) {
			pending = line
			continue
		}
		// Only continuations were typed
		if lexErr == nil && len(tokens) == 0 {
			continue
		}

		l.term.Lines++
		if err := l.editor.Record(line); err != nil {
			l.logger.Warn("failed to record history", logging.Fields{"error": err.Error()})
		}

		if lexErr != nil {
			l.report(line, lexErr)
			continue
		}

		outcome := l.parser.Parse(tokens)
		switch outcome.Kind {
		case parser.OutcomeEmpty:
			continue
		case parser.OutcomeGrammarError:
			l.report(line, outcome.Err)
			continue
		}

		l.transition(StateDispatched)
		l.term.Dispatched++
		l.logger.Debug("dispatching", logging.Fields{"command": strings.Join(outcome.Command.Path, " ")})
		if err := l.handler(ctx, outcome.Command); err != nil {
			if errors.Is(err, ErrExit) {
				return l.terminate(ReasonExit), nil
			}
			l.report(line, err)
		}
	}
}

func (l *Loop) report(line string, err error) {
	l.logger.Debug("input rejected", logging.Fields{"error": err.Error()})
	if l.reporter != nil {
		l.reporter.Report(line, err)
	}
}
