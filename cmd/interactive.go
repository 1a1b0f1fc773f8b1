package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/quocvuong92/clirepl/internal/constants"
	"github.com/quocvuong92/clirepl/internal/dispatch"
	"github.com/quocvuong92/clirepl/internal/display"
	"github.com/quocvuong92/clirepl/internal/editor"
	"github.com/quocvuong92/clirepl/internal/history"
	"github.com/quocvuong92/clirepl/internal/logging"
	"github.com/quocvuong92/clirepl/internal/parser"
	"github.com/quocvuong92/clirepl/internal/repl"
)

// session holds the state of one interactive run: its history, the editor
// reading lines and the handlers commands are dispatched to.
type session struct {
	app      *App
	id       string
	logger   *logging.FieldLogger
	store    history.Store
	editor   repl.Editor
	registry *dispatch.Registry
	kv       *kvStore
	out      io.Writer

	// readSecret reads a line without echoing it when possible
	readSecret func(prompt string) (string, error)
}

// editorFactory creates the line editor for a session once its history store
// is known.
type editorFactory func(store history.Store) repl.Editor

// newSession prepares history, handlers and the editor returned by
// newEditor.
func (app *App) newSession(newEditor editorFactory, persist bool) *session {
	s := &session{
		app: app,
		id:  uuid.New().String(),
		kv:  newKVStore(),
		out: app.stdout,
	}
	s.logger = app.logger.WithFields(logging.Fields{"session": s.id})
	s.store = app.historyStore(s.id, persist, s.logger)
	s.editor = newEditor(s.store)
	s.readSecret = s.editor.ReadLine

	opts := []dispatch.Option{
		dispatch.WithTimeout(app.cfg.CommandTimeout),
		dispatch.WithLogger(s.logger),
	}
	if app.custom {
		opts = append(opts, dispatch.WithFallback(s.printCommand))
	}
	s.registry = dispatch.NewRegistry(opts...)
	s.registerBuiltins(s.registry, app.builtins)
	if !app.custom {
		s.registerDemo(s.registry)
	}
	return s
}

// historyStore opens the history file, or keeps history in memory when it is
// disabled or the session is not persisted.
func (app *App) historyStore(sessionID string, persist bool, logger logging.StructuredLogger) history.Store {
	if !persist || app.cfg.NoHistory {
		return history.NewMemory(app.cfg.HistorySize)
	}

	path := app.cfg.HistoryFile
	if path == "" {
		p, err := history.DefaultPath()
		if err != nil {
			logger.Warn("no history location, keeping history in memory", logging.Fields{"error": err.Error()})
			return history.NewMemory(app.cfg.HistorySize)
		}
		path = p
	}

	store := history.NewFile(path, history.WithSession(sessionID), history.WithLimit(app.cfg.HistorySize))
	if _, err := store.Load(); err != nil {
		// History load failed, continue without it
		display.ShowWarning(fmt.Sprintf("Could not load history: %v", err))
	}
	return store
}

// run drives the read loop until it terminates.
func (s *session) run(ctx context.Context) (repl.Termination, error) {
	cfg := s.app.cfg
	loop := repl.New(s.editor, parser.New(s.app.model), s.registry.Handle,
		repl.WithPrompt(cfg.Prompt),
		repl.WithContinuationPrompt(cfg.ContinuationPrompt),
		repl.WithExitOnInterrupt(cfg.ExitOnInterrupt),
		repl.WithReporter(display.NewDiagnosticReporter(nil)),
		repl.WithLogger(s.logger),
		repl.WithTransitionHook(func(from, to repl.State) {
			s.logger.Debug("state", logging.Fields{"from": from.String(), "to": to.String()})
		}),
	)

	result, err := loop.Run(ctx)
	s.logger.Info("session ended", logging.Fields{
		"reason":     result.Reason.String(),
		"lines":      result.Lines,
		"dispatched": result.Dispatched,
	})
	return result, err
}

// printCommand is the fallback handler for loaded grammars: it prints the
// parsed command as JSON.
func (s *session) printCommand(_ context.Context, cmd *parser.Command) error {
	data, err := marshalCommand(s.app.model, cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, string(data))
	return nil
}

// runInteractive starts the interactive shell on the terminal, or reads
// commands line by line when standard input is not a terminal.
func (app *App) runInteractive(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(runContext(ctx), syscall.SIGTERM)
	defer stop()

	stdin, interactive := app.terminalInput()
	if err := display.InitRenderer(display.TerminalWidth()); err != nil {
		app.logger.Warn("markdown rendering disabled", logging.Fields{"error": err.Error()})
	}

	newEditor := func(store history.Store) repl.Editor {
		return editor.NewReaderEditor(app.stdin, nil, store)
	}
	if interactive {
		newEditor = func(store history.Store) repl.Editor {
			return editor.NewPromptEditor(app.engine(), store,
				editor.WithTitle(constants.AppName),
				editor.WithMaxSuggestions(app.cfg.MaxSuggestions),
				editor.WithColors(!app.cfg.NoColor),
			)
		}
	}

	s := app.newSession(newEditor, interactive)
	if interactive {
		s.readSecret = func(prompt string) (string, error) {
			fmt.Fprint(app.stdout, prompt)
			secret, err := term.ReadPassword(int(stdin.Fd()))
			fmt.Fprintln(app.stdout)
			return string(secret), err
		}

		fmt.Fprintf(app.stdout, "%s - Interactive Mode\n", constants.AppName)
		fmt.Fprintln(app.stdout, "Type help for commands, Tab to complete, Ctrl+D to quit")
		fmt.Fprintln(app.stdout, "End a line with \\ to continue it on the next one")
		fmt.Fprintln(app.stdout)
	}

	result, err := s.run(ctx)
	if err != nil {
		return err
	}
	if interactive && result.Reason != repl.ReasonCanceled {
		fmt.Fprintln(app.stdout, "Goodbye!")
	}
	return nil
}

// terminalInput reports whether standard input is an interactive terminal.
func (app *App) terminalInput() (*os.File, bool) {
	f, ok := app.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil, false
	}
	return f, true
}
