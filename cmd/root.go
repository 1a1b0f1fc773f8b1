package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/quocvuong92/clirepl/internal/completion"
	"github.com/quocvuong92/clirepl/internal/config"
	"github.com/quocvuong92/clirepl/internal/constants"
	"github.com/quocvuong92/clirepl/internal/display"
	"github.com/quocvuong92/clirepl/internal/grammar"
	"github.com/quocvuong92/clirepl/internal/logging"
)

// App holds the application state
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	// definition is the active grammar before building; model is built from it
	definition grammar.Definition
	model      *grammar.Model
	custom     bool
	// builtins lists the shell commands added to the grammar
	builtins []string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewApp creates a new App instance with default configuration
func NewApp() *App {
	return &App{
		cfg:    config.NewConfig(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// Execute runs the root command
func Execute() {
	app := NewApp()
	rootCmd := NewRootCmd(app)

	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		display.ShowError(err.Error())
		os.Exit(1)
	}
}

// exitError ends the process with a status code after its message has already
// been shown.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// NewRootCmd builds the command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   constants.AppName,
		Short: "An interactive shell with grammar-driven parsing and completion",
		Long: `clirepl is an interactive command shell. Every line is split like a POSIX
shell would, matched against a command grammar and dispatched to a handler.
Tab completion, usage help and error messages all come from the same grammar.

Without --grammar a built-in demo command set is used. With --grammar the
commands come from a YAML or JSONC file and every parsed command is printed as
JSON.

Examples:
  clirepl                              # Interactive shell
  clirepl --grammar commands.yaml      # Shell over your own grammar
  clirepl complete "login --mode "     # Print completions for a line
  clirepl parse "download a.txt"       # Parse one line and print the result
  clirepl grammar --format yaml        # Print the active grammar`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runInteractive(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&app.cfg.Verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&app.cfg.LogLevel, "log-level", "", "Log level: debug, info, warn, error, none (default: warn)")
	flags.StringVar(&app.cfg.LogFormat, "log-format", "", "Log format: text, json, auto (default: auto)")
	flags.StringVarP(&app.cfg.GrammarFile, "grammar", "g", "", "Grammar file (.yaml, .yml, .json, .jsonc)")
	flags.BoolVar(&app.cfg.NoColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&app.cfg.Fuzzy, "fuzzy", false, "Fall back to fuzzy matching when no completion matches the typed prefix")

	rootCmd.Flags().StringVarP(&app.cfg.Prompt, "prompt", "p", "", "Prompt text (default: \"> \")")
	rootCmd.Flags().StringVar(&app.cfg.HistoryFile, "history-file", "", "History file (default: user config directory)")
	rootCmd.Flags().IntVar(&app.cfg.HistorySize, "history-size", 0, "Number of history entries to keep")
	rootCmd.Flags().BoolVar(&app.cfg.NoHistory, "no-history", false, "Keep history in memory only")
	rootCmd.Flags().BoolVar(&app.cfg.ExitOnInterrupt, "exit-on-interrupt", false, "Exit on Ctrl-C instead of discarding the line")
	rootCmd.Flags().DurationVar(&app.cfg.CommandTimeout, "timeout", 0, "Upper bound for a single command (default: 30s)")

	// Add subcommands
	rootCmd.AddCommand(NewCompleteCmd(app))
	rootCmd.AddCommand(NewParseCmd(app))
	rootCmd.AddCommand(NewGrammarCmd(app))
	rootCmd.AddCommand(NewInitConfigCmd(app))

	return rootCmd
}

// setup validates the configuration and prepares logging, colors and the
// active grammar. It runs before every command.
func (app *App) setup() error {
	if err := app.cfg.Validate(); err != nil {
		return err
	}

	display.SetOutput(app.stdout, app.stderr)
	display.SetColor(!app.cfg.NoColor)

	app.logger = logging.New(logging.Options{
		Level:  app.cfg.Level(),
		Format: app.cfg.Format(),
		Output: app.stderr,
	})
	logging.SetLevel(app.cfg.Level())
	logging.SetFormat(app.cfg.Format())
	logging.SetOutput(app.stderr)

	return app.loadGrammar()
}

// loadGrammar builds the model from --grammar, or the demo commands. The
// shell's built-in commands are added to either unless the grammar already
// defines a command with the same name.
func (app *App) loadGrammar() error {
	var def grammar.Definition
	if app.cfg.GrammarFile != "" {
		loaded, err := grammar.LoadDefinition(app.cfg.GrammarFile)
		if err != nil {
			return err
		}
		def = loaded
		app.custom = true
	} else {
		def = DemoDefinition()
	}
	def, builtins := withBuiltins(def)

	model, err := grammar.Build(def)
	if err != nil {
		if app.custom {
			return fmt.Errorf("%s: %w", app.cfg.GrammarFile, err)
		}
		return err
	}

	app.definition = def
	app.model = model
	app.builtins = builtins
	app.logger.Debug("grammar loaded", logging.Fields{
		"nodes":  model.Len(),
		"custom": app.custom,
		"source": app.cfg.GrammarFile,
	})
	return nil
}

// engine returns a completion engine for the active grammar.
func (app *App) engine() *completion.Engine {
	return completion.New(app.model, completion.WithFuzzyFallback(app.cfg.Fuzzy))
}

// runContext returns ctx, or a background context when cobra provides none.
func runContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
