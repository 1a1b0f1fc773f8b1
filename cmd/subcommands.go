package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/quocvuong92/clirepl/internal/completion"
	"github.com/quocvuong92/clirepl/internal/config"
	"github.com/quocvuong92/clirepl/internal/display"
	"github.com/quocvuong92/clirepl/internal/grammar"
	"github.com/quocvuong92/clirepl/internal/logging"
	"github.com/quocvuong92/clirepl/internal/parser"
)

// ErrUnknownOutputFormat is returned for an unsupported --format value
var ErrUnknownOutputFormat = errors.New("unknown output format")

// NewCompleteCmd prints the completion candidates for a line.
func NewCompleteCmd(app *App) *cobra.Command {
	var (
		cursor  int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "complete <line>",
		Short: "Print completion candidates for a line",
		Long: `Print the candidates the shell would offer for <line>, with the cursor at
the end of the line unless --cursor gives a byte offset.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line := args[0]
			if cursor < 0 || cursor > len(line) {
				cursor = len(line)
			}
			cands := app.engine().Complete(completion.Request{Line: line, Cursor: cursor})
			app.logger.Debug("completed", logging.Fields{"line": line, "cursor": cursor, "candidates": len(cands)})

			if jsonOut {
				return writeJSON(app, completionResult(cands))
			}
			display.ShowCandidates(app.stdout, cands, display.TerminalWidth())
			return nil
		},
	}
	cmd.Flags().IntVar(&cursor, "cursor", -1, "Cursor byte offset (default: end of line)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print candidates and their spans as JSON")
	return cmd
}

type candidateJSON struct {
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	AppendSpace bool   `json:"append_space"`
}

func completionResult(cands []completion.Candidate) []candidateJSON {
	out := make([]candidateJSON, 0, len(cands))
	for _, c := range cands {
		out = append(out, candidateJSON{
			Text:        c.Text,
			Description: c.Description,
			Start:       c.Start,
			End:         c.End,
			AppendSpace: c.AppendSpace,
		})
	}
	return out
}

// NewParseCmd parses one line and prints the matched command.
func NewParseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <line>",
		Short: "Parse a line and print the matched command as JSON",
		Long: `Parse <line> against the active grammar. The matched command is printed as
JSON. A line that does not match is reported like in the shell and the exit
status is 2.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line := args[0]
			outcome := parser.New(app.model).ParseLine(line)
			switch outcome.Kind {
			case parser.OutcomeEmpty:
				return nil
			case parser.OutcomeCommand:
				data, err := marshalCommand(app.model, outcome.Command)
				if err != nil {
					return err
				}
				fmt.Fprintln(app.stdout, string(data))
				return nil
			default:
				display.NewDiagnosticReporter(app.stderr).Report(line, outcome.Err)
				return &exitError{code: 2}
			}
		},
	}
}

type commandJSON struct {
	Path   []string             `json:"path"`
	Values map[string]valueJSON `json:"values"`
}

type valueJSON struct {
	Type     string   `json:"type"`
	Values   []string `json:"values"`
	Explicit bool     `json:"explicit"`
}

// marshalCommand encodes a parsed command with its bound values.
func marshalCommand(m *grammar.Model, cmd *parser.Command) ([]byte, error) {
	out := commandJSON{
		Path:   cmd.Path,
		Values: make(map[string]valueJSON, len(cmd.Values)),
	}
	if out.Path == nil {
		out.Path = []string{}
	}
	for _, name := range cmd.Names() {
		v := cmd.Values[name]
		out.Values[name] = valueJSON{
			Type:     v.Type.String(),
			Values:   v.Raw,
			Explicit: v.Explicit,
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", strings.Join(m.Path(cmd.Node), " "), err)
	}
	return data, nil
}

// NewGrammarCmd prints the active grammar.
func NewGrammarCmd(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "grammar",
		Short: "Print the active grammar",
		Long: `Print the active grammar, including the shell's builtin commands. The yaml
and json outputs can be edited and loaded back with --grammar.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToLower(format) {
			case "markdown", "md":
				display.ShowMarkdown(grammarMarkdown(app.model))
				return nil
			case "json":
				return writeJSON(app, app.definition)
			case "yaml", "yml":
				data, err := yaml.Marshal(app.definition)
				if err != nil {
					return fmt.Errorf("encoding grammar: %w", err)
				}
				_, err = app.stdout.Write(data)
				return err
			default:
				return fmt.Errorf("%w %q (expected markdown, json or yaml)", ErrUnknownOutputFormat, format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "Output format: markdown, json, yaml")
	return cmd
}

// grammarMarkdown renders usage for every command, depth first.
func grammarMarkdown(m *grammar.Model) string {
	var sections []string
	var walk func(id grammar.NodeID)
	walk = func(id grammar.NodeID) {
		sections = append(sections, grammar.Usage(m, id))
		for _, sub := range m.Subcommands(id) {
			walk(sub)
		}
	}
	walk(m.Root())
	return strings.Join(sections, "\n")
}

// NewInitConfigCmd writes a commented configuration template.
func NewInitConfigCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Create a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfigFile()
			if err != nil {
				return err
			}
			display.ShowSuccess(fmt.Sprintf("Created config file at %s", path))
			return nil
		},
	}
}

func writeJSON(app *App, v any) error {
	enc := json.NewEncoder(app.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
