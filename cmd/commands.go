package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quocvuong92/clirepl/internal/constants"
	"github.com/quocvuong92/clirepl/internal/dispatch"
	"github.com/quocvuong92/clirepl/internal/display"
	"github.com/quocvuong92/clirepl/internal/grammar"
	"github.com/quocvuong92/clirepl/internal/logging"
	"github.com/quocvuong92/clirepl/internal/parser"
	"github.com/quocvuong92/clirepl/internal/repl"
)

// transferDelay simulates the duration of a download or upload
var transferDelay = 800 * time.Millisecond

// inputCases is the documented value set shared by the input commands
var inputCases = []string{
	"case1\tThis is the case 1",
	"case2\tThis is the case 2",
	"c\tA case with a short name",
	"case-without-help",
}

// DemoDefinition returns the built-in command set. It is declared as a cobra
// tree and converted, so flags and positionals read like any cobra command.
func DemoDefinition() grammar.Definition {
	root := &cobra.Command{Use: constants.AppName, Short: "Demo commands"}

	download := &cobra.Command{Use: "download <path>", Short: "Download a file"}
	download.Flags().Bool("check-sha", false, "Verify the checksum after downloading")

	upload := &cobra.Command{Use: "upload", Short: "Upload a file"}

	login := &cobra.Command{Use: "login", Short: "Log in to the server"}
	login.Flags().StringP("username", "u", "", "Account name, asked for when missing")
	login.Flags().String("mode", "secure", "Connection mode")
	mustAnnotate(grammar.SetFlagValues(login, "mode",
		"secure\tVerify server certificates",
		"insecure\tSkip certificate verification",
	))

	grammar.AddCommands(root, download, upload, login)
	grammar.AddCommands(root, kvCommands()...)
	grammar.AddCommands(root, inputCommands()...)

	nested := &cobra.Command{Use: "nested-command", Short: "Commands one level down"}
	grammar.AddCommands(nested, inputCommands()...)
	for _, name := range []string{"command1", "command2"} {
		sub := &cobra.Command{Use: name, Short: "Nested " + name}
		sub.Flags().String("input", "", "Free-form input")
		grammar.AddCommands(nested, sub)
	}
	grammar.AddCommands(root, nested)

	return grammar.FromCobra(root)
}

func kvCommands() []*cobra.Command {
	get := &cobra.Command{Use: "get <key>", Short: "Get the value of a key"}

	set := &cobra.Command{Use: "set <key> <value>", Short: "Set the value of a key"}
	set.Flags().Int("ttl", 0, "Expire the key after this many seconds")

	del := &cobra.Command{Use: "del <key>...", Short: "Delete keys"}
	sadd := &cobra.Command{Use: "sadd <key> <member>...", Short: "Add members to a set"}
	smembers := &cobra.Command{Use: "smembers <key>", Short: "List the members of a set"}

	return []*cobra.Command{get, set, del, sadd, smembers}
}

func inputCommands() []*cobra.Command {
	none := &cobra.Command{Use: "no-input", Short: "Takes no input"}

	positional := &cobra.Command{
		Use:       "positional-input <input>",
		Short:     "Takes a positional case",
		ValidArgs: inputCases,
	}

	short := &cobra.Command{Use: "short-input", Short: "Takes a case through -i"}
	short.Flags().StringP("input", "i", "", "The case to use")
	mustAnnotate(short.MarkFlagRequired("input"))
	mustAnnotate(grammar.SetFlagValues(short, "input", inputCases...))

	long := &cobra.Command{Use: "long-input", Short: "Takes a case through --input"}
	long.Flags().String("input", "", "The case to use")
	mustAnnotate(long.MarkFlagRequired("input"))
	mustAnnotate(grammar.SetFlagValues(long, "input", inputCases...))

	return []*cobra.Command{none, positional, short, long}
}

// mustAnnotate panics on flag annotation errors, which only happen for a
// misspelled flag name.
func mustAnnotate(err error) {
	if err != nil {
		panic(err)
	}
}

// builtinDefinitions are the shell's own commands, available under any
// grammar.
func builtinDefinitions() []grammar.CommandDef {
	return []grammar.CommandDef{
		{
			Name: "help",
			Help: "Show usage for a command",
			Args: []grammar.ArgDef{{Name: "command", Help: "Command path", Multiple: true}},
		},
		{
			Name: "history",
			Help: "Show the line history",
			Flags: []grammar.FlagDef{
				{Name: "clear", Type: "bool", Help: "Forget every entry"},
			},
		},
		{Name: "exit", Help: "Leave the shell"},
	}
}

// withBuiltins appends the builtin commands def does not already define and
// returns the names that were added.
func withBuiltins(def grammar.Definition) (grammar.Definition, []string) {
	taken := make(map[string]bool, len(def.Commands))
	for _, c := range def.Commands {
		taken[c.Name] = true
	}
	// A root with positionals cannot take subcommands
	if len(def.Args) > 0 {
		return def, nil
	}

	var added []string
	commands := append([]grammar.CommandDef(nil), def.Commands...)
	for _, b := range builtinDefinitions() {
		if taken[b.Name] {
			continue
		}
		commands = append(commands, b)
		added = append(added, b.Name)
	}
	def.Commands = commands
	return def, added
}

// registerBuiltins binds the builtin commands that made it into the grammar.
func (s *session) registerBuiltins(reg *dispatch.Registry, names []string) {
	for _, name := range names {
		switch name {
		case "help":
			reg.MustRegister("help", s.help)
		case "history":
			reg.MustRegister("history", s.history)
		case "exit":
			reg.MustRegister("exit", func(context.Context, *parser.Command) error {
				return repl.ErrExit
			})
		}
	}
}

// registerDemo binds the demo command handlers.
func (s *session) registerDemo(reg *dispatch.Registry) {
	reg.MustRegister("download", s.download)
	reg.MustRegister("upload", s.upload)
	reg.MustRegister("login", s.login)
	reg.MustRegister("get", s.kvGet)
	reg.MustRegister("set", s.kvSet)
	reg.MustRegister("del", s.kvDel)
	reg.MustRegister("sadd", s.kvSadd)
	reg.MustRegister("smembers", s.kvSmembers)
	for _, name := range []string{"no-input", "positional-input", "short-input", "long-input"} {
		reg.MustRegister(name, s.echoInput)
	}
	reg.MustRegister("nested-command *", s.echoInput)
}

func (s *session) help(_ context.Context, cmd *parser.Command) error {
	model := s.app.model
	path := cmd.Strings("command")
	id, ok := model.Lookup(path...)
	if !ok {
		return fmt.Errorf("no such command: %s", strings.Join(path, " "))
	}
	display.ShowMarkdown(grammar.Usage(model, id))
	return nil
}

func (s *session) history(_ context.Context, cmd *parser.Command) error {
	if cmd.Bool("clear") {
		if err := s.store.Clear(); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		display.ShowSuccess("History cleared")
		return nil
	}
	for i, line := range s.store.Lines() {
		fmt.Fprintf(s.out, "%5d  %s\n", i+1, line)
	}
	return nil
}

// transfer waits for the simulated transfer, giving up when ctx ends.
func transfer(ctx context.Context, msg string) error {
	return display.WithSpinner(constants.SpinnerDelay, msg, func() error {
		select {
		case <-time.After(transferDelay):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func (s *session) download(ctx context.Context, cmd *parser.Command) error {
	path := cmd.String("path")
	if err := transfer(ctx, "Downloading "+path+"..."); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Downloaded %s with checking = %t\n", path, cmd.Bool("check_sha"))
	return nil
}

func (s *session) upload(ctx context.Context, _ *parser.Command) error {
	if err := transfer(ctx, "Uploading..."); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Uploaded")
	return nil
}

// errEmptyUsername is returned when the username prompt gets a blank answer
var errEmptyUsername = errors.New("username must not be empty")

func (s *session) login(_ context.Context, cmd *parser.Command) error {
	username := cmd.String("username")
	if username == "" {
		answer, err := s.editor.ReadLine("What is your username? ")
		if err != nil {
			return fmt.Errorf("reading username: %w", err)
		}
		username = strings.TrimSpace(answer)
		if username == "" {
			return errEmptyUsername
		}
	}

	if _, err := s.readSecret("What is your password? "); err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	s.logger.Info("logged in", logging.Fields{"username": username, "mode": cmd.String("mode")})
	fmt.Fprintf(s.out, "Logged in with %s (%s)\n", username, cmd.String("mode"))
	return nil
}

func (s *session) echoInput(_ context.Context, cmd *parser.Command) error {
	name := strings.Join(cmd.Path, " ")
	if input := cmd.String("input"); input != "" {
		fmt.Fprintf(s.out, "%s: %s\n", name, input)
		return nil
	}
	fmt.Fprintln(s.out, name)
	return nil
}
