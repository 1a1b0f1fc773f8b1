// Package cmd implements the command line interface of clirepl.
//
// # Architecture
//
// This package is organized into the following logical groups:
//
// ## Core CLI
//
//   - root.go: Main entry point, App struct, cobra command setup, flags and
//     grammar loading
//   - subcommands.go: One-shot commands (complete, parse, grammar, init-config)
//
// ## Interactive Mode
//
//   - interactive.go: Session setup, editor choice, history and the read loop
//   - commands.go: The demo command set and the builtin help, history and exit
//     commands
//   - kv.go: In-memory keyspace behind the get/set/del/sadd/smembers commands
//
// # Key Components
//
// ## App
//
// The App struct holds the configuration and the active grammar. It's created
// in Execute() and shared by every subcommand. The grammar is either the demo
// command set, declared as a cobra tree and converted with grammar.FromCobra,
// or a file given with --grammar.
//
// ## session
//
// One interactive run:
//   - A session ID tagging log records and history entries
//   - The line editor: go-prompt on a terminal, a plain reader otherwise
//   - A dispatch.Registry routing parsed commands to handlers
//   - Backslash continuation and Ctrl+C handling from repl.Loop
//
// # Usage
//
//	// Main entry point
//	func main() {
//	    cmd.Execute()
//	}
package cmd
