// Package parser maps token sequences onto a grammar.Model.
//
// Parsing is exact: command names and flag spellings match case-sensitively,
// values are checked against their type and value set, and a ParsedCommand is
// only produced when the whole sequence matches. The parser never runs
// anything; dispatch belongs to the caller.
package parser

import (
	"sort"
	"strconv"

	"github.com/quocvuong92/clirepl/internal/grammar"
	"github.com/quocvuong92/clirepl/internal/lexer"
)

// OutcomeKind tags which field of an Outcome is meaningful
type OutcomeKind int

const (
	// OutcomeEmpty means the input had no tokens
	OutcomeEmpty OutcomeKind = iota
	// OutcomeCommand means Command holds a fully matched command
	OutcomeCommand
	// OutcomeLexError means Err holds a *lexer.Error
	OutcomeLexError
	// OutcomeGrammarError means Err holds a *GrammarError
	OutcomeGrammarError
)

// String returns the string representation of the outcome kind
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeEmpty:
		return "empty"
	case OutcomeCommand:
		return "command"
	case OutcomeLexError:
		return "lex error"
	case OutcomeGrammarError:
		return "grammar error"
	default:
		return "unknown"
	}
}

// Outcome is the result of parsing one input line. Exactly one of Command and
// Err is set, except for OutcomeEmpty where neither is.
type Outcome struct {
	Kind    OutcomeKind
	Command *Command
	Err     error
	// Tokens are the lexed tokens, when lexing succeeded.
	Tokens []lexer.Token
}

// Value is a bound flag or positional.
type Value struct {
	Node grammar.NodeID
	Type grammar.Type
	Raw  []string
	// Explicit is false when the value came from a default.
	Explicit bool
}

// Command is a fully matched command invocation.
type Command struct {
	// Path lists the command names from the root, e.g. ["config", "get"].
	Path   []string
	Node   grammar.NodeID
	Values map[string]Value
}

// Has reports whether name was given on the command line.
func (c *Command) Has(name string) bool {
	v, ok := c.Values[name]
	return ok && v.Explicit
}

// String returns the first value bound to name, or "".
func (c *Command) String(name string) string {
	v, ok := c.Values[name]
	if !ok || len(v.Raw) == 0 {
		return ""
	}
	return v.Raw[0]
}

// Strings returns every value bound to name.
func (c *Command) Strings(name string) []string {
	v, ok := c.Values[name]
	if !ok {
		return nil
	}
	return append([]string(nil), v.Raw...)
}

// Int returns the integer bound to name, or 0.
func (c *Command) Int(name string) int {
	n, err := strconv.Atoi(c.String(name))
	if err != nil {
		return 0
	}
	return n
}

// Bool returns the switch bound to name.
func (c *Command) Bool(name string) bool {
	b, _ := strconv.ParseBool(c.String(name))
	return b
}

// Names returns the names of every bound value in sorted order.
func (c *Command) Names() []string {
	names := make([]string, 0, len(c.Values))
	for name := range c.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parser parses tokens against one model. It is safe for concurrent use.
type Parser struct {
	model *grammar.Model
}

// New returns a parser for m.
func New(m *grammar.Model) *Parser {
	return &Parser{model: m}
}

// Model returns the parser's grammar.
func (p *Parser) Model() *grammar.Model {
	return p.model
}

// Parse matches tokens against the grammar.
func (p *Parser) Parse(tokens []lexer.Token) Outcome {
	if len(tokens) == 0 {
		return Outcome{Kind: OutcomeEmpty}
	}

	state := NewState(p.model)
	for i, tok := range tokens {
		if err := state.Feed(i, tok.Text); err != nil {
			return Outcome{Kind: OutcomeGrammarError, Err: err, Tokens: tokens}
		}
	}

	cmd, err := state.Finish()
	if err != nil {
		return Outcome{Kind: OutcomeGrammarError, Err: err, Tokens: tokens}
	}
	return Outcome{Kind: OutcomeCommand, Command: cmd, Tokens: tokens}
}

// ParseLine lexes and parses a raw input line.
func (p *Parser) ParseLine(line string) Outcome {
	tokens, err := lexer.Tokenize(line)
	if err != nil {
		return Outcome{Kind: OutcomeLexError, Err: err}
	}
	return p.Parse(tokens)
}

// ParseArgs parses already split arguments, as given on a command line.
func (p *Parser) ParseArgs(args []string) Outcome {
	tokens := make([]lexer.Token, len(args))
	for i, arg := range args {
		tokens[i] = lexer.Token{Text: arg}
	}
	return p.Parse(tokens)
}
