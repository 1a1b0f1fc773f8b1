package parser

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/quocvuong92/clirepl/internal/grammar"
)

// State walks a token sequence through a grammar one token at a time. The
// parser runs it to the end of input; the completion engine stops one token
// short and inspects where it is.
//
// Feed never changes the state when it returns an error, so the state before
// a failing token stays usable.
type State struct {
	model *grammar.Model

	node       grammar.NodeID
	bound      map[grammar.NodeID][]string
	positional int
	flagsDone  bool

	pending      grammar.NodeID
	pendingIndex int
	pendingToken string
}

// NewState starts a walk at the root of m.
func NewState(m *grammar.Model) *State {
	return &State{
		model:   m,
		node:    m.Root(),
		bound:   make(map[grammar.NodeID][]string),
		pending: grammar.None,
	}
}

// Clone returns an independent copy of s.
func (s *State) Clone() *State {
	c := *s
	c.bound = make(map[grammar.NodeID][]string, len(s.bound))
	for id, values := range s.bound {
		c.bound[id] = slices.Clone(values)
	}
	return &c
}

// Model returns the grammar being walked.
func (s *State) Model() *grammar.Model {
	return s.model
}

// Node returns the deepest command matched so far.
func (s *State) Node() grammar.NodeID {
	return s.node
}

// Path returns the command names matched so far.
func (s *State) Path() []string {
	return s.model.Path(s.node)
}

// Pending returns the flag waiting for its value, if any.
func (s *State) Pending() (grammar.NodeID, bool) {
	return s.pending, s.pending != grammar.None
}

// FlagsDone reports whether "--" has ended flag parsing.
func (s *State) FlagsDone() bool {
	return s.flagsDone
}

// Bound reports whether id already has a value.
func (s *State) Bound(id grammar.NodeID) bool {
	_, ok := s.bound[id]
	return ok
}

// NextPositional returns the positional the next plain token binds to.
func (s *State) NextPositional() (grammar.NodeID, bool) {
	positionals := s.model.Positionals(s.node)
	if s.positional < len(positionals) {
		return positionals[s.positional], true
	}
	return grammar.None, false
}

// Feed consumes the token at index.
func (s *State) Feed(index int, token string) *GrammarError {
	if s.pending != grammar.None {
		flag := s.model.Node(s.pending)
		if err := s.checkValue(flag, index, token); err != nil {
			return err
		}
		s.bind(s.pending, token)
		s.pending = grammar.None
		return nil
	}

	if !s.flagsDone && token == "--" {
		s.flagsDone = true
		return nil
	}

	if !s.flagsDone && s.looksLikeFlag(token) {
		return s.feedFlag(index, token)
	}

	if s.model.HasSubcommands(s.node) {
		child, ok := s.model.Subcommand(s.node, token)
		if !ok {
			expected := s.subcommandNames()
			return &GrammarError{
				Reason:     UnknownCommand,
				Token:      token,
				Index:      index,
				Path:       s.Path(),
				Expected:   expected,
				Suggestion: suggest(token, expected),
			}
		}
		s.node = child
		s.positional = 0
		return nil
	}

	id, ok := s.NextPositional()
	if !ok {
		return &GrammarError{
			Reason: UnexpectedArgument,
			Token:  token,
			Index:  index,
			Path:   s.Path(),
		}
	}
	pos := s.model.Node(id)
	if err := s.checkValue(pos, index, token); err != nil {
		return err
	}
	s.bind(id, token)
	if !pos.Multiple {
		s.positional++
	}
	return nil
}

// looksLikeFlag reports whether token is spelled like a flag. Negative numbers
// are values unless the command defines a matching short flag.
func (s *State) looksLikeFlag(token string) bool {
	if len(token) < 2 || token[0] != '-' {
		return false
	}
	if _, err := strconv.ParseFloat(token, 64); err == nil {
		_, ok := s.model.FlagBySpelling(s.node, token)
		return ok
	}
	return true
}

// SplitFlag separates "--name=value" into its spelling and value.
func SplitFlag(token string) (spelling, value string, hasValue bool) {
	if strings.HasPrefix(token, "-") {
		if i := strings.IndexByte(token, '='); i > 0 {
			return token[:i], token[i+1:], true
		}
	}
	return token, "", false
}

func (s *State) feedFlag(index int, token string) *GrammarError {
	spelling, value, hasValue := SplitFlag(token)

	id, ok := s.model.FlagBySpelling(s.node, spelling)
	if !ok {
		expected := s.flagSpellings()
		return &GrammarError{
			Reason:     UnknownFlag,
			Token:      spelling,
			Index:      index,
			Path:       s.Path(),
			Expected:   expected,
			Suggestion: suggest(spelling, expected),
		}
	}
	flag := s.model.Node(id)

	if s.Bound(id) && !flag.Multiple {
		return &GrammarError{
			Reason:   DuplicateFlag,
			Token:    token,
			Index:    index,
			Path:     s.Path(),
			Name:     flag.Name,
			Spelling: spelling,
		}
	}

	if flag.Type == grammar.TypeBool {
		if !hasValue {
			value = "true"
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &GrammarError{
				Reason:   InvalidValue,
				Token:    value,
				Index:    index,
				Path:     s.Path(),
				Name:     flag.Name,
				Spelling: spelling,
				Expected: []string{"true", "false"},
				Detail:   "expected a boolean",
			}
		}
		s.bind(id, strconv.FormatBool(b))
		return nil
	}

	if hasValue {
		if err := s.checkValue(flag, index, value); err != nil {
			return err
		}
		s.bind(id, value)
		return nil
	}

	s.pending = id
	s.pendingIndex = index
	s.pendingToken = token
	return nil
}

func (s *State) checkValue(n grammar.Node, index int, value string) *GrammarError {
	err := grammar.CheckValue(n, value)
	if err == nil {
		return nil
	}
	literals := n.Literals()
	ge := &GrammarError{
		Reason:   InvalidValue,
		Token:    value,
		Index:    index,
		Path:     s.Path(),
		Name:     n.Name,
		Spelling: displayName(n),
		Expected: literals,
	}
	if len(literals) > 0 {
		ge.Detail = "expected one of " + strings.Join(literals, ", ")
		ge.Suggestion = suggest(value, literals)
	} else {
		ge.Detail = "expected " + n.Type.String()
	}
	return ge
}

func (s *State) bind(id grammar.NodeID, value string) {
	s.bound[id] = append(s.bound[id], value)
}

func (s *State) subcommandNames() []string {
	subs := s.model.Subcommands(s.node)
	names := make([]string, len(subs))
	for i, id := range subs {
		names[i] = s.model.Node(id).Name
	}
	return names
}

func (s *State) flagSpellings() []string {
	var spellings []string
	for _, id := range s.model.Flags(s.node) {
		spellings = append(spellings, s.model.Node(id).Spellings()...)
	}
	return spellings
}

// Finish checks the end of input and produces the matched command.
func (s *State) Finish() (*Command, *GrammarError) {
	if s.pending != grammar.None {
		flag := s.model.Node(s.pending)
		return nil, &GrammarError{
			Reason:   MissingValue,
			Token:    s.pendingToken,
			Index:    s.pendingIndex,
			Path:     s.Path(),
			Name:     flag.Name,
			Spelling: s.pendingToken,
			Expected: flag.Literals(),
		}
	}

	if s.model.HasSubcommands(s.node) {
		return nil, &GrammarError{
			Reason:   MissingSubcommand,
			Index:    -1,
			Path:     s.Path(),
			Expected: s.subcommandNames(),
		}
	}

	values := make(map[string]Value)
	for _, cmd := range s.commandChain() {
		for _, id := range s.model.Children(cmd) {
			n := s.model.Node(id)
			if n.Kind == grammar.KindCommand {
				continue
			}
			if raw, ok := s.bound[id]; ok {
				values[n.Name] = Value{Node: id, Type: n.Type, Raw: slices.Clone(raw), Explicit: true}
				continue
			}
			if n.Required {
				return nil, &GrammarError{
					Reason:   MissingRequired,
					Index:    -1,
					Path:     s.Path(),
					Name:     n.Name,
					Spelling: displayName(n),
				}
			}
			switch {
			case n.HasDefault:
				values[n.Name] = Value{Node: id, Type: n.Type, Raw: []string{n.Default}}
			case n.Type == grammar.TypeBool:
				values[n.Name] = Value{Node: id, Type: n.Type, Raw: []string{"false"}}
			}
		}
	}

	return &Command{
		Path:   s.Path(),
		Node:   s.node,
		Values: values,
	}, nil
}

// commandChain returns the commands from the root down to the current node.
func (s *State) commandChain() []grammar.NodeID {
	var chain []grammar.NodeID
	for id := s.node; id != grammar.None; id = s.model.Node(id).Parent {
		chain = append(chain, id)
	}
	slices.Reverse(chain)
	return chain
}

// BoundValues returns a copy of every value bound so far, keyed by node.
func (s *State) BoundValues() map[grammar.NodeID][]string {
	out := maps.Clone(s.bound)
	for id, v := range out {
		out[id] = slices.Clone(v)
	}
	return out
}

func displayName(n grammar.Node) string {
	if n.Kind == grammar.KindFlag {
		return "--" + n.Long
	}
	return n.Placeholder()
}
