// Package grammar holds the static, read-only description of a command tree.
//
// A Model is built once from a declarative Definition (see Build, LoadFile and
// FromCobra) and never changes afterwards. Nodes live in an arena and are
// addressed by NodeID, so the model can be shared between the parser, the
// completion engine and help rendering without any synchronization.
//
// Every accessor returns copies; there is no way to mutate a Model after Build.
package grammar

import (
	"slices"
	"strings"
)

// NodeID addresses a node within a Model
type NodeID int

// None is the zero handle, returned when a lookup fails
const None NodeID = -1

// Kind tags what a node describes
type Kind int

const (
	// KindCommand is a command or subcommand
	KindCommand Kind = iota
	// KindFlag is a named argument spelled --long or -s
	KindFlag
	// KindPositional is an argument bound by position
	KindPositional
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindFlag:
		return "flag"
	case KindPositional:
		return "positional"
	default:
		return "unknown"
	}
}

// Type is the value type of a flag or positional
type Type int

const (
	// TypeString accepts any text
	TypeString Type = iota
	// TypeInt accepts a base-10 integer
	TypeInt
	// TypeBool is a switch; only valid for flags
	TypeBool
)

// String returns the string representation of the type
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseType maps a definition type name onto a Type. The empty string is a
// string.
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "str":
		return TypeString, true
	case "int", "integer":
		return TypeInt, true
	case "bool", "boolean", "switch":
		return TypeBool, true
	default:
		return TypeString, false
	}
}

// Value is one literal of a closed value set
type Value struct {
	Literal string
	Help    string
}

// Node is one entry of the command tree.
type Node struct {
	ID       NodeID
	Kind     Kind
	Name     string
	Help     string
	Parent   NodeID
	Children []NodeID

	// Long and Short are the flag spellings without dashes.
	Long  string
	Short string

	Type       Type
	Values     []Value
	Multiple   bool
	Required   bool
	Default    string
	HasDefault bool
}

// TakesValue reports whether the node consumes a value token.
func (n Node) TakesValue() bool {
	switch n.Kind {
	case KindPositional:
		return true
	case KindFlag:
		return n.Type != TypeBool
	default:
		return false
	}
}

// Spellings returns the dashed spellings of a flag, long first.
func (n Node) Spellings() []string {
	if n.Kind != KindFlag {
		return nil
	}
	spellings := []string{"--" + n.Long}
	if n.Short != "" {
		spellings = append(spellings, "-"+n.Short)
	}
	return spellings
}

// Accepts reports whether value is in the node's closed value set. Nodes
// without a value set accept anything.
func (n Node) Accepts(value string) bool {
	if len(n.Values) == 0 {
		return true
	}
	for _, v := range n.Values {
		if v.Literal == value {
			return true
		}
	}
	return false
}

// Literals returns the literals of the node's value set.
func (n Node) Literals() []string {
	literals := make([]string, len(n.Values))
	for i, v := range n.Values {
		literals[i] = v.Literal
	}
	return literals
}

// Placeholder is the name shown for the node's value in usage text.
func (n Node) Placeholder() string {
	return "<" + n.Name + ">"
}

func (n Node) clone() Node {
	n.Children = slices.Clone(n.Children)
	n.Values = slices.Clone(n.Values)
	return n
}

// Model is an immutable command tree.
type Model struct {
	nodes []Node
}

// Root returns the root command.
func (m *Model) Root() NodeID {
	return 0
}

// Len returns the number of nodes in the model.
func (m *Model) Len() int {
	return len(m.nodes)
}

// Valid reports whether id addresses a node of m.
func (m *Model) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(m.nodes)
}

// Node returns a copy of the node addressed by id. It panics on an invalid id,
// which is a programming error.
func (m *Model) Node(id NodeID) Node {
	return m.nodes[id].clone()
}

// Children returns the children of id in declaration order.
func (m *Model) Children(id NodeID) []NodeID {
	return slices.Clone(m.nodes[id].Children)
}

// ValueSet returns the closed value set of id, if it has one.
func (m *Model) ValueSet(id NodeID) ([]Value, bool) {
	values := m.nodes[id].Values
	if len(values) == 0 {
		return nil, false
	}
	return slices.Clone(values), true
}

// Subcommands returns the command children of id.
func (m *Model) Subcommands(id NodeID) []NodeID {
	return m.childrenOfKind(id, KindCommand)
}

// Flags returns the flag children of id.
func (m *Model) Flags(id NodeID) []NodeID {
	return m.childrenOfKind(id, KindFlag)
}

// Positionals returns the positional children of id.
func (m *Model) Positionals(id NodeID) []NodeID {
	return m.childrenOfKind(id, KindPositional)
}

func (m *Model) childrenOfKind(id NodeID, kind Kind) []NodeID {
	var ids []NodeID
	for _, child := range m.nodes[id].Children {
		if m.nodes[child].Kind == kind {
			ids = append(ids, child)
		}
	}
	return ids
}

// HasSubcommands reports whether id dispatches to subcommands.
func (m *Model) HasSubcommands(id NodeID) bool {
	for _, child := range m.nodes[id].Children {
		if m.nodes[child].Kind == KindCommand {
			return true
		}
	}
	return false
}

// Subcommand finds the subcommand of id named exactly name.
func (m *Model) Subcommand(id NodeID, name string) (NodeID, bool) {
	for _, child := range m.nodes[id].Children {
		n := &m.nodes[child]
		if n.Kind == KindCommand && n.Name == name {
			return child, true
		}
	}
	return None, false
}

// FlagBySpelling finds the flag of id spelled exactly as spelling, which must
// include its dashes ("--mode", "-m").
func (m *Model) FlagBySpelling(id NodeID, spelling string) (NodeID, bool) {
	var long, short string
	switch {
	case strings.HasPrefix(spelling, "--"):
		long = spelling[2:]
	case strings.HasPrefix(spelling, "-"):
		short = spelling[1:]
	default:
		return None, false
	}
	if long == "" && short == "" {
		return None, false
	}

	for _, child := range m.nodes[id].Children {
		n := &m.nodes[child]
		if n.Kind != KindFlag {
			continue
		}
		if (long != "" && n.Long == long) || (short != "" && n.Short == short) {
			return child, true
		}
	}
	return None, false
}

// Path returns the command names from the root (exclusive) down to id.
func (m *Model) Path(id NodeID) []string {
	var path []string
	for current := id; current != None && current != m.Root(); current = m.nodes[current].Parent {
		if m.nodes[current].Kind == KindCommand {
			path = append(path, m.nodes[current].Name)
		}
	}
	slices.Reverse(path)
	return path
}

// Lookup resolves a command path from the root.
func (m *Model) Lookup(path ...string) (NodeID, bool) {
	current := m.Root()
	for _, name := range path {
		next, ok := m.Subcommand(current, name)
		if !ok {
			return None, false
		}
		current = next
	}
	return current, true
}
