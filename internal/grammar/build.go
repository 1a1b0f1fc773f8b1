package grammar

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDefinition is wrapped by every Build validation failure
var ErrInvalidDefinition = errors.New("invalid grammar definition")

// Definition is the declarative description of a whole grammar. The root
// command's name is the program name and is never typed by the user.
type Definition = CommandDef

// CommandDef declares a command. A command declares subcommands or positional
// arguments, never both.
type CommandDef struct {
	Name     string       `yaml:"name" json:"name"`
	Help     string       `yaml:"help,omitempty" json:"help,omitempty"`
	Flags    []FlagDef    `yaml:"flags,omitempty" json:"flags,omitempty"`
	Args     []ArgDef     `yaml:"args,omitempty" json:"args,omitempty"`
	Commands []CommandDef `yaml:"commands,omitempty" json:"commands,omitempty"`
}

// FlagDef declares a named argument. Long defaults to Name with underscores
// turned into dashes.
type FlagDef struct {
	Name     string     `yaml:"name" json:"name"`
	Long     string     `yaml:"long,omitempty" json:"long,omitempty"`
	Short    string     `yaml:"short,omitempty" json:"short,omitempty"`
	Help     string     `yaml:"help,omitempty" json:"help,omitempty"`
	Type     string     `yaml:"type,omitempty" json:"type,omitempty"`
	Values   []ValueDef `yaml:"values,omitempty" json:"values,omitempty"`
	Multiple bool       `yaml:"multiple,omitempty" json:"multiple,omitempty"`
	Required bool       `yaml:"required,omitempty" json:"required,omitempty"`
	Default  string     `yaml:"default,omitempty" json:"default,omitempty"`
}

// ArgDef declares a positional argument.
type ArgDef struct {
	Name     string     `yaml:"name" json:"name"`
	Help     string     `yaml:"help,omitempty" json:"help,omitempty"`
	Type     string     `yaml:"type,omitempty" json:"type,omitempty"`
	Values   []ValueDef `yaml:"values,omitempty" json:"values,omitempty"`
	Multiple bool       `yaml:"multiple,omitempty" json:"multiple,omitempty"`
	Required bool       `yaml:"required,omitempty" json:"required,omitempty"`
	Default  string     `yaml:"default,omitempty" json:"default,omitempty"`
}

// ValueDef is one literal of a closed value set. In files it may be written
// either as a bare string or as {value, help}.
type ValueDef struct {
	Literal string `yaml:"value" json:"value"`
	Help    string `yaml:"help,omitempty" json:"help,omitempty"`
}

// UnmarshalYAML accepts a scalar literal or a mapping
func (v *ValueDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		v.Literal = node.Value
		v.Help = ""
		return nil
	}
	type plain ValueDef
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*v = ValueDef(p)
	return nil
}

// UnmarshalJSON accepts a string literal or an object
func (v *ValueDef) UnmarshalJSON(data []byte) error {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		v.Literal = literal
		v.Help = ""
		return nil
	}
	type plain ValueDef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = ValueDef(p)
	return nil
}

// Build validates def and freezes it into a Model.
//
// Children are laid out per command as subcommands, then positionals, then
// flags, each group in declaration order.
func Build(def Definition) (*Model, error) {
	b := &builder{}
	if _, err := b.command(def, None, nil, true); err != nil {
		return nil, err
	}
	return &Model{nodes: b.nodes}, nil
}

// MustBuild is like Build but panics on an invalid definition. It is meant for
// grammars compiled into the program.
func MustBuild(def Definition) *Model {
	m, err := Build(def)
	if err != nil {
		panic(err)
	}
	return m
}

type builder struct {
	nodes []Node
}

func (b *builder) add(n Node) NodeID {
	n.ID = NodeID(len(b.nodes))
	b.nodes = append(b.nodes, n)
	if n.Parent != None {
		parent := &b.nodes[n.Parent]
		parent.Children = append(parent.Children, n.ID)
	}
	return n.ID
}

func invalid(path []string, format string, args ...any) error {
	where := "root"
	if len(path) > 0 {
		where = strings.Join(path, " ")
	}
	return fmt.Errorf("%w: command %q: %s", ErrInvalidDefinition, where, fmt.Sprintf(format, args...))
}

// command adds def under parent. valueNames holds the names of values bound by
// ancestors; a name may only be bound once along a path.
func (b *builder) command(def CommandDef, parent NodeID, path []string, root bool) (NodeID, error) {
	if !root {
		if err := checkName(def.Name); err != nil {
			return None, invalid(path, "command %v", err)
		}
		if strings.HasPrefix(def.Name, "-") {
			return None, invalid(path, "command name %q must not start with a dash", def.Name)
		}
		path = append(path[:len(path):len(path)], def.Name)
	}
	if len(def.Commands) > 0 && len(def.Args) > 0 {
		return None, invalid(path, "declares both subcommands and positional arguments")
	}

	id := b.add(Node{Kind: KindCommand, Name: def.Name, Help: def.Help, Parent: parent})

	siblings := make(map[string]string)
	claim := func(name, what string) error {
		if prev, ok := siblings[name]; ok {
			return invalid(path, "%s %q clashes with %s of the same name", what, name, prev)
		}
		siblings[name] = what
		return nil
	}

	pending := make([]Node, 0, len(def.Args)+len(def.Flags))

	seenOptional := false
	for i, arg := range def.Args {
		n, err := argNode(arg, path)
		if err != nil {
			return None, err
		}
		if err := claim(n.Name, "positional"); err != nil {
			return None, err
		}
		if n.Multiple && i != len(def.Args)-1 {
			return None, invalid(path, "positional %q takes multiple values but is not last", n.Name)
		}
		if n.Required && seenOptional {
			return None, invalid(path, "required positional %q follows an optional one", n.Name)
		}
		if !n.Required {
			seenOptional = true
		}
		pending = append(pending, n)
	}

	spellings := make(map[string]string)
	for _, flag := range def.Flags {
		n, err := flagNode(flag, path)
		if err != nil {
			return None, err
		}
		if err := claim(n.Name, "flag"); err != nil {
			return None, err
		}
		for _, s := range n.Spellings() {
			if prev, ok := spellings[s]; ok {
				return None, invalid(path, "flag %q reuses spelling %s of flag %q", n.Name, s, prev)
			}
			spellings[s] = n.Name
		}
		pending = append(pending, n)
	}

	for _, n := range pending {
		if b.boundAbove(id, n.Name) {
			return None, invalid(path, "value name %q is already bound by an enclosing command", n.Name)
		}
	}

	// Reserve subcommand names before any nodes are appended so that siblings
	// clash regardless of order.
	for _, sub := range def.Commands {
		if err := claim(sub.Name, "command"); err != nil {
			return None, err
		}
	}

	// Value nodes go into the arena before the subtrees so boundAbove sees them.
	valueIDs := make([]NodeID, 0, len(pending))
	for _, n := range pending {
		n.Parent = id
		valueIDs = append(valueIDs, b.addDetached(n))
	}

	for _, sub := range def.Commands {
		if _, err := b.command(sub, id, path, false); err != nil {
			return None, err
		}
	}

	// Attach value nodes after the subcommands to keep the children order.
	b.nodes[id].Children = append(b.nodes[id].Children, valueIDs...)
	return id, nil
}

// addDetached appends n to the arena without linking it to its parent.
func (b *builder) addDetached(n Node) NodeID {
	n.ID = NodeID(len(b.nodes))
	b.nodes = append(b.nodes, n)
	return n.ID
}

// boundAbove reports whether an ancestor command of id binds a value called name.
func (b *builder) boundAbove(id NodeID, name string) bool {
	for current := b.nodes[id].Parent; current != None; current = b.nodes[current].Parent {
		for i := range b.nodes {
			n := &b.nodes[i]
			if n.Parent == current && n.Kind != KindCommand && n.Name == name {
				return true
			}
		}
	}
	return false
}

func checkName(name string) error {
	if name == "" {
		return errors.New("name is empty")
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("name %q contains whitespace", name)
	}
	return nil
}

func argNode(def ArgDef, path []string) (Node, error) {
	if err := checkName(def.Name); err != nil {
		return Node{}, invalid(path, "positional %v", err)
	}
	typ, ok := ParseType(def.Type)
	if !ok {
		return Node{}, invalid(path, "positional %q has unknown type %q", def.Name, def.Type)
	}
	if typ == TypeBool {
		return Node{}, invalid(path, "positional %q cannot be a bool", def.Name)
	}
	n := Node{
		Kind:     KindPositional,
		Name:     def.Name,
		Help:     def.Help,
		Type:     typ,
		Values:   values(def.Values),
		Multiple: def.Multiple,
		Required: def.Required,
	}
	if err := setDefault(&n, def.Default, path); err != nil {
		return Node{}, err
	}
	return n, nil
}

func flagNode(def FlagDef, path []string) (Node, error) {
	if err := checkName(def.Name); err != nil {
		return Node{}, invalid(path, "flag %v", err)
	}
	typ, ok := ParseType(def.Type)
	if !ok {
		return Node{}, invalid(path, "flag %q has unknown type %q", def.Name, def.Type)
	}

	long := strings.TrimPrefix(def.Long, "--")
	if long == "" {
		long = strings.ReplaceAll(def.Name, "_", "-")
	}
	if err := checkName(long); err != nil || strings.HasPrefix(long, "-") || strings.Contains(long, "=") {
		return Node{}, invalid(path, "flag %q has invalid long spelling %q", def.Name, long)
	}
	short := strings.TrimPrefix(def.Short, "-")
	if short != "" && (len([]rune(short)) != 1 || short == "-" || short == "=" || unicode.IsSpace([]rune(short)[0])) {
		return Node{}, invalid(path, "flag %q has invalid short spelling %q", def.Name, def.Short)
	}

	n := Node{
		Kind:     KindFlag,
		Name:     def.Name,
		Help:     def.Help,
		Long:     long,
		Short:    short,
		Type:     typ,
		Values:   values(def.Values),
		Multiple: def.Multiple,
		Required: def.Required,
	}
	if typ == TypeBool {
		if len(n.Values) > 0 {
			return Node{}, invalid(path, "switch %q cannot have a value set", def.Name)
		}
		if n.Required {
			return Node{}, invalid(path, "switch %q cannot be required", def.Name)
		}
		if n.Multiple {
			return Node{}, invalid(path, "switch %q cannot be repeated", def.Name)
		}
	}
	if err := setDefault(&n, def.Default, path); err != nil {
		return Node{}, err
	}
	return n, nil
}

func values(defs []ValueDef) []Value {
	if len(defs) == 0 {
		return nil
	}
	out := make([]Value, len(defs))
	for i, d := range defs {
		out[i] = Value{Literal: d.Literal, Help: d.Help}
	}
	return out
}

func setDefault(n *Node, def string, path []string) error {
	seen := make(map[string]bool, len(n.Values))
	for _, v := range n.Values {
		if v.Literal == "" {
			return invalid(path, "%s %q has an empty value literal", n.Kind, n.Name)
		}
		if seen[v.Literal] {
			return invalid(path, "%s %q repeats value %q", n.Kind, n.Name, v.Literal)
		}
		seen[v.Literal] = true
		if n.Type == TypeInt {
			if _, err := strconv.Atoi(v.Literal); err != nil {
				return invalid(path, "%s %q value %q is not an integer", n.Kind, n.Name, v.Literal)
			}
		}
	}

	if def == "" {
		return nil
	}
	if n.Required {
		return invalid(path, "%s %q is required and cannot have a default", n.Kind, n.Name)
	}
	if err := CheckValue(*n, def); err != nil {
		return invalid(path, "%s %q default: %v", n.Kind, n.Name, err)
	}
	n.Default = def
	n.HasDefault = true
	return nil
}

// CheckValue reports whether value can be bound to n.
func CheckValue(n Node, value string) error {
	switch n.Type {
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("%q is not an integer", value)
		}
	case TypeBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%q is not a boolean", value)
		}
	}
	if !n.Accepts(value) {
		return fmt.Errorf("%q is not one of %s", value, strings.Join(n.Literals(), ", "))
	}
	return nil
}
