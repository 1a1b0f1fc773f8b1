package grammar

import (
	"fmt"
	"strings"
)

// UsageLine returns a one-line synopsis of id, e.g.
// "download [--check-sha] <path>".
func UsageLine(m *Model, id NodeID) string {
	n := m.Node(id)
	parts := append([]string(nil), m.Path(id)...)
	if len(parts) == 0 && n.Name != "" {
		parts = append(parts, n.Name)
	}

	for _, f := range m.Flags(id) {
		parts = append(parts, flagSynopsis(m.Node(f)))
	}
	if m.HasSubcommands(id) {
		parts = append(parts, "<command>")
	}
	for _, p := range m.Positionals(id) {
		pos := m.Node(p)
		text := pos.Placeholder()
		if pos.Multiple {
			text += "..."
		}
		if !pos.Required {
			text = "[" + text + "]"
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

func flagSynopsis(f Node) string {
	text := "--" + f.Long
	if f.Short != "" {
		text = "-" + f.Short + "|" + text
	}
	if f.TakesValue() {
		text += " " + f.Placeholder()
	}
	if f.Multiple {
		text += "..."
	}
	if !f.Required {
		text = "[" + text + "]"
	}
	return text
}

// Usage renders markdown help for id: synopsis, description, subcommands,
// arguments and flags with their accepted values.
func Usage(m *Model, id NodeID) string {
	n := m.Node(id)
	var b strings.Builder

	title := strings.Join(m.Path(id), " ")
	if title == "" {
		title = n.Name
	}
	if title == "" {
		title = "Commands"
	}
	fmt.Fprintf(&b, "## %s\n\n", title)
	if n.Help != "" {
		fmt.Fprintf(&b, "%s\n\n", n.Help)
	}
	fmt.Fprintf(&b, "**Usage:** `%s`\n\n", UsageLine(m, id))

	if subs := m.Subcommands(id); len(subs) > 0 {
		b.WriteString("### Commands\n\n")
		b.WriteString("| Command | Description |\n|---|---|\n")
		for _, sub := range subs {
			s := m.Node(sub)
			fmt.Fprintf(&b, "| `%s` | %s |\n", s.Name, cell(s.Help))
		}
		b.WriteString("\n")
	}

	if positionals := m.Positionals(id); len(positionals) > 0 {
		b.WriteString("### Arguments\n\n")
		for _, p := range positionals {
			writeEntry(&b, m.Node(p), "`"+m.Node(p).Placeholder()+"`")
		}
		b.WriteString("\n")
	}

	if flags := m.Flags(id); len(flags) > 0 {
		b.WriteString("### Flags\n\n")
		for _, f := range flags {
			flag := m.Node(f)
			spelling := "--" + flag.Long
			if flag.Short != "" {
				spelling = "-" + flag.Short + ", " + spelling
			}
			if flag.TakesValue() {
				spelling += " " + flag.Placeholder()
			}
			writeEntry(&b, flag, "`"+spelling+"`")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeEntry(b *strings.Builder, n Node, label string) {
	var notes []string
	if n.Required {
		notes = append(notes, "required")
	}
	if n.Multiple {
		notes = append(notes, "repeatable")
	}
	if n.HasDefault {
		notes = append(notes, "default: `"+n.Default+"`")
	}
	if n.Type == TypeInt {
		notes = append(notes, "integer")
	}

	fmt.Fprintf(b, "- %s", label)
	if n.Help != "" {
		fmt.Fprintf(b, ": %s", n.Help)
	}
	if len(notes) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(notes, ", "))
	}
	b.WriteString("\n")

	for _, v := range n.Values {
		if v.Help != "" {
			fmt.Fprintf(b, "  - `%s`: %s\n", v.Literal, v.Help)
		} else {
			fmt.Fprintf(b, "  - `%s`\n", v.Literal)
		}
	}
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
