package grammar

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// AnnotationValues is the flag annotation holding a closed value set. Each
// entry is a literal, optionally followed by a tab and its help text, the same
// convention cobra uses for ValidArgs.
const AnnotationValues = "clirepl_values"

// AnnotationType overrides the type inferred from a flag's pflag value type
const AnnotationType = "clirepl_type"

// AnnotationOrder is the command annotation holding the position AddCommands
// gave a subcommand among its siblings.
const AnnotationOrder = "clirepl_order"

// SetFlagValues attaches a closed value set to the named flag of cmd.
func SetFlagValues(cmd *cobra.Command, name string, values ...string) error {
	return cmd.Flags().SetAnnotation(name, AnnotationValues, values)
}

// AddCommands adds subs to parent and records their declaration order, which
// FromCobra keeps whatever cobra.EnableCommandSorting says.
func AddCommands(parent *cobra.Command, subs ...*cobra.Command) {
	offset := len(parent.Commands())
	for i, sub := range subs {
		if sub.Annotations == nil {
			sub.Annotations = make(map[string]string)
		}
		sub.Annotations[AnnotationOrder] = strconv.Itoa(offset + i)
	}
	parent.AddCommand(subs...)
}

func declarationOrder(cmd *cobra.Command) int {
	n, err := strconv.Atoi(cmd.Annotations[AnnotationOrder])
	if err != nil {
		return math.MaxInt
	}
	return n
}

// FromCobra derives a definition from a cobra command tree.
//
// Positionals come from the Use line: "<name>" is required, "[name]" optional
// and a trailing "..." takes the rest of the line. ValidArgs become the value
// set of the first positional. Flags marked with MarkFlagRequired are required.
// Hidden commands and flags are skipped.
//
// Subcommands added with AddCommands keep their declaration order; the rest
// follow cmd.Commands().
func FromCobra(cmd *cobra.Command) Definition {
	def := CommandDef{
		Name: cmd.Name(),
		Help: cmd.Short,
	}

	fs := cmd.Flags()
	sorted := fs.SortFlags
	fs.SortFlags = false
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		def.Flags = append(def.Flags, flagFromPflag(f))
	})
	fs.SortFlags = sorted

	subs := append([]*cobra.Command(nil), cmd.Commands()...)
	sort.SliceStable(subs, func(i, j int) bool {
		return declarationOrder(subs[i]) < declarationOrder(subs[j])
	})
	for _, sub := range subs {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		def.Commands = append(def.Commands, FromCobra(sub))
	}

	if len(def.Commands) == 0 {
		def.Args = argsFromUse(cmd.Use)
		if len(cmd.ValidArgs) > 0 {
			if len(def.Args) == 0 {
				def.Args = []ArgDef{{Name: "arg"}}
			}
			def.Args[0].Values = valueDefs(cmd.ValidArgs)
		}
	}
	return def
}

func flagFromPflag(f *pflag.Flag) FlagDef {
	def := FlagDef{
		Name:  strings.ReplaceAll(f.Name, "-", "_"),
		Long:  f.Name,
		Short: f.Shorthand,
		Help:  f.Usage,
	}

	switch f.Value.Type() {
	case "bool":
		def.Type = "bool"
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "count":
		def.Type = "int"
	case "stringSlice", "stringArray":
		def.Multiple = true
	case "intSlice", "int32Slice", "int64Slice", "uintSlice":
		def.Type = "int"
		def.Multiple = true
	}
	if override := f.Annotations[AnnotationType]; len(override) > 0 {
		def.Type = override[0]
	}

	if required := f.Annotations[cobra.BashCompOneRequiredFlag]; len(required) > 0 && required[0] == "true" {
		def.Required = true
	}
	def.Values = valueDefs(f.Annotations[AnnotationValues])

	if !def.Required && !def.Multiple && def.Type != "bool" && f.DefValue != "" && f.DefValue != "0" {
		def.Default = f.DefValue
	}
	return def
}

func valueDefs(entries []string) []ValueDef {
	if len(entries) == 0 {
		return nil
	}
	defs := make([]ValueDef, 0, len(entries))
	for _, entry := range entries {
		literal, help, _ := strings.Cut(entry, "\t")
		defs = append(defs, ValueDef{Literal: literal, Help: help})
	}
	return defs
}

func argsFromUse(use string) []ArgDef {
	fields := strings.Fields(use)
	if len(fields) < 2 {
		return nil
	}

	var args []ArgDef
	for _, field := range fields[1:] {
		multiple := strings.HasSuffix(field, "...")
		field = strings.TrimSuffix(field, "...")

		var arg ArgDef
		switch {
		case strings.HasPrefix(field, "<") && strings.HasSuffix(field, ">"):
			arg = ArgDef{Name: field[1 : len(field)-1], Required: true}
		case strings.HasPrefix(field, "[") && strings.HasSuffix(field, "]"):
			arg = ArgDef{Name: field[1 : len(field)-1]}
		default:
			// Literal words and option placeholders such as [flags] carry no
			// positional.
			continue
		}
		if strings.HasSuffix(arg.Name, "...") {
			arg.Name = strings.TrimSuffix(arg.Name, "...")
			multiple = true
		}
		if arg.Name == "" || arg.Name == "flags" {
			continue
		}
		arg.Multiple = multiple
		args = append(args, arg)
	}
	return args
}
