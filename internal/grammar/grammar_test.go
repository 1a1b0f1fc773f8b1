package grammar_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/quocvuong92/clirepl/internal/grammar"
	"github.com/quocvuong92/clirepl/internal/grammar/grammartest"
)

func names(m *grammar.Model, ids []grammar.NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = m.Node(id).Name
	}
	return out
}

// ===== Build =====

func TestBuild_ChildrenOrder(t *testing.T) {
	m := grammartest.Simple()

	got := names(m, m.Children(m.Root()))
	want := []string{"download", "upload", "login"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("root children = %v, want %v", got, want)
	}

	download, ok := m.Subcommand(m.Root(), "download")
	if !ok {
		t.Fatal("download not found")
	}
	got = names(m, m.Children(download))
	want = []string{"path", "check_sha"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("download children = %v, want %v", got, want)
	}
}

func TestBuild_Nodes(t *testing.T) {
	m := grammartest.Simple()
	login, _ := m.Lookup("login")

	mode, ok := m.FlagBySpelling(login, "--mode")
	if !ok {
		t.Fatal("--mode not found")
	}
	node := m.Node(mode)
	if node.Kind != grammar.KindFlag || node.Long != "mode" || !node.TakesValue() {
		t.Errorf("--mode node = %+v", node)
	}
	values, ok := m.ValueSet(mode)
	if !ok || len(values) != 2 || values[0].Literal != "secure" || values[1].Help != "Skip certificate checks" {
		t.Errorf("ValueSet(--mode) = %v, %v", values, ok)
	}

	user, ok := m.FlagBySpelling(login, "-u")
	if !ok || m.Node(user).Name != "username" {
		t.Errorf("FlagBySpelling(-u) = %v, %v", user, ok)
	}
	if _, ok := m.FlagBySpelling(login, "--missing"); ok {
		t.Error("FlagBySpelling(--missing) found a flag")
	}
	if _, ok := m.FlagBySpelling(login, "mode"); ok {
		t.Error("FlagBySpelling without dashes found a flag")
	}

	download, _ := m.Lookup("download")
	sha, ok := m.FlagBySpelling(download, "--check-sha")
	if !ok {
		t.Fatal("--check-sha not derived from check_sha")
	}
	if m.Node(sha).TakesValue() {
		t.Error("switch takes a value")
	}

	if got := m.Path(sha); !reflect.DeepEqual(got, []string{"download"}) {
		t.Errorf("Path(--check-sha) = %v", got)
	}
	if got := m.Path(m.Root()); len(got) != 0 {
		t.Errorf("Path(root) = %v, want empty", got)
	}
}

func TestBuild_NodeIsCopy(t *testing.T) {
	m := grammartest.Simple()
	login, _ := m.Lookup("login")
	mode, _ := m.FlagBySpelling(login, "--mode")

	node := m.Node(mode)
	node.Values[0].Literal = "changed"
	node.Name = "changed"

	children := m.Children(m.Root())
	children[0] = 99

	if m.Node(mode).Values[0].Literal != "secure" || m.Node(mode).Name != "mode" {
		t.Error("mutating a returned node changed the model")
	}
	if m.Children(m.Root())[0] == 99 {
		t.Error("mutating returned children changed the model")
	}
}

func TestBuild_Invalid(t *testing.T) {
	tests := []struct {
		name string
		def  grammar.Definition
		want string
	}{
		{
			name: "duplicate subcommand",
			def:  grammar.Definition{Commands: []grammar.CommandDef{{Name: "get"}, {Name: "get"}}},
			want: "clashes",
		},
		{
			name: "flag and subcommand share a name",
			def: grammar.Definition{
				Flags:    []grammar.FlagDef{{Name: "get"}},
				Commands: []grammar.CommandDef{{Name: "get"}},
			},
			want: "clashes",
		},
		{
			name: "duplicate short spelling",
			def: grammar.Definition{Commands: []grammar.CommandDef{{
				Name:  "login",
				Flags: []grammar.FlagDef{{Name: "user", Short: "u"}, {Name: "url", Short: "u"}},
			}}},
			want: "reuses spelling -u",
		},
		{
			name: "subcommands and positionals",
			def: grammar.Definition{Commands: []grammar.CommandDef{{
				Name:     "config",
				Args:     []grammar.ArgDef{{Name: "x"}},
				Commands: []grammar.CommandDef{{Name: "get"}},
			}}},
			want: "both subcommands and positional",
		},
		{
			name: "list positional not last",
			def: grammar.Definition{Commands: []grammar.CommandDef{{
				Name: "sadd",
				Args: []grammar.ArgDef{{Name: "values", Multiple: true}, {Name: "key"}},
			}}},
			want: "not last",
		},
		{
			name: "required after optional",
			def: grammar.Definition{Commands: []grammar.CommandDef{{
				Name: "copy",
				Args: []grammar.ArgDef{{Name: "from"}, {Name: "to", Required: true}},
			}}},
			want: "follows an optional",
		},
		{
			name: "value name bound twice along a path",
			def: grammar.Definition{
				Flags:    []grammar.FlagDef{{Name: "verbose", Type: "bool"}},
				Commands: []grammar.CommandDef{{Name: "run", Flags: []grammar.FlagDef{{Name: "verbose", Long: "loud", Type: "bool"}}}},
			},
			want: "already bound",
		},
		{
			name: "bool positional",
			def:  grammar.Definition{Commands: []grammar.CommandDef{{Name: "x", Args: []grammar.ArgDef{{Name: "on", Type: "bool"}}}}},
			want: "cannot be a bool",
		},
		{
			name: "unknown type",
			def:  grammar.Definition{Flags: []grammar.FlagDef{{Name: "n", Type: "float"}}},
			want: "unknown type",
		},
		{
			name: "switch with values",
			def:  grammar.Definition{Flags: []grammar.FlagDef{{Name: "on", Type: "bool", Values: []grammar.ValueDef{{Literal: "yes"}}}}},
			want: "cannot have a value set",
		},
		{
			name: "default outside value set",
			def: grammar.Definition{Flags: []grammar.FlagDef{{
				Name: "mode", Values: []grammar.ValueDef{{Literal: "a"}, {Literal: "b"}}, Default: "c",
			}}},
			want: "not one of a, b",
		},
		{
			name: "non-integer default",
			def:  grammar.Definition{Flags: []grammar.FlagDef{{Name: "ttl", Type: "int", Default: "soon"}}},
			want: "not an integer",
		},
		{
			name: "repeated value literal",
			def:  grammar.Definition{Flags: []grammar.FlagDef{{Name: "mode", Values: []grammar.ValueDef{{Literal: "a"}, {Literal: "a"}}}}},
			want: "repeats value",
		},
		{
			name: "empty command name",
			def:  grammar.Definition{Commands: []grammar.CommandDef{{Name: ""}}},
			want: "name is empty",
		},
		{
			name: "command name with whitespace",
			def:  grammar.Definition{Commands: []grammar.CommandDef{{Name: "two words"}}},
			want: "contains whitespace",
		},
		{
			name: "dashed command name",
			def:  grammar.Definition{Commands: []grammar.CommandDef{{Name: "-x"}}},
			want: "must not start with a dash",
		},
		{
			name: "long short spelling",
			def:  grammar.Definition{Flags: []grammar.FlagDef{{Name: "user", Short: "us"}}},
			want: "invalid short spelling",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grammar.Build(tt.def)
			if !errors.Is(err, grammar.ErrInvalidDefinition) {
				t.Fatalf("Build() error = %v, want ErrInvalidDefinition", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Build() error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestBuild_SiblingValueNamesAcrossPaths(t *testing.T) {
	// Different commands may reuse a value name.
	if _, err := grammar.Build(grammartest.SimpleDefinition()); err != nil {
		t.Fatalf("Build(simple) error = %v", err)
	}
	m := grammartest.Redis()
	set, _ := m.Lookup("set")
	get, _ := m.Lookup("get")
	if names(m, m.Positionals(set))[0] != "key" || names(m, m.Positionals(get))[0] != "key" {
		t.Error("key positional missing")
	}
}

func TestCheckValue(t *testing.T) {
	m := grammartest.Redis()
	set, _ := m.Lookup("set")
	ttl, _ := m.FlagBySpelling(set, "--ttl")

	if err := grammar.CheckValue(m.Node(ttl), "30"); err != nil {
		t.Errorf("CheckValue(30) = %v", err)
	}
	if err := grammar.CheckValue(m.Node(ttl), "x"); err == nil {
		t.Error("CheckValue(x) = nil, want error")
	}
	if !m.Node(ttl).HasDefault || m.Node(ttl).Default != "0" {
		t.Errorf("ttl default = %q", m.Node(ttl).Default)
	}
}

// ===== Files =====

func TestLoadFile(t *testing.T) {
	for _, path := range []string{"testdata/simple.yaml", "testdata/simple.jsonc"} {
		t.Run(path, func(t *testing.T) {
			m, err := grammar.LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			want := grammartest.Simple()

			if got := names(m, m.Children(m.Root())); !reflect.DeepEqual(got, names(want, want.Children(want.Root()))) {
				t.Errorf("root children = %v", got)
			}
			login, _ := m.Lookup("login")
			mode, ok := m.FlagBySpelling(login, "--mode")
			if !ok {
				t.Fatal("--mode missing")
			}
			node := m.Node(mode)
			if !reflect.DeepEqual(node.Literals(), []string{"secure", "insecure"}) {
				t.Errorf("mode literals = %v", node.Literals())
			}
			if node.Values[1].Help != "Skip certificate checks" {
				t.Errorf("insecure help = %q", node.Values[1].Help)
			}
			if node.Default != "secure" {
				t.Errorf("mode default = %q", node.Default)
			}
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := grammar.LoadFile("testdata/simple.toml"); !errors.Is(err, grammar.ErrUnknownFormat) {
		t.Errorf("LoadFile(.toml) error = %v, want ErrUnknownFormat", err)
	}
	if _, err := grammar.LoadFile("testdata/missing.yaml"); err == nil {
		t.Error("LoadFile(missing) error = nil")
	}
	if _, err := grammar.LoadFile("testdata/unknown_field.yaml"); err == nil {
		t.Error("LoadFile(unknown field) error = nil")
	}
}

// ===== Cobra =====

func TestAddCommands_Order(t *testing.T) {
	if !cobra.EnableCommandSorting {
		t.Skip("cobra command sorting is disabled")
	}
	root := &cobra.Command{Use: "app"}
	root.AddCommand(&cobra.Command{Use: "zeta"}, &cobra.Command{Use: "alpha"})
	grammar.AddCommands(root, &cobra.Command{Use: "upload"}, &cobra.Command{Use: "download"})
	grammar.AddCommands(root, &cobra.Command{Use: "login"})

	m := grammar.MustBuild(grammar.FromCobra(root))
	want := []string{"upload", "download", "login", "alpha", "zeta"}
	if got := names(m, m.Subcommands(m.Root())); !reflect.DeepEqual(got, want) {
		t.Errorf("subcommands = %v, want %v", got, want)
	}
}

func TestFromCobra(t *testing.T) {
	root := &cobra.Command{Use: "app"}
	download := &cobra.Command{Use: "download <path>", Short: "Download a file"}
	download.Flags().Bool("check-sha", false, "Verify the checksum")
	sadd := &cobra.Command{Use: "sadd <key> <values>...", Short: "Add set members"}
	login := &cobra.Command{Use: "login", Short: "Log in"}
	login.Flags().StringP("username", "u", "", "Account name")
	login.Flags().String("mode", "secure", "Connection mode")
	login.Flags().Int("retries", 3, "Retry count")
	login.Flags().String("token", "", "Hidden token")
	if err := login.Flags().MarkHidden("token"); err != nil {
		t.Fatal(err)
	}
	if err := login.MarkFlagRequired("username"); err != nil {
		t.Fatal(err)
	}
	if err := grammar.SetFlagValues(login, "mode", "secure", "insecure\tSkip certificate checks"); err != nil {
		t.Fatal(err)
	}
	pick := &cobra.Command{Use: "pick", ValidArgs: []string{"red\tWarm", "blue"}}
	grammar.AddCommands(root, download, sadd, login, pick)

	m, err := grammar.Build(grammar.FromCobra(root))
	if err != nil {
		t.Fatalf("Build(FromCobra()) error = %v", err)
	}

	if got := names(m, m.Subcommands(m.Root())); !reflect.DeepEqual(got, []string{"download", "sadd", "login", "pick"}) {
		t.Errorf("subcommands = %v", got)
	}

	id, _ := m.Lookup("download")
	pos := m.Positionals(id)
	if len(pos) != 1 || m.Node(pos[0]).Name != "path" || !m.Node(pos[0]).Required {
		t.Errorf("download positionals = %v", names(m, pos))
	}
	if sha, ok := m.FlagBySpelling(id, "--check-sha"); !ok || m.Node(sha).Type != grammar.TypeBool {
		t.Error("--check-sha is not a switch")
	}

	id, _ = m.Lookup("sadd")
	pos = m.Positionals(id)
	if len(pos) != 2 || !m.Node(pos[1]).Multiple {
		t.Errorf("sadd positionals = %v", names(m, pos))
	}

	id, _ = m.Lookup("login")
	if got := names(m, m.Flags(id)); !reflect.DeepEqual(got, []string{"username", "mode", "retries"}) {
		t.Errorf("login flags = %v", got)
	}
	user, _ := m.FlagBySpelling(id, "-u")
	if !m.Node(user).Required {
		t.Error("username not required")
	}
	mode, _ := m.FlagBySpelling(id, "--mode")
	if node := m.Node(mode); node.Default != "secure" || len(node.Values) != 2 || node.Values[1].Help != "Skip certificate checks" {
		t.Errorf("mode = %+v", node)
	}
	retries, _ := m.FlagBySpelling(id, "--retries")
	if node := m.Node(retries); node.Type != grammar.TypeInt || node.Default != "3" {
		t.Errorf("retries = %+v", node)
	}

	id, _ = m.Lookup("pick")
	pos = m.Positionals(id)
	if len(pos) != 1 || !reflect.DeepEqual(m.Node(pos[0]).Literals(), []string{"red", "blue"}) {
		t.Errorf("pick positionals = %v", names(m, pos))
	}
}

// ===== Usage =====

func TestUsageLine(t *testing.T) {
	m := grammartest.Simple()
	tests := []struct {
		path []string
		want string
	}{
		{[]string{"download"}, "download [--check-sha] <path>"},
		{[]string{"login"}, "login [-u|--username <username>] [--mode <mode>]"},
		{nil, "simple <command>"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			id, _ := m.Lookup(tt.path...)
			if got := grammar.UsageLine(m, id); got != tt.want {
				t.Errorf("UsageLine() = %q, want %q", got, tt.want)
			}
		})
	}

	redis := grammartest.Redis()
	sadd, _ := redis.Lookup("sadd")
	if got := grammar.UsageLine(redis, sadd); got != "sadd <key> <values>..." {
		t.Errorf("UsageLine(sadd) = %q", got)
	}
}

func TestUsage(t *testing.T) {
	m := grammartest.Simple()
	login, _ := m.Lookup("login")
	out := grammar.Usage(m, login)

	for _, want := range []string{
		"## login",
		"Log in",
		"`-u, --username <username>`: Account name",
		"`--mode <mode>`",
		"  - `insecure`: Skip certificate checks",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Usage() missing %q in:\n%s", want, out)
		}
	}

	root := grammar.Usage(m, m.Root())
	if !strings.Contains(root, "| `download` | Download a file |") {
		t.Errorf("root Usage() missing command table:\n%s", root)
	}
}
