package completion

import (
	"reflect"
	"testing"

	"github.com/quocvuong92/clirepl/internal/grammar"
	"github.com/quocvuong92/clirepl/internal/grammar/grammartest"
	"github.com/quocvuong92/clirepl/internal/parser"
)

func texts(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Text
	}
	return out
}

func complete(e *Engine, line string) []Candidate {
	return e.Complete(Request{Line: line, Cursor: len(line)})
}

func TestComplete_Simple(t *testing.T) {
	e := New(grammartest.Simple())

	tests := []struct {
		name string
		line string
		want []string
	}{
		{"empty line lists commands in order", "", []string{"download", "upload", "login"}},
		{"prefix", "dow", []string{"download"}},
		{"no match", "xyz", nil},
		{"case-sensitive", "Dow", nil},
		{"flags after command", "login ", []string{"--username", "--mode"}},
		{"short spellings after dash", "login -", []string{"--username", "-u", "--mode"}},
		{"long prefix", "login --m", []string{"--mode"}},
		{"bound flag is skipped", "login -u bob ", []string{"--mode"}},
		{"enum after flag", "login --mode ", []string{"secure", "insecure"}},
		{"enum prefix", "login --mode in", []string{"insecure"}},
		{"enum after equals", "login --mode=", []string{"--mode=secure", "--mode=insecure"}},
		{"enum prefix after equals", "login --mode=s", []string{"--mode=secure"}},
		{"switch after equals", "download --check-sha=", []string{"--check-sha=true", "--check-sha=false"}},
		{"free-form flag value", "login --username ", nil},
		{"free-form positional", "download ", []string{"--check-sha"}},
		{"no flags after double dash", "download -- ", nil},
		{"leaf command", "upload ", nil},
		{"unknown command offers nothing", "dowload ", nil},
		{"unknown flag offers nothing", "login --bogus --m", nil},
		{"invalid flag value offers nothing", "login --mode bogus ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := texts(complete(e, tt.line))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Complete(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestComplete_Spans(t *testing.T) {
	e := New(grammartest.Simple())

	cands := complete(e, "dow")
	if len(cands) != 1 {
		t.Fatalf("got %d candidates", len(cands))
	}
	if c := cands[0]; c.Text != "download" || c.Start != 0 || c.End != 3 || !c.AppendSpace {
		t.Errorf("candidate = %+v", c)
	}

	cands = complete(e, "login --mode sec")
	if len(cands) != 1 {
		t.Fatalf("got %d candidates", len(cands))
	}
	if c := cands[0]; c.Text != "secure" || c.Start != 13 || c.End != 16 {
		t.Errorf("candidate = %+v, want secure over [13,16)", c)
	}

	cands = complete(e, "login --mode ")
	for _, c := range cands {
		if c.Start != 13 || c.End != 13 {
			t.Errorf("candidate %q span = [%d,%d), want empty span at 13", c.Text, c.Start, c.End)
		}
	}
}

func TestAnalyze_RejectedToken(t *testing.T) {
	e := New(grammartest.Simple())

	tests := []struct {
		line     string
		failed   bool
		liveText string
	}{
		{"xyz ", true, ""},
		{"login --mode bogus ", true, ""},
		{"login --mode bogus --u", true, "--u"},
		{"login --mode secure ", false, ""},
		{"login --mode sec", false, "sec"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ctx, ok := e.Analyze(Request{Line: tt.line, Cursor: len(tt.line)})
			if !ok {
				t.Fatal("Analyze() ok = false")
			}
			if ctx.Failed != tt.failed {
				t.Errorf("Failed = %v, want %v", ctx.Failed, tt.failed)
			}
			if ctx.Live.Text != tt.liveText {
				t.Errorf("Live.Text = %q, want %q", ctx.Live.Text, tt.liveText)
			}
			if tt.failed {
				if got := complete(e, tt.line); got != nil {
					t.Errorf("Complete(%q) = %q, want none", tt.line, texts(got))
				}
			}
		})
	}
}

func TestComplete_Quotes(t *testing.T) {
	e := New(grammartest.Simple())

	for _, line := range []string{
		`login --mode "sec`,
		`login --mode 'sec`,
		`download "my fi`,
		`download a\`,
	} {
		if got := complete(e, line); got != nil {
			t.Errorf("Complete(%q) = %v, want none", line, texts(got))
		}
	}

	// A closed quote is an ordinary live token.
	cands := complete(e, `login --mode 'sec'`)
	if len(cands) != 1 || cands[0].Text != "secure" || cands[0].Start != 13 || cands[0].End != 18 {
		t.Errorf("closed quote candidates = %+v", cands)
	}
}

func TestComplete_QuotesReplacement(t *testing.T) {
	m := grammar.MustBuild(grammar.Definition{
		Commands: []grammar.CommandDef{{
			Name: "open",
			Args: []grammar.ArgDef{{Name: "file", Values: []grammar.ValueDef{
				{Literal: "two words.txt"}, {Literal: "it's.txt"}, {Literal: "plain.txt"},
			}}},
		}},
	})
	e := New(m)

	got := texts(complete(e, "open "))
	want := []string{"'two words.txt'", `'it'\''s.txt'`, "plain.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Complete() = %q, want %q", got, want)
	}

	got = texts(complete(e, `open two\ w`))
	if !reflect.DeepEqual(got, []string{"'two words.txt'"}) {
		t.Errorf("escaped prefix = %q", got)
	}
}

func TestComplete_AppendSpace(t *testing.T) {
	e := New(grammartest.Redis())

	cands := complete(e, "config get max")
	got := map[string]bool{}
	for _, c := range cands {
		got[c.Text] = c.AppendSpace
	}
	want := map[string]bool{"maxmemory": true, "maxclients": true, "max": false}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AppendSpace = %v, want %v", got, want)
	}

	// Order is declaration order, not sorted.
	if gotOrder := texts(cands); !reflect.DeepEqual(gotOrder, []string{"maxmemory", "maxclients", "max"}) {
		t.Errorf("order = %q", gotOrder)
	}
}

func TestComplete_Nested(t *testing.T) {
	e := New(grammartest.Redis())

	tests := []struct {
		line string
		want []string
	}{
		{"config ", []string{"get", "set", "--tag"}},
		{"config -t a ", []string{"get", "set", "--tag"}},
		{"config -", []string{"--tag", "-t"}},
		{"config s", []string{"set"}},
		{"s", []string{"set", "smembers", "sadd"}},
		{"sadd key a b ", nil},
		{"set k v ", []string{"--ttl"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := texts(complete(e, tt.line))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Complete(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestComplete_Cursor(t *testing.T) {
	e := New(grammartest.Simple())

	// Mid-token: only the text before the cursor is replaced.
	cands := e.Complete(Request{Line: "download file", Cursor: 3})
	if len(cands) != 1 || cands[0].Text != "download" || cands[0].Start != 0 || cands[0].End != 3 {
		t.Errorf("mid-token = %+v", cands)
	}

	// Out-of-range cursors are clamped.
	if got := texts(e.Complete(Request{Line: "dow", Cursor: 99})); !reflect.DeepEqual(got, []string{"download"}) {
		t.Errorf("cursor past end = %q", got)
	}
	if got := texts(e.Complete(Request{Line: "dow", Cursor: -4})); len(got) != 3 {
		t.Errorf("negative cursor = %q, want all commands", got)
	}

	// A cursor inside a multi-byte rune snaps back to its start.
	line := "é"
	cands = e.Complete(Request{Line: line, Cursor: 1})
	if cands == nil || cands[0].End != 0 {
		t.Errorf("cursor inside rune = %+v", cands)
	}
}

func TestComplete_CandidatesParse(t *testing.T) {
	m := grammartest.Simple()
	e := New(m)
	p := parser.New(m)

	// Accepting any candidate must leave a line the parser understands up to
	// that token.
	for _, line := range []string{"login --mode ", "login --mode=", "login ", "download f "} {
		for _, c := range complete(e, line) {
			accepted := line[:c.Start] + c.Text
			if c.AppendSpace {
				accepted += " "
			}
			out := p.ParseLine(accepted)
			if out.Kind == parser.OutcomeLexError {
				t.Errorf("%q: lex error %v", accepted, out.Err)
				continue
			}
			if out.Kind == parser.OutcomeGrammarError {
				// Only an incomplete line is acceptable here.
				switch ge := out.Err.(*parser.GrammarError); ge.Reason {
				case parser.MissingValue, parser.MissingRequired, parser.MissingSubcommand:
				default:
					t.Errorf("%q: token %d rejected: %v", accepted, ge.Index, ge)
				}
			}
		}
	}
}

func TestComplete_Fuzzy(t *testing.T) {
	m := grammartest.Simple()

	if got := complete(New(m), "dwnld"); got != nil {
		t.Errorf("without fuzzy = %q, want none", texts(got))
	}

	got := texts(complete(New(m, WithFuzzyFallback(true)), "dwnld"))
	if !reflect.DeepEqual(got, []string{"download"}) {
		t.Errorf("with fuzzy = %q, want [download]", got)
	}

	// Prefix matches win over the fallback.
	got = texts(complete(New(m, WithFuzzyFallback(true)), "lo"))
	if !reflect.DeepEqual(got, []string{"login"}) {
		t.Errorf("prefix with fuzzy = %q", got)
	}
}

func TestHint(t *testing.T) {
	simple := New(grammartest.Simple())
	redis := New(grammartest.Redis())

	tests := []struct {
		e    *Engine
		line string
		want string
	}{
		{simple, "dow", "nload"},
		{simple, "download", ""},
		{simple, "", ""},
		{simple, "login --mode s", "ecure"},
		{simple, "login --m", "ode"},
		{redis, "config get ma", "x"},
		{redis, "sm", "embers"},
		{simple, `login --mode "s`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := tt.e.Hint(tt.line); got != tt.want {
				t.Errorf("Hint(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}
