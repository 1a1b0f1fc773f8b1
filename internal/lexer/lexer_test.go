package lexer

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", "  \t ", []string{}},
		{"single word", "download", []string{"download"}},
		{"collapses separators", "  get   key\tvalue ", []string{"get", "key", "value"}},
		{"double quotes keep spaces", `set key "hello world"`, []string{"set", "key", "hello world"}},
		{"single quotes keep everything", `echo 'a "b" \c'`, []string{"echo", `a "b" \c`}},
		{"escaped space", `open my\ file.txt`, []string{"open", "my file.txt"}},
		{"escaped quote", `say \"hi\"`, []string{"say", `"hi"`}},
		{"mid-token quotes", `ab"c d"e`, []string{"abc de"}},
		{"empty double quotes", `set key ""`, []string{"set", "key", ""}},
		{"empty single quotes", `set key ''`, []string{"set", "key", ""}},
		{"double quote escapes", `"a\"b\\c\$d"`, []string{`a"b\c$d`}},
		{"double quote literal backslash", `"a\nb"`, []string{`a\nb`}},
		{"line continuation", "get \\\nkey", []string{"get", "key"}},
		{"continuation inside token", "ke\\\ny", []string{"key"}},
		{"unicode", "get clé 'naïve value'", []string{"get", "clé", "naïve value"}},
		{"single quote inside double", `"it's"`, []string{"it's"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) error = %v", tt.input, err)
			}
			got := Texts(tokens)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenize_Spans(t *testing.T) {
	line := `login --mode "sec ure" x`
	tokens, err := Tokenize(line)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}

	want := []struct {
		raw    string
		start  int
		end    int
		quoted bool
	}{
		{"login", 0, 5, false},
		{"--mode", 6, 12, false},
		{`"sec ure"`, 13, 22, true},
		{"x", 23, 24, false},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, w := range want {
		tok := tokens[i]
		if tok.Start != w.start || tok.End != w.end {
			t.Errorf("token %d span = [%d,%d), want [%d,%d)", i, tok.Start, tok.End, w.start, w.end)
		}
		if tok.Raw(line) != w.raw {
			t.Errorf("token %d raw = %q, want %q", i, tok.Raw(line), w.raw)
		}
		if tok.Quoted != w.quoted {
			t.Errorf("token %d quoted = %v, want %v", i, tok.Quoted, w.quoted)
		}
	}
}

func TestTokenize_UnterminatedQuote(t *testing.T) {
	tests := []string{
		`"`,
		`say "hello`,
		`a "b" "c`,
		`"""`,
		`x " y " z "`,
		`'abc`,
		`"abc\"`,
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Tokenize(input)
			if !errors.Is(err, ErrUnterminatedQuote) {
				t.Fatalf("Tokenize(%q) error = %v, want ErrUnterminatedQuote", input, err)
			}
			var lexErr *Error
			if !errors.As(err, &lexErr) {
				t.Fatalf("error %T is not *Error", err)
			}
			if lexErr.Kind != UnterminatedQuote {
				t.Errorf("Kind = %v, want UnterminatedQuote", lexErr.Kind)
			}
		})
	}
}

// Any line with an odd number of unescaped double quotes (and no single
// quotes) must fail.
func TestTokenize_OddDoubleQuotes(t *testing.T) {
	pieces := []string{"a", " ", `"`, "b c", `\"`, "d"}
	var generate func(prefix string, depth int)
	generate = func(prefix string, depth int) {
		if depth == 0 {
			unescaped := countUnescapedDoubleQuotes(prefix)
			_, err := Tokenize(prefix)
			if unescaped%2 == 1 && !errors.Is(err, ErrUnterminatedQuote) {
				t.Errorf("Tokenize(%q) error = %v, want ErrUnterminatedQuote", prefix, err)
			}
			if unescaped%2 == 0 && errors.Is(err, ErrUnterminatedQuote) {
				t.Errorf("Tokenize(%q) unexpected ErrUnterminatedQuote", prefix)
			}
			return
		}
		for _, piece := range pieces {
			generate(prefix+piece, depth-1)
		}
	}
	generate("", 4)
}

// countUnescapedDoubleQuotes counts quotes the way a reader of the line would:
// a backslash outside quotes escapes the next character, inside double quotes
// it only escapes a double quote or backslash.
func countUnescapedDoubleQuotes(s string) int {
	count := 0
	inside := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if !inside || (i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\')) {
				i++
			}
		case '"':
			count++
			inside = !inside
		}
	}
	return count
}

func TestTokenize_DanglingEscape(t *testing.T) {
	_, err := Tokenize(`get key\`)
	if !errors.Is(err, ErrDanglingEscape) {
		t.Fatalf("error = %v, want ErrDanglingEscape", err)
	}
	var lexErr *Error
	if errors.As(err, &lexErr) && lexErr.Offset != 7 {
		t.Errorf("Offset = %d, want 7", lexErr.Offset)
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"download file.txt --check-sha",
		`set key "hello world"`,
		`a 'b c' "d\"e" f\ g`,
		`x "" ''`,
		`mixed"quo ted"word 'it'\''s'`,
		"trailing   ",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			tokens, err := Tokenize(input)
			if err != nil {
				t.Fatalf("Tokenize() error = %v", err)
			}

			raws := make([]string, len(tokens))
			for i, tok := range tokens {
				raws[i] = tok.Raw(input)
			}
			again, err := Tokenize(strings.Join(raws, " "))
			if err != nil {
				t.Fatalf("re-Tokenize(raw) error = %v", err)
			}
			if !reflect.DeepEqual(Texts(again), Texts(tokens)) {
				t.Errorf("raw round trip = %q, want %q", Texts(again), Texts(tokens))
			}

			joined, err := Tokenize(Join(Texts(tokens)))
			if err != nil {
				t.Fatalf("Tokenize(Join()) error = %v", err)
			}
			if !reflect.DeepEqual(Texts(joined), Texts(tokens)) {
				t.Errorf("Join round trip = %q, want %q", Texts(joined), Texts(tokens))
			}
		})
	}
}

func TestScan_State(t *testing.T) {
	tests := []struct {
		input     string
		open      byte
		escape    bool
		separated bool
		tokens    int
	}{
		{"", 0, false, false, 0},
		{"login", 0, false, false, 1},
		{"login ", 0, false, true, 1},
		{`login --mode "sec`, '"', false, false, 2},
		{`login 'a b`, '\'', false, false, 1},
		{`login a\`, 0, true, false, 1},
		{`login a\ `, 0, false, false, 2},
		{"dow", 0, false, false, 1},
		{"login --m", 0, false, false, 2},
		{`login 'a b'`, 0, false, false, 2},
		{"login \\\n", 0, false, true, 1},
		{"login\\\n", 0, false, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := Scan(tt.input)
			if result.Open != tt.open {
				t.Errorf("Open = %q, want %q", result.Open, tt.open)
			}
			if result.Escape != tt.escape {
				t.Errorf("Escape = %v, want %v", result.Escape, tt.escape)
			}
			if result.Separated != tt.separated {
				t.Errorf("Separated = %v, want %v", result.Separated, tt.separated)
			}
			if len(result.Tokens) != tt.tokens {
				t.Errorf("len(Tokens) = %d, want %d", len(result.Tokens), tt.tokens)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"", "''"},
		{"two words", "'two words'"},
		{"it's", `'it'\''s'`},
		{`back\slash`, `'back\slash'`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Quote(tt.input); got != tt.want {
				t.Errorf("Quote(%q) = %q, want %q", tt.input, got, tt.want)
			}
			tokens, err := Tokenize(Quote(tt.input))
			if err != nil || len(tokens) != 1 || tokens[0].Text != tt.input {
				t.Errorf("Tokenize(Quote(%q)) = %v, %v", tt.input, tokens, err)
			}
		})
	}
}
