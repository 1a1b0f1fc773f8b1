// Package completion derives completion candidates from a partial input line.
//
// The engine re-lexes the text before the cursor, walks the committed tokens
// through the same parser.State the parser uses and proposes what the grammar
// accepts next. It never fails and never performs I/O; a line it cannot make
// sense of simply yields no candidates.
package completion

import (
	"strings"
	"unicode/utf8"

	"github.com/quocvuong92/clirepl/internal/grammar"
	"github.com/quocvuong92/clirepl/internal/lexer"
	"github.com/quocvuong92/clirepl/internal/parser"
)

// Request is a line and a cursor position within it, in bytes.
type Request struct {
	Line   string
	Cursor int
}

// Candidate is one proposed replacement for Line[Start:End].
type Candidate struct {
	// Text is the replacement, already quoted for the lexer if needed.
	Text        string
	Description string
	Start       int
	End         int
	// AppendSpace is false when accepting the candidate may still be followed
	// by more characters of the same token.
	AppendSpace bool
}

// Engine computes candidates for one grammar.
type Engine struct {
	model *grammar.Model
	fuzzy bool
}

// Option configures an Engine
type Option func(*Engine)

// WithFuzzyFallback scores candidates with fzf's matcher when nothing matches
// the typed prefix.
func WithFuzzyFallback(enabled bool) Option {
	return func(e *Engine) {
		e.fuzzy = enabled
	}
}

// New returns an engine for m.
func New(m *grammar.Model, opts ...Option) *Engine {
	e := &Engine{model: m}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the engine's grammar.
func (e *Engine) Model() *grammar.Model {
	return e.model
}

// clampCursor keeps cursor within line and moves it back onto a rune boundary.
func clampCursor(line string, cursor int) int {
	if cursor < 0 {
		return 0
	}
	if cursor > len(line) {
		return len(line)
	}
	for cursor > 0 && cursor < len(line) && !utf8.RuneStart(line[cursor]) {
		cursor--
	}
	return cursor
}

// Context is what the engine knows about the position being completed.
type Context struct {
	// State is the parser state after the committed tokens.
	State *parser.State
	// Live is the token under the cursor; empty when the cursor follows a
	// separator.
	Live lexer.Token
	// Cursor is the clamped cursor.
	Cursor int
	// Failed reports that a committed token was rejected; State stops at the
	// token before it.
	Failed bool
}

// Analyze lexes the text before the cursor and walks the committed tokens.
// It returns false when the cursor sits inside an open quote or right after a
// lone backslash.
func (e *Engine) Analyze(req Request) (Context, bool) {
	cursor := clampCursor(req.Line, req.Cursor)
	scan := lexer.Scan(req.Line[:cursor])
	if scan.Open != 0 || scan.Escape {
		return Context{}, false
	}

	committed := scan.Tokens
	live := lexer.Token{Start: cursor, End: cursor}
	if n := len(scan.Tokens); n > 0 && !scan.Separated {
		committed = scan.Tokens[:n-1]
		live = scan.Tokens[n-1]
	}

	state := parser.NewState(e.model)
	failed := false
	for i, tok := range committed {
		if err := state.Feed(i, tok.Text); err != nil {
			failed = true
			break
		}
	}
	return Context{State: state, Live: live, Cursor: cursor, Failed: failed}, true
}

// Complete returns the candidates for req in declaration order. A line whose
// committed tokens the grammar already rejects gets none, since no candidate
// could make it parse.
func (e *Engine) Complete(req Request) []Candidate {
	ctx, ok := e.Analyze(req)
	if !ok || ctx.Failed {
		return nil
	}

	pool := e.pool(ctx)
	prefix := ctx.Live.Text

	var matched []option
	for _, o := range pool {
		if strings.HasPrefix(o.match, prefix) {
			matched = append(matched, o)
		}
	}
	if len(matched) == 0 && e.fuzzy && prefix != "" {
		matched = fuzzyFilter(pool, prefix)
	}
	return candidates(matched, ctx)
}

// option is a completion before it is placed in the line.
type option struct {
	// match is compared against the live token's text.
	match string
	// text is the unquoted replacement for the whole live token.
	text string
	// replacement is text quoted for the lexer.
	replacement string
	help        string
}

func plain(text, help string) option {
	return option{match: text, text: text, replacement: lexer.Quote(text), help: help}
}

func isFlagToken(ctx Context, token string) bool {
	return !ctx.State.FlagsDone() && strings.HasPrefix(token, "-")
}

// pool lists everything the grammar accepts at the live token, unfiltered.
func (e *Engine) pool(ctx Context) []option {
	state := ctx.State
	m := e.model

	if pending, ok := state.Pending(); ok {
		return valueOptions(m.Node(pending))
	}

	// "--flag=value" completes the value of that flag.
	if spelling, _, hasValue := parser.SplitFlag(ctx.Live.Text); hasValue && isFlagToken(ctx, ctx.Live.Text) {
		id, ok := m.FlagBySpelling(state.Node(), spelling)
		if !ok {
			return nil
		}
		flag := m.Node(id)
		if flag.Type == grammar.TypeBool {
			return []option{
				{match: spelling + "=true", text: spelling + "=true", replacement: spelling + "=true"},
				{match: spelling + "=false", text: spelling + "=false", replacement: spelling + "=false"},
			}
		}
		var opts []option
		for _, v := range flag.Values {
			text := spelling + "=" + v.Literal
			opts = append(opts, option{
				match:       text,
				text:        text,
				replacement: spelling + "=" + lexer.Quote(v.Literal),
				help:        v.Help,
			})
		}
		return opts
	}

	next, hasNext := state.NextPositional()
	withShort := strings.HasPrefix(ctx.Live.Text, "-")

	var opts []option
	for _, id := range m.Children(state.Node()) {
		n := m.Node(id)
		switch n.Kind {
		case grammar.KindCommand:
			opts = append(opts, plain(n.Name, n.Help))
		case grammar.KindPositional:
			if hasNext && id == next {
				opts = append(opts, valueOptions(n)...)
			}
		case grammar.KindFlag:
			if state.FlagsDone() || (state.Bound(id) && !n.Multiple) {
				continue
			}
			opts = append(opts, plain("--"+n.Long, n.Help))
			if n.Short != "" && withShort {
				opts = append(opts, plain("-"+n.Short, n.Help))
			}
		}
	}
	return opts
}

func valueOptions(n grammar.Node) []option {
	opts := make([]option, 0, len(n.Values))
	for _, v := range n.Values {
		opts = append(opts, plain(v.Literal, v.Help))
	}
	return opts
}

func candidates(opts []option, ctx Context) []Candidate {
	if len(opts) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(opts))
	for i, o := range opts {
		appendSpace := true
		for j, other := range opts {
			if i != j && len(other.text) > len(o.text) && strings.HasPrefix(other.text, o.text) {
				appendSpace = false
				break
			}
		}
		out = append(out, Candidate{
			Text:        o.replacement,
			Description: o.help,
			Start:       ctx.Live.Start,
			End:         ctx.Cursor,
			AppendSpace: appendSpace,
		})
	}
	return out
}

// Hint returns the text that every candidate for a cursor at the end of line
// shares beyond what is already typed. It is empty when the candidates
// diverge immediately or there are none.
func (e *Engine) Hint(line string) string {
	cands := e.Complete(Request{Line: line, Cursor: len(line)})
	if len(cands) == 0 {
		return ""
	}

	typed := line[cands[0].Start:cands[0].End]
	common := cands[0].Text
	for _, c := range cands[1:] {
		common = commonPrefix(common, c.Text)
	}
	if !strings.HasPrefix(common, typed) {
		return ""
	}
	return common[len(typed):]
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	for i > 0 && i < len(a) && !utf8.RuneStart(a[i]) {
		i--
	}
	return a[:i]
}
