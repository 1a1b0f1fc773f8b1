// Package editor provides the line editors used by the read loop: an
// interactive one built on go-prompt and a plain one for piped input.
package editor

import (
	"io"
	"unicode/utf8"

	"github.com/elk-language/go-prompt"
	istrings "github.com/elk-language/go-prompt/strings"

	"github.com/quocvuong92/clirepl/internal/completion"
	"github.com/quocvuong92/clirepl/internal/constants"
	"github.com/quocvuong92/clirepl/internal/history"
	"github.com/quocvuong92/clirepl/internal/repl"
)

// Completer proposes candidates for a partial line.
type Completer interface {
	Complete(req completion.Request) []completion.Candidate
}

// Ensure editors implement the loop's collaborator interface
var _ repl.Editor = (*PromptEditor)(nil)
var _ repl.Editor = (*ReaderEditor)(nil)

// PromptEditor reads lines from the terminal with completion and history.
type PromptEditor struct {
	completer      Completer
	store          history.Store
	title          string
	maxSuggestions int
	colors         bool

	// Flags set by key bindings while a line is being read.
	interrupted bool
	submitted   bool
}

// PromptOption configures a PromptEditor
type PromptOption func(*PromptEditor)

// WithTitle sets the terminal title.
func WithTitle(title string) PromptOption {
	return func(e *PromptEditor) {
		e.title = title
	}
}

// WithMaxSuggestions bounds the number of visible completion rows.
func WithMaxSuggestions(n int) PromptOption {
	return func(e *PromptEditor) {
		if n > 0 {
			e.maxSuggestions = n
		}
	}
}

// WithColors toggles the colored prompt and suggestion box.
func WithColors(enabled bool) PromptOption {
	return func(e *PromptEditor) {
		e.colors = enabled
	}
}

// NewPromptEditor returns an editor completing with c and recording into
// store. Either may be nil.
func NewPromptEditor(c Completer, store history.Store, opts ...PromptOption) *PromptEditor {
	e := &PromptEditor{
		completer:      c,
		store:          store,
		title:          constants.AppName,
		maxSuggestions: constants.DefaultMaxSuggestions,
		colors:         true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ReadLine shows prompt and blocks until the user submits a line, presses
// Ctrl-C (repl.ErrInterrupted) or presses Ctrl-D on an empty line (io.EOF).
func (e *PromptEditor) ReadLine(promptText string) (string, error) {
	e.interrupted = false
	e.submitted = false

	p := prompt.New(func(string) {}, e.options(promptText)...)
	line := p.Input()

	switch {
	case e.interrupted:
		return "", repl.ErrInterrupted
	case !e.submitted:
		return "", io.EOF
	}
	return line, nil
}

// Record appends line to the history store.
func (e *PromptEditor) Record(line string) error {
	if e.store == nil {
		return nil
	}
	return e.store.Append(line)
}

func (e *PromptEditor) options(promptText string) []prompt.Option {
	opts := []prompt.Option{
		prompt.WithPrefix(promptText),
		prompt.WithTitle(e.title),
		prompt.WithMaxSuggestion(uint16(e.maxSuggestions)),
		prompt.WithCompletionOnDown(),
		prompt.WithExecuteOnEnterCallback(func(*prompt.Prompt, int) (int, bool) {
			e.submitted = true
			return 0, true
		}),
		prompt.WithExitChecker(func(string, bool) bool {
			return e.interrupted
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(*prompt.Prompt) bool {
				e.interrupted = true
				return false
			},
		}),
	}
	if e.completer != nil {
		opts = append(opts, prompt.WithCompleter(e.complete))
	}
	if e.store != nil {
		opts = append(opts, prompt.WithHistory(e.store.Lines()))
	}
	if e.colors {
		opts = append(opts,
			prompt.WithPrefixTextColor(prompt.Green),
			// Suggestion box styling
			prompt.WithSuggestionBGColor(prompt.DarkBlue),
			prompt.WithSuggestionTextColor(prompt.White),
			prompt.WithSelectedSuggestionBGColor(prompt.Cyan),
			prompt.WithSelectedSuggestionTextColor(prompt.Black),
			prompt.WithDescriptionBGColor(prompt.DarkBlue),
			prompt.WithDescriptionTextColor(prompt.LightGray),
			prompt.WithSelectedDescriptionBGColor(prompt.Cyan),
			prompt.WithSelectedDescriptionTextColor(prompt.Black),
			prompt.WithScrollbarBGColor(prompt.DarkGray),
			prompt.WithScrollbarThumbColor(prompt.White),
		)
	}
	return opts
}

// complete adapts the completion engine to go-prompt, which addresses the
// buffer in runes rather than bytes.
func (e *PromptEditor) complete(d prompt.Document) ([]prompt.Suggest, istrings.RuneNumber, istrings.RuneNumber) {
	line := d.Text
	cursor := len(d.TextBeforeCursor())
	suggestions, start, end := suggest(e.completer, line, cursor)
	return suggestions, istrings.RuneNumber(start), istrings.RuneNumber(end)
}

// suggest runs c and converts the candidates' byte span to rune offsets.
// All candidates of one request share the same span.
func suggest(c Completer, line string, cursor int) ([]prompt.Suggest, int, int) {
	cands := c.Complete(completion.Request{Line: line, Cursor: cursor})
	end := runeOffset(line, cursor)
	if len(cands) == 0 {
		return []prompt.Suggest{}, end, end
	}

	start := runeOffset(line, cands[0].Start)
	end = runeOffset(line, cands[0].End)
	out := make([]prompt.Suggest, 0, len(cands))
	for _, cand := range cands {
		text := cand.Text
		if cand.AppendSpace {
			text += " "
		}
		out = append(out, prompt.Suggest{Text: text, Description: cand.Description})
	}
	return out, start, end
}

func runeOffset(s string, byteOffset int) int {
	if byteOffset > len(s) {
		byteOffset = len(s)
	}
	if byteOffset < 0 {
		return 0
	}
	return utf8.RuneCountInString(s[:byteOffset])
}
