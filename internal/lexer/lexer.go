// Package lexer splits a raw input line into tokens using shell-style quoting.
//
// The rules follow a POSIX shell closely enough for interactive command input:
//
//   - Unquoted spaces, tabs, carriage returns and newlines separate tokens.
//   - Single quotes preserve everything up to the next single quote.
//   - Double quotes preserve whitespace; a backslash inside them only escapes
//     $, `, ", \ and newline and is literal otherwise.
//   - Outside quotes a backslash escapes the following character.
//   - Backslash-newline is a line continuation and disappears.
//
// There is no expansion of any kind: no variables, globs, pipes or redirection.
// Every token keeps the byte span of its raw source so that completion can
// replace exactly the text the user typed.
package lexer

import (
	"errors"
	"fmt"
	"strings"
)

// Token is one lexically atomic unit of an input line.
type Token struct {
	// Text is the token with quotes and escapes removed.
	Text string
	// Start and End delimit the raw source of the token in the line, [Start, End).
	Start int
	End   int
	// Quoted reports whether any part of the token was quoted.
	Quoted bool
}

// Raw returns the source text of the token within line.
func (t Token) Raw(line string) string {
	return line[t.Start:t.End]
}

// ErrorKind classifies a lexing failure
type ErrorKind int

const (
	// UnterminatedQuote means a quote was opened but never closed
	UnterminatedQuote ErrorKind = iota + 1
	// DanglingEscape means the line ends with a backslash that escapes nothing
	DanglingEscape
)

// Sentinel errors matched with errors.Is against an *Error.
var (
	ErrUnterminatedQuote = errors.New("unterminated quote")
	ErrDanglingEscape    = errors.New("dangling escape")
)

// Error reports malformed quoting or escaping.
type Error struct {
	Kind ErrorKind
	// Offset is the byte offset of the opening quote or the trailing backslash.
	Offset int
	// Quote is the unterminated quote character, if any.
	Quote byte
}

func (e *Error) Error() string {
	switch e.Kind {
	case UnterminatedQuote:
		return fmt.Sprintf("unterminated %s quote starting at column %d", quoteName(e.Quote), e.Offset+1)
	case DanglingEscape:
		return fmt.Sprintf("trailing backslash at column %d", e.Offset+1)
	default:
		return "malformed input"
	}
}

// Unwrap maps the error onto its sentinel.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case UnterminatedQuote:
		return ErrUnterminatedQuote
	case DanglingEscape:
		return ErrDanglingEscape
	default:
		return nil
	}
}

func quoteName(q byte) string {
	if q == '\'' {
		return "single"
	}
	return "double"
}

// Result is the full outcome of scanning a line, including the state the scanner
// was left in. Completion needs that state to tell "inside a quote" apart from
// "between tokens".
type Result struct {
	Tokens []Token

	// Open is the quote character left unterminated at the end of the line, or 0.
	Open   byte
	OpenAt int

	// Escape reports a trailing backslash with nothing after it.
	Escape   bool
	EscapeAt int

	// Separated reports that the line ends outside any token, so the next
	// character typed starts a new token.
	Separated bool
}

// Err converts the scanner state into a lexing error, or nil.
func (r Result) Err() error {
	if r.Open != 0 {
		return &Error{Kind: UnterminatedQuote, Offset: r.OpenAt, Quote: r.Open}
	}
	if r.Escape {
		return &Error{Kind: DanglingEscape, Offset: r.EscapeAt}
	}
	return nil
}

// Tokenize splits line into tokens. It fails with an *Error wrapping
// ErrUnterminatedQuote or ErrDanglingEscape on malformed input.
func Tokenize(line string) ([]Token, error) {
	result := Scan(line)
	if err := result.Err(); err != nil {
		return nil, err
	}
	return result.Tokens, nil
}

// Scan splits line into tokens without failing. A token that is still open at
// the end of the line (inside a quote or after a trailing backslash) is not
// included in Tokens.
func Scan(line string) Result {
	var (
		result Result
		buf    strings.Builder
		start  = -1
		quoted bool
		quote  byte
	)

	flush := func(end int) {
		if start < 0 {
			return
		}
		result.Tokens = append(result.Tokens, Token{
			Text:   buf.String(),
			Start:  start,
			End:    end,
			Quoted: quoted,
		})
		buf.Reset()
		start = -1
		quoted = false
	}

	begin := func(i int) {
		if start < 0 {
			start = i
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]

		switch quote {
		case '\'':
			if c == '\'' {
				quote = 0
			} else {
				buf.WriteByte(c)
			}
			continue

		case '"':
			switch c {
			case '"':
				quote = 0
			case '\\':
				if i+1 < len(line) {
					switch next := line[i+1]; next {
					case '$', '`', '"', '\\':
						buf.WriteByte(next)
						i++
						continue
					case '\n':
						i++
						continue
					}
				}
				buf.WriteByte(c)
			default:
				buf.WriteByte(c)
			}
			continue
		}

		switch c {
		case ' ', '\t', '\r', '\n':
			flush(i)

		case '\\':
			if i+1 >= len(line) {
				result.Escape = true
				result.EscapeAt = i
				return finish(result)
			}
			if line[i+1] == '\n' {
				i++
				continue
			}
			begin(i)
			buf.WriteByte(line[i+1])
			i++

		case '\'', '"':
			begin(i)
			quoted = true
			quote = c
			result.OpenAt = i

		default:
			begin(i)
			buf.WriteByte(c)
		}
	}

	if quote != 0 {
		result.Open = quote
		return finish(result)
	}
	// A token still being built at the end of the line is live, not separated
	result.Separated = start < 0 && len(result.Tokens) > 0
	flush(len(line))
	return finish(result)
}

func finish(result Result) Result {
	if result.Open == 0 {
		result.OpenAt = 0
	}
	return result
}

// Texts returns the unquoted text of every token.
func Texts(tokens []Token) []string {
	texts := make([]string, len(tokens))
	for i, token := range tokens {
		texts[i] = token.Text
	}
	return texts
}

// Quote returns s in a form that Tokenize reads back as a single token equal to
// s. Strings without special characters are returned unchanged.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\r\n'\"\\") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Join quotes each text and joins them with single spaces.
func Join(texts []string) string {
	quoted := make([]string, len(texts))
	for i, text := range texts {
		quoted[i] = Quote(text)
	}
	return strings.Join(quoted, " ")
}
