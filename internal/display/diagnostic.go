package display

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/quocvuong92/clirepl/internal/lexer"
	"github.com/quocvuong92/clirepl/internal/parser"
	"github.com/quocvuong92/clirepl/internal/repl"
)

// Ensure DiagnosticReporter can be handed to the read loop
var _ repl.Reporter = (*DiagnosticReporter)(nil)

// maxExpected bounds the "expected one of" list.
const maxExpected = 8

// DiagnosticReporter prints rejected input lines with a caret under the
// offending token. The expected set is listed when no close suggestion
// exists.
type DiagnosticReporter struct {
	w io.Writer
}

// NewDiagnosticReporter writes to w, or to the error output when w is nil.
func NewDiagnosticReporter(w io.Writer) *DiagnosticReporter {
	return &DiagnosticReporter{w: w}
}

// Report prints the diagnostic for err on line.
func (r *DiagnosticReporter) Report(line string, err error) {
	w := r.w
	if w == nil {
		w = errorWriter()
	}
	fmt.Fprint(w, FormatDiagnostic(line, err))
}

// FormatDiagnostic renders err against the line it was found in. Errors that
// do not point into the line are rendered as a single message.
func FormatDiagnostic(line string, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", current.errorLabel.Render("error:"), err.Error())

	start, end, ok := span(line, err)
	if !ok {
		return b.String()
	}

	// Continuation lines are joined with newlines; show them on one row so
	// byte offsets still line up with the caret.
	shown := strings.ReplaceAll(line, "\n", " ")
	indent := ansi.StringWidth(shown[:start])
	width := ansi.StringWidth(shown[start:end])
	if width < 1 {
		width = 1
	}
	fmt.Fprintf(&b, "  %s\n", shown)
	fmt.Fprintf(&b, "  %s%s\n", strings.Repeat(" ", indent), current.caret.Render(strings.Repeat("^", width)))

	var gerr *parser.GrammarError
	if errors.As(err, &gerr) {
		// InvalidValue already names its value set in the message.
		if len(gerr.Expected) > 0 && gerr.Suggestion == "" && gerr.Reason != parser.InvalidValue {
			expected := gerr.Expected
			more := ""
			if len(expected) > maxExpected {
				more = fmt.Sprintf(" and %d more", len(expected)-maxExpected)
				expected = expected[:maxExpected]
			}
			fmt.Fprintf(&b, "  %s\n", current.faint.Render("expected one of: "+strings.Join(expected, ", ")+more))
		}
	}
	return b.String()
}

// span locates the part of line that err is about, in bytes.
func span(line string, err error) (int, int, bool) {
	var lexErr *lexer.Error
	if errors.As(err, &lexErr) {
		off := lexErr.Offset
		if off < 0 || off > len(line) {
			return 0, 0, false
		}
		return off, len(line), true
	}

	var gerr *parser.GrammarError
	if !errors.As(err, &gerr) {
		return 0, 0, false
	}
	if gerr.Index < 0 {
		return len(line), len(line), true
	}
	res := lexer.Scan(line)
	if gerr.Index >= len(res.Tokens) {
		return 0, 0, false
	}
	tok := res.Tokens[gerr.Index]
	return tok.Start, tok.End, true
}
