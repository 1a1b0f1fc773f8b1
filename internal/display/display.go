// Package display renders everything the interactive shell prints: errors,
// diagnostics with a caret under the offending input, completion listings,
// markdown help and progress spinners.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"

	"github.com/quocvuong92/clirepl/internal/completion"
)

var (
	mu     sync.Mutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	renderer *glamour.TermRenderer
)

// SetOutput redirects normal and error output. A nil writer keeps the
// current one.
func SetOutput(out, errOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

// Stdout returns the writer used for normal output.
func Stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return stdout
}

// ShowError prints an error message to the error output
func ShowError(msg string) {
	fmt.Fprintf(errorWriter(), "%s %s\n", current.errorLabel.Render("error:"), msg)
}

// ShowWarning prints a warning to the error output
func ShowWarning(msg string) {
	fmt.Fprintf(errorWriter(), "%s %s\n", current.warnLabel.Render("warning:"), msg)
}

// ShowInfo prints a faint informational line
func ShowInfo(msg string) {
	fmt.Fprintln(Stdout(), current.faint.Render(msg))
}

// ShowSuccess prints a confirmation line
func ShowSuccess(msg string) {
	fmt.Fprintln(Stdout(), current.success.Render(msg))
}

func errorWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return stderr
}

// InitRenderer prepares the markdown renderer for the given wrap width.
func InitRenderer(width int) error {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if colorEnabled {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	mu.Lock()
	renderer = r
	mu.Unlock()
	return nil
}

// RenderMarkdown renders md for the terminal. Without a renderer the text is
// returned unchanged.
func RenderMarkdown(md string) string {
	mu.Lock()
	r := renderer
	mu.Unlock()
	if r == nil {
		if err := InitRenderer(TerminalWidth()); err != nil {
			return md
		}
		mu.Lock()
		r = renderer
		mu.Unlock()
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// ShowMarkdown prints rendered markdown
func ShowMarkdown(md string) {
	fmt.Fprint(Stdout(), RenderMarkdown(md))
}

// TerminalWidth returns the width of standard output, or 80 when it is not a
// terminal.
func TerminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// ShowCandidates prints candidates in two columns, truncating descriptions to
// fit width.
func ShowCandidates(w io.Writer, cands []completion.Candidate, width int) {
	textWidth := 0
	for _, c := range cands {
		if n := ansi.StringWidth(c.Text); n > textWidth {
			textWidth = n
		}
	}

	for _, c := range cands {
		pad := strings.Repeat(" ", textWidth-ansi.StringWidth(c.Text))
		line := current.candidate.Render(c.Text) + pad
		if c.Description != "" {
			room := width - textWidth - 2
			desc := c.Description
			if room <= 1 {
				desc = ""
			} else if ansi.StringWidth(desc) > room {
				desc = ansi.Truncate(desc, room, "…")
			}
			if desc != "" {
				line += "  " + current.description.Render(desc)
			}
		}
		fmt.Fprintln(w, line)
	}
}

// Spinner shows progress for a slow operation on the error output.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(msg string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(errorWriter()))
	s.Suffix = " " + msg
	return &Spinner{s: s}
}

// Start shows the spinner
func (sp *Spinner) Start() {
	sp.s.Start()
}

// Stop hides the spinner
func (sp *Spinner) Stop() {
	sp.s.Stop()
}

// WithSpinner runs fn and shows a spinner if it is still running after delay.
// Nothing is shown when the error output is not a terminal.
func WithSpinner(delay time.Duration, msg string, fn func() error) error {
	f, ok := errorWriter().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fn()
	}

	sp := NewSpinner(msg)
	var once sync.Once
	timer := time.AfterFunc(delay, func() {
		once.Do(sp.Start)
	})
	defer func() {
		if !timer.Stop() {
			// The timer fired; wait for Start before stopping.
			once.Do(func() {})
			sp.Stop()
		}
	}()
	return fn()
}
