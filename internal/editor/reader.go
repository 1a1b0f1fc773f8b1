package editor

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/quocvuong92/clirepl/internal/history"
)

// ReaderEditor reads newline-terminated lines from any reader. It is used
// when standard input is not a terminal.
type ReaderEditor struct {
	scanner *bufio.Scanner
	out     io.Writer
	store   history.Store
}

// NewReaderEditor reads from r. Prompts are written to out unless it is nil.
func NewReaderEditor(r io.Reader, out io.Writer, store history.Store) *ReaderEditor {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &ReaderEditor{scanner: scanner, out: out, store: store}
}

// ReadLine returns the next line without its terminator.
func (e *ReaderEditor) ReadLine(prompt string) (string, error) {
	if e.out != nil && prompt != "" {
		fmt.Fprint(e.out, prompt)
	}
	if !e.scanner.Scan() {
		if err := e.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSuffix(e.scanner.Text(), "\r"), nil
}

// Record appends line to the history store.
func (e *ReaderEditor) Record(line string) error {
	if e.store == nil {
		return nil
	}
	return e.store.Append(line)
}
