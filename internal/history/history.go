package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/quocvuong92/clirepl/internal/constants"
)

// Entry is one submitted line.
type Entry struct {
	Line    string    `json:"line"`
	Time    time.Time `json:"time"`
	Session string    `json:"session,omitempty"`
}

// DefaultPath returns the history file under the user's data directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("failed to locate history directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, constants.AppName, constants.HistoryFileName), nil
}

// File is a JSON-lines history file. Each Append adds one line to the file;
// the file is rewritten down to the newest entries once it grows past twice
// the size limit.
type File struct {
	mu      sync.Mutex
	path    string
	session string
	limit   int
	entries []Entry
	onDisk  int
	now     func() time.Time
}

// FileOption configures a File
type FileOption func(*File)

// WithSession tags new entries with a session ID.
func WithSession(id string) FileOption {
	return func(f *File) {
		f.session = id
	}
}

// WithLimit bounds the number of entries kept.
func WithLimit(n int) FileOption {
	return func(f *File) {
		if n > 0 {
			f.limit = n
		}
	}
}

// NewFile returns a store backed by path. Nothing is read until Load.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{
		path:  path,
		limit: constants.DefaultHistorySize,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the backing file.
func (f *File) Path() string {
	return f.path
}

// Load reads the file. A missing file is an empty history. Lines that are not
// valid JSON are skipped.
func (f *File) Load() ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		f.entries = nil
		f.onDisk = 0
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil || e.Line == "" {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}

	f.onDisk = len(entries)
	if len(entries) > f.limit {
		entries = entries[len(entries)-f.limit:]
	}
	f.entries = entries
	return append([]Entry(nil), entries...), nil
}

// Append records line, skipping an immediate duplicate of the last entry.
func (f *File) Append(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n := len(f.entries); n > 0 && f.entries[n-1].Line == line {
		return nil
	}

	e := Entry{Line: line, Time: f.now().UTC(), Session: f.session}
	f.entries = append(f.entries, e)
	if len(f.entries) > f.limit {
		f.entries = f.entries[len(f.entries)-f.limit:]
	}

	if f.onDisk+1 > 2*f.limit {
		return f.rewrite()
	}
	return f.appendEntry(e)
}

func (f *File) appendEntry(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode history entry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	f.onDisk++
	return nil
}

// rewrite replaces the file with the in-memory entries.
func (f *File) rewrite() error {
	var buf bytes.Buffer
	for _, e := range f.entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode history entry: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace history: %w", err)
	}
	f.onDisk = len(f.entries)
	return nil
}

// Lines returns the known lines, oldest first.
func (f *File) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lines(f.entries)
}

// Entries returns the known entries, oldest first.
func (f *File) Entries() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Entry(nil), f.entries...)
}

// Clear removes the history file.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
	f.onDisk = 0
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Memory is a history that is never persisted.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
}

// NewMemory returns an in-memory store holding at most limit entries.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = constants.DefaultHistorySize
	}
	return &Memory{limit: limit}
}

// Load returns the entries recorded so far.
func (m *Memory) Load() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...), nil
}

// Append records line.
func (m *Memory) Append(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.entries); n > 0 && m.entries[n-1].Line == line {
		return nil
	}
	m.entries = append(m.entries, Entry{Line: line, Time: time.Now().UTC()})
	if len(m.entries) > m.limit {
		m.entries = m.entries[len(m.entries)-m.limit:]
	}
	return nil
}

// Lines returns the known lines, oldest first.
func (m *Memory) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lines(m.entries)
}

// Clear removes all entries.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

func lines(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Line
	}
	return out
}
