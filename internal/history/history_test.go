package history

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFile_AppendAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.jsonl")
	f := NewFile(path, WithSession("s1"))
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	for _, line := range []string{"download a", "upload", "upload", "login -u bob"} {
		if err := f.Append(line); err != nil {
			t.Fatalf("Append(%q) error = %v", line, err)
		}
	}

	want := []string{"download a", "upload", "login -u bob"}
	if got := f.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}

	reloaded := NewFile(path)
	entries, err := reloaded.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Load() returned %d entries, want 3", len(entries))
	}
	if entries[0].Session != "s1" || !entries[0].Time.Equal(fixed) {
		t.Errorf("entry = %+v", entries[0])
	}
	if got := reloaded.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("reloaded Lines() = %q, want %q", got, want)
	}
}

func TestFile_LoadMissing(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "none.jsonl"))
	entries, err := f.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 0 || len(f.Lines()) != 0 {
		t.Errorf("expected empty history, got %v", entries)
	}
}

func TestFile_LoadSkipsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	content := strings.Join([]string{
		`{"line":"first","time":"2024-01-01T00:00:00Z"}`,
		`not json`,
		``,
		`{"line":""}`,
		`{"line":"second","time":"2024-01-01T00:00:01Z"}`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	f := NewFile(path)
	if _, err := f.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := f.Lines(), []string{"first", "second"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}

func TestFile_Limit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	f := NewFile(path, WithLimit(3))

	for _, line := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		if err := f.Append(line); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := f.Lines(), []string{"e", "f", "g"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}

	// The file is compacted once it holds more than twice the limit.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n > 6 {
		t.Errorf("file holds %d lines, want at most 6", n)
	}

	reloaded := NewFile(path, WithLimit(3))
	if _, err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if got, want := reloaded.Lines(), []string{"e", "f", "g"}; !reflect.DeepEqual(got, want) {
		t.Errorf("reloaded Lines() = %q, want %q", got, want)
	}
}

func TestFile_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	f := NewFile(path)
	if err := f.Append("upload"); err != nil {
		t.Fatal(err)
	}
	if err := f.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("history file still exists: %v", err)
	}
	if len(f.Lines()) != 0 {
		t.Errorf("Lines() = %q after Clear", f.Lines())
	}
	// Clearing twice is fine.
	if err := f.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory(2)
	for _, line := range []string{"a", "a", "b", "c"} {
		if err := m.Append(line); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := m.Lines(), []string{"b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
	entries, err := m.Load()
	if err != nil || len(entries) != 2 {
		t.Errorf("Load() = %v, %v", entries, err)
	}
	if err := m.Clear(); err != nil || len(m.Lines()) != 0 {
		t.Errorf("Clear() = %v, lines %q", err, m.Lines())
	}
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Skipf("no config directory: %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join("clirepl", "history.jsonl")) {
		t.Errorf("DefaultPath() = %q", path)
	}
}
