package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileStore keeps history in a flat text file, one entry per line
type FileStore struct {
	path       string
	maxEntries int
	now        func() time.Time
	mu         sync.Mutex
}

// FileOption configures a FileStore
type FileOption func(*FileStore)

// WithClock overrides the clock used to timestamp entries
func WithClock(now func() time.Time) FileOption {
	return func(s *FileStore) {
		s.now = now
	}
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string, maxEntries int, opts ...FileOption) *FileStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	s := &FileStore{
		path:       path,
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the history file location
func (s *FileStore) Path() string {
	return s.path
}

// MaxEntries returns the cap on stored entries
func (s *FileStore) MaxEntries() int {
	return s.maxEntries
}

// Save appends password to the history file
func (s *FileStore) Save(ctx context.Context, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := FormatLine(s.now(), password) + "\n"

	lines, err := s.readLines()
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(s.path, []byte(entry), 0600); err != nil {
			return fmt.Errorf("failed to create history file: %w", err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	lines = append(lines, entry)
	if len(lines) > s.maxEntries {
		lines = lines[len(lines)-s.maxEntries:]
	}

	return s.writeLines(lines)
}

// List returns history lines newest first
func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.readLines()
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		entries = append(entries, ParseLine(lines[i]))
	}
	return entries, nil
}

// Export returns the raw file content, or "" when no history exists
func (s *FileStore) Export(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read history file: %w", err)
	}
	return string(data), nil
}

// Clear truncates the history file. A missing file is left missing.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err := os.Truncate(s.path, 0); err != nil {
		return fmt.Errorf("failed to clear history file: %w", err)
	}
	return nil
}

// Len returns the number of stored entries. A missing file holds none.
func (s *FileStore) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.readLines()
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

// readLines returns the file split into newline-terminated lines. Blank
// lines are kept and count toward the cap. A final line without a newline
// gets one so the next append starts a new line. Caller must hold the lock.
func (s *FileStore) readLines() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	content := string(data)
	if content == "" {
		return []string{}, nil
	}

	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	if last := lines[len(lines)-1]; !strings.HasSuffix(last, "\n") {
		lines[len(lines)-1] = last + "\n"
	}
	return lines, nil
}

// writeLines replaces the file content through a temp file in the same
// directory. Caller must hold the lock.
func (s *FileStore) writeLines(lines []string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(strings.Join(lines, "")); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write history file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}
