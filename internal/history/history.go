// Package history keeps a capped log of generated passwords.
package history

import (
	"context"
	"strings"
	"time"
)

// DefaultMaxEntries is the number of entries kept when no cap is configured
const DefaultMaxEntries = 100

// TimestampLayout is the layout of the timestamp prefix of every line
const TimestampLayout = "2006-01-02 15:04:05 UTC"

const separator = " | "

// Entry is one line of history
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Password  string    `json:"password"`
	Line      string    `json:"line"`
}

// Store persists history entries
type Store interface {
	// Save appends a password, dropping the oldest entries beyond the cap
	Save(ctx context.Context, password string) error
	// List returns entries newest first
	List(ctx context.Context) ([]Entry, error)
	// Export returns the raw history, oldest first
	Export(ctx context.Context) (string, error)
	// Clear removes every entry
	Clear(ctx context.Context) error
}

// FormatLine renders an entry line without the trailing newline
func FormatLine(ts time.Time, password string) string {
	return ts.UTC().Format(TimestampLayout) + separator + password
}

// ParseLine splits a history line into an Entry. Lines that do not follow
// the timestamp format are kept verbatim with a zero timestamp.
func ParseLine(line string) Entry {
	line = strings.TrimSpace(line)
	entry := Entry{Line: line}

	ts, password, found := strings.Cut(line, separator)
	if !found {
		entry.Password = line
		return entry
	}

	parsed, err := time.Parse(TimestampLayout, ts)
	if err != nil {
		entry.Password = line
		return entry
	}

	entry.Timestamp = parsed
	entry.Password = password
	return entry
}
