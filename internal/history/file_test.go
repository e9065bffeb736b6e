package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 8, 7, 6, 0, time.UTC)
}

func newTestStore(t *testing.T, max int) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "history.txt"), max, WithClock(fixedClock))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestFileStore_SaveCreatesFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)

	require.NoError(t, s.Save(ctx, "TestPassword123!"))

	assert.Equal(t, "2024-03-09 08:07:06 UTC | TestPassword123!\n", readFile(t, s.Path()))
}

func TestFileStore_SaveAppends(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)
	require.NoError(t, os.WriteFile(s.Path(), []byte("2023-01-01 12:00:00 UTC | Password1\n"), 0600))

	require.NoError(t, s.Save(ctx, "Password2"))

	lines := strings.Split(strings.TrimSuffix(readFile(t, s.Path()), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Password1")
	assert.Contains(t, lines[1], "Password2")
}

func TestFileStore_SaveTerminatesDanglingLine(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)
	require.NoError(t, os.WriteFile(s.Path(), []byte("2023-01-01 12:00:00 UTC | TestPassword123!"), 0600))

	require.NoError(t, s.Save(ctx, "Next"))

	assert.Equal(t,
		"2023-01-01 12:00:00 UTC | TestPassword123!\n2024-03-09 08:07:06 UTC | Next\n",
		readFile(t, s.Path()))
}

func TestFileStore_MaxEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, DefaultMaxEntries)

	var b strings.Builder
	for i := 0; i < DefaultMaxEntries+10; i++ {
		fmt.Fprintf(&b, "2023-01-01 12:00:00 UTC | Password%d\n", i)
	}
	require.NoError(t, os.WriteFile(s.Path(), []byte(b.String()), 0600))

	require.NoError(t, s.Save(ctx, "FinalPassword"))

	content := readFile(t, s.Path())
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	assert.Len(t, lines, DefaultMaxEntries)
	assert.Contains(t, lines[len(lines)-1], "FinalPassword")
	for i := 0; i <= 10; i++ {
		assert.NotContains(t, lines, fmt.Sprintf("2023-01-01 12:00:00 UTC | Password%d", i))
	}
	assert.Contains(t, lines[0], "Password11")
}

func TestFileStore_ListEmpty(t *testing.T) {
	s := newTestStore(t, 0)

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStore_ListNewestFirst(t *testing.T) {
	s := newTestStore(t, 0)
	content := "2023-01-01 12:00:00 UTC | Password1\n2023-01-02 12:00:00 UTC | Password2\n"
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0600))

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Password2", entries[0].Password)
	assert.Equal(t, "2023-01-02 12:00:00 UTC | Password2", entries[0].Line)
	assert.Equal(t, time.Date(2023, 1, 2, 12, 0, 0, 0, time.UTC), entries[0].Timestamp)
	assert.Equal(t, "Password1", entries[1].Password)
}

func TestFileStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)
	require.NoError(t, os.WriteFile(s.Path(), []byte("2023-01-01 12:00:00 UTC | Password1\n"), 0600))

	require.NoError(t, s.Clear(ctx))

	assert.FileExists(t, s.Path())
	assert.Empty(t, readFile(t, s.Path()))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFileStore_ClearMissingFile(t *testing.T) {
	s := newTestStore(t, 0)

	require.NoError(t, s.Clear(context.Background()))
	assert.NoFileExists(t, s.Path())
}

func TestFileStore_Export(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)

	exported, err := s.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", exported)

	content := "2023-01-01 12:00:00 UTC | Password1\n"
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0600))

	exported, err = s.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, content, exported)
}

func TestFileStore_SaveAfterClear(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)

	require.NoError(t, s.Save(ctx, "one"))
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Save(ctx, "two"))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "two", entries[0].Password)
}

func TestFileStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 50)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Save(ctx, fmt.Sprintf("pw-%d", i)))
		}(i)
	}
	wg.Wait()

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, n)
}

func TestFileStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestStore(t, 0)
	assert.ErrorIs(t, s.Save(ctx, "x"), context.Canceled)
}

func TestParseLine(t *testing.T) {
	e := ParseLine("2023-01-01 12:00:00 UTC | a | b\n")
	assert.Equal(t, "a | b", e.Password)
	assert.False(t, e.Timestamp.IsZero())

	e = ParseLine("not a history line")
	assert.Equal(t, "not a history line", e.Password)
	assert.True(t, e.Timestamp.IsZero())
}

func TestFormatLine(t *testing.T) {
	ts := time.Date(2024, 3, 9, 9, 7, 6, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "2024-03-09 08:07:06 UTC | pw", FormatLine(ts, "pw"))
}

func TestFileStore_BlankLinesKept(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 3)
	content := "2023-01-01 12:00:00 UTC | Password1\n\n   \n"
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0600))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Empty(t, entries[0].Line)
	assert.Empty(t, entries[1].Password)
	assert.Equal(t, "Password1", entries[2].Password)

	// Blank lines count toward the cap
	require.NoError(t, s.Save(ctx, "Password2"))
	assert.Equal(t, "\n   \n2024-03-09 08:07:06 UTC | Password2\n", readFile(t, s.Path()))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestFileStore_LenMissingFile(t *testing.T) {
	s := newTestStore(t, 0)

	n, err := s.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, DefaultMaxEntries, s.MaxEntries())
}
