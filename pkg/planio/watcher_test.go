package planio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planshift/planshift/pkg/log"
)

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event on %s", want)
		}
	}
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 8)

	w, err := NewWatcher(dir, log.Nop(),
		WithDebounceDelay(20*time.Millisecond),
		WithOnChange(func(path string) { changed <- path }),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"kind":"scan","table":["t"]}`), 0o644))

	waitFor(t, changed, path)
}

func TestWatcherReportsRemovals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	removed := make(chan string, 8)
	w, err := NewWatcher(dir, log.Nop(),
		WithDebounceDelay(20*time.Millisecond),
		WithOnRemove(func(path string) { removed <- path }),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.Remove(path))

	waitFor(t, removed, path)
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 8)

	w, err := NewWatcher(dir, log.Nop(),
		WithDebounceDelay(20*time.Millisecond),
		WithOnChange(func(path string) { changed <- path }),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case path := <-changed:
		t.Fatalf("unexpected change event for %s", path)
	case <-time.After(250 * time.Millisecond):
	}
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 8)

	w, err := NewWatcher(dir, log.Nop(),
		WithDebounceDelay(20*time.Millisecond),
		WithOnChange(func(path string) { changed <- path }),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// give the new directory's watch time to land
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	waitFor(t, changed, path)
}

func TestWatcherLifecycle(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil)
	require.NoError(t, err)

	assert.False(t, w.IsRunning())
	require.NoError(t, w.Start())
	assert.True(t, w.IsRunning())
	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop(), "second stop is a no-op")
}
