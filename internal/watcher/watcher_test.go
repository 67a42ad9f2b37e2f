package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ByLCY/furigana/internal/watcher"
)

func startWatcher(t *testing.T, files ...string) <-chan struct{} {
	t.Helper()
	w, err := watcher.New(watcher.Config{
		Files:       files,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")
	return onChange
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "doc.furigana")
	require.NoError(t, os.WriteFile(docPath, []byte("doc"), 0o644))

	onChange := startWatcher(t, docPath)

	// Rapid writes should coalesce into single notification
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(docPath, []byte(fmt.Sprintf("doc%d", i)), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_IgnoresIrrelevantFiles(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "doc.furigana")
	otherPath := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(docPath, []byte("doc"), 0o644))
	require.NoError(t, os.WriteFile(otherPath, []byte("initial"), 0o644))

	onChange := startWatcher(t, docPath)

	require.NoError(t, os.WriteFile(otherPath, []byte("other content"), 0o644))

	select {
	case <-onChange:
		t.Fatal("should not notify for irrelevant files")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_WatchesFilesInSeveralDirectories(t *testing.T) {
	docDir, dataDir := t.TempDir(), t.TempDir()
	docPath := filepath.Join(docDir, "doc.furigana")
	dataPath := filepath.Join(dataDir, "data.yaml")
	require.NoError(t, os.WriteFile(docPath, []byte("doc"), 0o644))
	require.NoError(t, os.WriteFile(dataPath, []byte("a: 1"), 0o644))

	onChange := startWatcher(t, docPath, dataPath)

	require.NoError(t, os.WriteFile(dataPath, []byte("a: 2"), 0o644))

	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification for data file change")
	}
}

func TestWatcher_RequiresFiles(t *testing.T) {
	_, err := watcher.New(watcher.Config{})
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig("a", "b")
	require.Equal(t, []string{"a", "b"}, cfg.Files)
	require.Equal(t, 300*time.Millisecond, cfg.DebounceDur)
}
