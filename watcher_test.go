package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcherReportsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spell.yaml")
	require.NoError(t, os.WriteFile(path, []byte("functions: []\n"), 0o644))

	changed := make(chan string, 4)
	fw, err := NewFileWatcher(func(p string) { changed <- p })
	require.NoError(t, err)
	fw.delay = 10 * time.Millisecond
	require.NoError(t, fw.AddFile(path))

	stopped := make(chan struct{})
	go func() {
		fw.Watch()
		close(stopped)
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("functions: []\nstrings: []\n"), 0o644))

	select {
	case p := <-changed:
		abs, err := filepath.Abs(path)
		require.NoError(t, err)
		assert.Equal(t, abs, p)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	require.NoError(t, fw.Close())
	assert.NoError(t, fw.Close())
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after Close")
	}
}

func TestFileWatcherMissingFile(t *testing.T) {
	fw, err := NewFileWatcher(func(string) {})
	require.NoError(t, err)
	defer fw.Close()
	assert.Error(t, fw.AddFile(filepath.Join(t.TempDir(), "missing.yaml")))
}
