package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "paper.tex")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("v0"), 0o600))

	w, err := New([]string{src}, 100*time.Millisecond, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(path string) { changes <- path })
	}()

	for i := range 5 {
		require.NoError(t, os.WriteFile(src, []byte{byte('a' + i)}, 0o600))
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o600))

	select {
	case got := <-changes:
		abs, _ := filepath.Abs(src)
		assert.Equal(t, abs, got)
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	select {
	case got := <-changes:
		t.Errorf("second change %q reported for one burst", got)
	case <-time.After(400 * time.Millisecond):
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "nope", "a.tex")}, 0, testLogger())
	assert.Error(t, err)
}

func TestRelevant(t *testing.T) {
	w := &Watcher{files: map[string]bool{"/src/a.tex": true}}
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/src/a.tex", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/src/a.tex", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/src/a.tex", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/src/a.tex", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/src/a.tex", Op: fsnotify.Remove}, false},
		{fsnotify.Event{Name: "/src/b.tex", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.relevant(tt.event), "%s", tt.event)
	}
}
