package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileWatcher:
// - NewFileWatcher creates watcher successfully with a valid root
// - NewFileWatcher returns error with invalid root
// - Single file change fires callback with the relative path
// - Multiple file changes are batched into one sorted callback
// - Pause/Resume behavior (accumulate during pause, fire on resume)
// - Directory added triggers recursive watch
// - Accept filters files, SkipDir keeps directories unwatched
// - Stop() cleanup and concurrent Stop() calls are safe
// - Context cancellation stops watcher

const testDebounce = 100 * time.Millisecond

func pyOnly(rel string) bool {
	return strings.HasSuffix(rel, ".py")
}

type recorder struct {
	mu     sync.Mutex
	paths  []string
	called chan struct{}
}

func newRecorder() *recorder {
	return &recorder{called: make(chan struct{}, 10)}
}

func (r *recorder) callback(paths []string) {
	r.mu.Lock()
	r.paths = append(r.paths, paths...)
	r.mu.Unlock()
	r.called <- struct{}{}
}

func (r *recorder) wait(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.called:
	case <-time.After(timeout):
		t.Fatal("Callback not called after timeout")
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.paths...)
}

func startWatcher(t *testing.T, root string, opts Options) (FileWatcher, *recorder) {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = testDebounce
	}
	w, err := NewFileWatcher(root, opts)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	rec := newRecorder()
	require.NoError(t, w.Start(context.Background(), rec.callback))
	time.Sleep(100 * time.Millisecond)
	return w, rec
}

func TestNewFileWatcher_Success(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher(t.TempDir(), Options{})
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, w.Stop())
}

func TestNewFileWatcher_InvalidDirectory(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher(filepath.Join(t.TempDir(), "nonexistent"), Options{})
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestFileWatcher_SingleFileChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, rec := startWatcher(t, root, Options{Accept: pyOnly})

	require.NoError(t, os.WriteFile(filepath.Join(root, "app.py"), []byte("x = 1\n"), 0644))

	rec.wait(t, 2*time.Second)
	assert.Equal(t, []string{"app.py"}, rec.snapshot())
}

func TestFileWatcher_MultipleFileChanges(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, rec := startWatcher(t, root, Options{Accept: pyOnly})

	for _, name := range []string{"b.py", "a.py", "c.py"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("pass\n"), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	rec.wait(t, 2*time.Second)
	assert.Equal(t, []string{"a.py", "b.py", "c.py"}, rec.snapshot())
}

func TestFileWatcher_PauseResume(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, rec := startWatcher(t, root, Options{Accept: pyOnly})

	w.Pause()
	require.NoError(t, os.WriteFile(filepath.Join(root, "paused.py"), []byte("pass\n"), 0644))

	// Wait beyond debounce period - callback should NOT fire
	time.Sleep(500 * time.Millisecond)
	assert.Empty(t, rec.snapshot(), "No callbacks should fire while paused")

	w.Resume()
	rec.wait(t, 500*time.Millisecond)
	assert.Contains(t, rec.snapshot(), "paused.py")
}

func TestFileWatcher_DirectoryAdded(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, rec := startWatcher(t, root, Options{Accept: pyOnly})

	newDir := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(newDir, 0755))
	time.Sleep(300 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(newDir, "mod.py"), []byte("pass\n"), 0644))

	rec.wait(t, 2*time.Second)
	assert.Contains(t, rec.snapshot(), "pkg/mod.py")
}

func TestFileWatcher_Filtering(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "node_modules"), 0755))

	_, rec := startWatcher(t, root, Options{
		Accept:  pyOnly,
		SkipDir: func(rel string) bool { return rel == "node_modules" },
	})

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "dep.py"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.py"), []byte("x"), 0644))

	rec.wait(t, 2*time.Second)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, []string{"main.py"}, rec.snapshot())
}

func TestFileWatcher_StopCleanup(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher(t.TempDir(), Options{})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), func([]string) {}))
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	require.NoError(t, w.Stop())
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	// Calling Stop() again should be safe
	require.NoError(t, w.Stop())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Stop()
		}()
	}
	wg.Wait()
}

func TestFileWatcher_ContextCancellation(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher(t.TempDir(), Options{})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, func([]string) {}))
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	cancel()

	fw := w.(*fileWatcher)
	<-fw.doneCh
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
