package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docbundle/internal/build"
)

type fakeBuilder struct {
	runs  atomic.Int32
	delay time.Duration
	skip  bool

	mu       sync.Mutex
	inFlight int
	maxSeen  int
}

func (f *fakeBuilder) Run(ctx context.Context) (*build.Report, error) {
	f.mu.Lock()
	f.inFlight++
	f.maxSeen = max(f.maxSeen, f.inFlight)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	f.runs.Add(1)
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &build.Report{Skipped: f.skip}, nil
}

func startWatcher(t *testing.T, dir string, b Builder, opts Options) {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = 20 * time.Millisecond
	}
	w, err := New(dir, b, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	select {
	case <-w.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher not ready")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcher_RebuildsAndNotifies(t *testing.T) {
	dir := t.TempDir()
	b := &fakeBuilder{}
	var built atomic.Int32
	startWatcher(t, dir, b, Options{OnBuilt: func(*build.Report) { built.Add(1) }})

	writeFile(t, filepath.Join(dir, "index.md"), "# Hi")
	require.Eventually(t, func() bool { return built.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	b := &fakeBuilder{}
	startWatcher(t, dir, b, Options{Debounce: 150 * time.Millisecond})

	for i := range 5 {
		writeFile(t, filepath.Join(dir, "doc.md"), "v"+string(rune('0'+i)))
	}
	require.Eventually(t, func() bool { return b.runs.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), b.runs.Load())
}

func TestWatcher_SingleInFlight(t *testing.T) {
	dir := t.TempDir()
	b := &fakeBuilder{delay: 200 * time.Millisecond}
	startWatcher(t, dir, b, Options{Debounce: 10 * time.Millisecond})

	writeFile(t, filepath.Join(dir, "a.md"), "a")
	require.Eventually(t, func() bool { return b.runs.Load() == 1 }, 5*time.Second, 5*time.Millisecond)
	// Several debounced triggers while the first build is running collapse
	// into one follow-up.
	for _, name := range []string{"b.md", "c.md", "d.md"} {
		writeFile(t, filepath.Join(dir, name), name)
		time.Sleep(30 * time.Millisecond)
	}
	require.Eventually(t, func() bool { return b.runs.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(2), b.runs.Load())

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, 1, b.maxSeen)
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	b := &fakeBuilder{}
	startWatcher(t, dir, b, Options{})

	sub := filepath.Join(dir, "guide")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool { return b.runs.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	writeFile(t, filepath.Join(sub, "intro.md"), "# Intro")
	require.Eventually(t, func() bool { return b.runs.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresIrrelevantChanges(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "public")
	require.NoError(t, os.Mkdir(out, 0o755))
	b := &fakeBuilder{}
	startWatcher(t, dir, b, Options{Extensions: []string{".md"}, Ignore: []string{out}})

	writeFile(t, filepath.Join(dir, ".index.md.swp"), "x")
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	writeFile(t, filepath.Join(out, "manifest.json"), "{}")
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, b.runs.Load())
}

func TestWatcher_SkippedBuildDoesNotNotify(t *testing.T) {
	dir := t.TempDir()
	b := &fakeBuilder{skip: true}
	var built atomic.Int32
	startWatcher(t, dir, b, Options{OnBuilt: func(*build.Report) { built.Add(1) }})

	writeFile(t, filepath.Join(dir, "index.md"), "# Hi")
	require.Eventually(t, func() bool { return b.runs.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, built.Load())
}

func TestShouldIgnoreEvent(t *testing.T) {
	assert.True(t, shouldIgnoreEvent("/docs/.hidden.md"))
	assert.True(t, shouldIgnoreEvent("/docs/index.md~"))
	assert.True(t, shouldIgnoreEvent("/docs/index.md.swp"))
	assert.True(t, shouldIgnoreEvent("/docs/#index.md#"))
	assert.False(t, shouldIgnoreEvent("/docs/index.md"))
}

func TestNew_RequiresBuilder(t *testing.T) {
	_, err := New(t.TempDir(), nil, Options{})
	assert.Error(t, err)
}
