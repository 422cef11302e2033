// Package watch rebuilds the bundle when the source tree changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docbundle/internal/build"
	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/logfields"
)

// DefaultDebounce is the quiet window after the last change before a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// Builder runs one build.
type Builder interface {
	Run(ctx context.Context) (*build.Report, error)
}

// Options tunes a Watcher.
type Options struct {
	Debounce time.Duration
	// Extensions limits which file changes trigger a rebuild; directories
	// and extension-less paths always do.
	Extensions []string
	// Ignore lists absolute directories (output, cache) never watched.
	Ignore []string
	// OnBuilt runs after every build that wrote new artifacts.
	OnBuilt func(*build.Report)
}

// Watcher watches a source directory recursively.
type Watcher struct {
	dir     string
	builder Builder
	opts    Options

	readyOnce sync.Once
	ready     chan struct{}
}

// New creates a Watcher for dir.
func New(dir string, builder Builder, opts Options) (*Watcher, error) {
	if builder == nil {
		return nil, ferrors.ValidationError("builder is required").Build()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, ferrors.ConfigError("invalid source directory").WithCause(err).WithContext("path", dir).Build()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.OnBuilt == nil {
		opts.OnBuilt = func(*build.Report) {}
	}
	return &Watcher{dir: abs, builder: builder, opts: opts, ready: make(chan struct{})}, nil
}

// Ready is closed once Run has registered its watches.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is done. At most one rebuild runs at a time and
// changes arriving during a rebuild queue exactly one follow-up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.NewError(ferrors.CategoryRuntime, "failed to create file watcher").WithCause(err).Build()
	}
	defer func() { _ = fw.Close() }()

	if err := w.addDirsRecursive(fw, w.dir); err != nil {
		return ferrors.FileSystemError("failed to watch source directory").
			WithCause(err).
			WithContext("path", w.dir).
			Build()
	}

	rebuildReq := make(chan struct{}, 1)
	trigger, stop := debouncer(w.opts.Debounce, rebuildReq)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.rebuildWorker(ctx, rebuildReq)
	}()
	defer wg.Wait()

	w.readyOnce.Do(func() { close(w.ready) })
	slog.Info("Watching for changes", logfields.Path(w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, ev, trigger)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// debouncer returns a trigger that sends on out once no further trigger
// arrived for quiet, and a stop func cancelling any pending send.
func debouncer(quiet time.Duration, out chan<- struct{}) (trigger, stop func()) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	trigger = func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(quiet, func() {
			select {
			case out <- struct{}{}:
			default:
			}
		})
	}
	stop = func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return trigger, stop
}

// rebuildWorker runs builds sequentially; the one-slot request channel
// holds at most one pending rebuild while a build is in flight.
func (w *Watcher) rebuildWorker(ctx context.Context, rebuildReq <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-rebuildReq:
			w.rebuild(ctx)
		}
	}
}

func (w *Watcher) rebuild(ctx context.Context) {
	slog.Info("Change detected; rebuilding")
	report, err := w.builder.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Rebuild failed", logfields.Error(err))
		}
		return
	}
	if report != nil && !report.Skipped {
		w.opts.OnBuilt(report)
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if shouldIgnoreEvent(ev.Name) || w.ignored(ev.Name) {
		return
	}
	isDir := false
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			isDir = true
			if err := w.addDirsRecursive(fw, ev.Name); err != nil {
				slog.Warn("Failed to watch new directory", logfields.Path(ev.Name), logfields.Error(err))
			}
		}
	}
	if !isDir && !w.relevant(ev.Name) {
		return
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func (w *Watcher) relevant(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || len(w.opts.Extensions) == 0 {
		return true
	}
	return slices.Contains(w.opts.Extensions, ext)
}

func (w *Watcher) ignored(name string) bool {
	for _, dir := range w.opts.Ignore {
		if name == dir || strings.HasPrefix(name, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.dir && (strings.HasPrefix(d.Name(), ".") || w.ignored(path)) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// shouldIgnoreEvent reports hidden files and editor temp/swap files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"))
}
