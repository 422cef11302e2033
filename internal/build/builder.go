package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docbundle/internal/config"
	"git.home.luguber.info/inful/docbundle/internal/docs"
	derrors "git.home.luguber.info/inful/docbundle/internal/docs/errors"
	"git.home.luguber.info/inful/docbundle/internal/eventstore"
	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/gitinfo"
	"git.home.luguber.info/inful/docbundle/internal/incremental"
	"git.home.luguber.info/inful/docbundle/internal/logfields"
	"git.home.luguber.info/inful/docbundle/internal/manifest"
	"git.home.luguber.info/inful/docbundle/internal/markdown"
	"git.home.luguber.info/inful/docbundle/internal/metrics"
	"git.home.luguber.info/inful/docbundle/internal/notify"
	"git.home.luguber.info/inful/docbundle/internal/output"
	"git.home.luguber.info/inful/docbundle/internal/parallel"
	"git.home.luguber.info/inful/docbundle/internal/storage"
)

// Builder converts the configured source tree into artifacts.
type Builder struct {
	cfg         *config.Config
	mode        manifest.Mode
	optionsHash string

	renderer *markdown.Renderer
	store    storage.ObjectStore
	writer   *output.Writer
	recorder metrics.Recorder
	history  eventstore.Store
	notifier notify.Notifier

	force   bool
	trigger string
	now     func() time.Time

	mu sync.Mutex
}

// Option customizes a Builder.
type Option func(*Builder)

// WithStore replaces the render cache store.
func WithStore(s storage.ObjectStore) Option { return func(b *Builder) { b.store = s } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(b *Builder) { b.recorder = r } }

// WithHistory records build events in s.
func WithHistory(s eventstore.Store) Option { return func(b *Builder) { b.history = s } }

// WithNotifier announces finished builds through n.
func WithNotifier(n notify.Notifier) Option { return func(b *Builder) { b.notifier = n } }

// WithForce ignores the previous manifest and rebuilds everything.
func WithForce(force bool) Option { return func(b *Builder) { b.force = force } }

// WithTrigger labels builds in history (cli, watch, schedule).
func WithTrigger(trigger string) Option { return func(b *Builder) { b.trigger = trigger } }

// New creates a Builder. Unless WithStore is given, rendered documents are
// cached on disk under build.cache_dir, or in memory when it is empty.
func New(cfg *config.Config, opts ...Option) (*Builder, error) {
	if cfg == nil {
		return nil, ferrors.ConfigError("config required").Build()
	}

	b := &Builder{
		cfg:         cfg,
		mode:        manifest.Mode(cfg.Output.Mode),
		optionsHash: cfg.OptionsHash(),
		renderer: markdown.NewRenderer(markdown.Options{
			HighlightStyle: cfg.Markdown.HighlightStyle,
			LineNumbers:    cfg.Markdown.LineNumbers,
			UnsafeHTML:     cfg.Markdown.UnsafeHTML,
		}),
		writer:   output.NewWriter(cfg.Output.Directory, cfg.Output.CompressEnabled(), cfg.Output.Pretty),
		recorder: metrics.NoopRecorder{},
		notifier: notify.Noop{},
		trigger:  "cli",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.store == nil {
		if cfg.Build.CacheDir == "" {
			b.store = storage.NewMemoryStore()
		} else {
			fs, err := storage.NewFSStore(filepath.Join(cfg.Build.CacheDir, "render"))
			if err != nil {
				return nil, ferrors.FileSystemError("failed to open render cache").
					WithCause(err).
					WithContext("path", cfg.Build.CacheDir).
					Build()
			}
			b.store = fs
		}
	}
	return b, nil
}

// Close releases the render cache store.
func (b *Builder) Close() error {
	return b.store.Close()
}

// Run executes one build. Concurrent calls are serialized.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := b.now()
	report := &Report{BuildID: uuid.NewString(), Mode: b.mode}
	logger := slog.With(logfields.BuildID(report.BuildID))
	report.Revision = gitinfo.Revision(b.cfg.Source.Directory)

	b.record(ctx, report.BuildID, eventstore.TypeBuildStarted, eventstore.BuildStartedPayload{
		Mode:     string(b.mode),
		Trigger:  b.trigger,
		Revision: report.Revision,
	})

	err := b.run(ctx, logger, report)
	report.Duration = time.Since(start)
	b.recorder.ObserveBuildDuration(report.Duration)

	if err != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = metrics.OutcomeCanceled
		}
		b.recorder.IncBuildOutcome(outcome)
		b.record(context.WithoutCancel(ctx), report.BuildID, eventstore.TypeBuildFailed, eventstore.BuildFailedPayload{
			Error:      err.Error(),
			DurationMS: report.Duration.Milliseconds(),
		})
		logger.Error("Build failed", logfields.Error(err))
		return report, err
	}

	if report.Skipped {
		b.recorder.IncBuildOutcome(metrics.OutcomeSkipped)
		b.record(ctx, report.BuildID, eventstore.TypeBuildSkipped, eventstore.BuildSkippedPayload{Documents: report.Documents})
		logger.Info("Build skipped, nothing changed", logfields.Count(report.Documents))
		return report, nil
	}

	b.recorder.IncBuildOutcome(metrics.OutcomeSuccess)
	b.record(ctx, report.BuildID, eventstore.TypeBuildCompleted, eventstore.BuildCompletedPayload{
		Full:       report.Full,
		Added:      report.Added,
		Modified:   report.Modified,
		Removed:    report.Removed,
		Rendered:   report.Rendered,
		CacheHits:  report.CacheHits,
		Documents:  report.Documents,
		Folders:    report.Folders,
		DurationMS: report.Duration.Milliseconds(),
	})
	logger.Info("Build completed", slog.Any("report", report))
	return report, nil
}

func (b *Builder) run(ctx context.Context, logger *slog.Logger, report *Report) error {
	stage := b.stageTimer()

	files, err := docs.Discover(ctx, b.cfg.Source.Directory, docs.Options{
		Extensions: b.cfg.Source.Extensions,
		Exclude:    b.cfg.Source.Exclude,
	})
	if err != nil {
		if errors.Is(err, derrors.ErrSourceNotFound) {
			return ferrors.ConfigError("source directory not found").
				WithCause(err).
				WithContext("path", b.cfg.Source.Directory).
				Build()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ferrors.FileSystemError("failed to discover documents").
			WithCause(fmt.Errorf("%w: %w", ErrDiscovery, err)).
			Build()
	}
	stage("discover")

	prev, prevContent := b.previousManifest(logger)
	cs := incremental.Detect(prev, files, b.optionsHash, b.mode)
	report.Full = cs.Full
	report.Added, report.Modified, report.Removed = len(cs.Added), len(cs.Modified), len(cs.Removed)
	stage("detect")

	if cs.Empty() {
		report.Skipped = true
		report.Documents = len(prev.Docs)
		return nil
	}

	planned := incremental.Plan(cs, b.mode)
	logger.Info("Rendering documents",
		logfields.Mode(string(b.mode)),
		slog.Bool("full", cs.Full),
		logfields.Count(len(planned)))

	results, err := parallel.Map(ctx, planned, b.cfg.Build.Concurrency, b.renderFile)
	if err != nil {
		return err
	}
	stage("render")

	next, contents, err := b.merge(prev, cs, results, report)
	if err != nil {
		return err
	}
	report.Documents = len(next.Docs)

	written := b.writer.BytesWritten()
	if err := b.write(prev, prevContent, next, cs, contents, report); err != nil {
		return ferrors.FileSystemError("failed to write artifacts").
			WithCause(fmt.Errorf("%w: %w", ErrWrite, err)).
			WithContext("path", b.writer.Dir()).
			Build()
	}
	report.BytesWritten = b.writer.BytesWritten() - written
	b.recorder.AddArtifactBytes(report.BytesWritten)
	stage("write")

	b.collectGarbage(ctx, logger, next)

	if err := b.notifier.Updated(ctx, notify.UpdateEvent{
		BuildID:        next.BuildID,
		GeneratedAt:    next.GeneratedAt,
		Mode:           string(next.Mode),
		ChangedFolders: report.Folders,
		Documents:      report.Documents,
	}); err != nil {
		logger.Warn("Failed to publish update notification", logfields.Error(err))
	}
	return nil
}

// previousManifest returns the last manifest when the artifacts it
// describes are intact, otherwise nil so the build starts over. In single
// mode the previous content is returned too, since incremental writes patch it.
func (b *Builder) previousManifest(logger *slog.Logger) (*manifest.Manifest, manifest.ContentMap) {
	if b.force {
		return nil, nil
	}
	prev, err := b.writer.ReadManifest()
	if err != nil {
		logger.Warn("Previous manifest unreadable, rebuilding everything", logfields.Error(err))
		return nil, nil
	}
	if prev == nil {
		return nil, nil
	}
	if !b.artifactsIntact(prev) {
		logger.Warn("Previous artifacts incomplete, rebuilding everything")
		return nil, nil
	}
	if prev.Mode != manifest.ModeSingle || b.mode != manifest.ModeSingle {
		return prev, nil
	}
	content, err := b.writer.ReadContent()
	if err != nil {
		logger.Warn("Previous content unreadable, rebuilding everything", logfields.Error(err))
		return nil, nil
	}
	for _, d := range prev.Docs {
		if _, ok := content[d.Slug]; !ok {
			logger.Warn("Previous content incomplete, rebuilding everything", logfields.Slug(d.Slug))
			return nil, nil
		}
	}
	return prev, content
}

func (b *Builder) artifactsIntact(m *manifest.Manifest) bool {
	names := []string{manifest.ContentFile}
	if m.Mode == manifest.ModeFolders {
		names = names[:0]
		for _, f := range m.Folders {
			names = append(names, manifest.ChunkFile(f))
		}
	}
	compress := b.cfg.Output.CompressEnabled()
	for _, name := range names {
		if !b.writer.Exists(name) || b.writer.Exists(name+output.GzipSuffix) != compress {
			return false
		}
	}
	if b.writer.Exists(manifest.ManifestFile+output.GzipSuffix) != compress {
		return false
	}
	return true
}

// merge combines carried-over metadata with fresh render results into the
// next manifest and returns the new content records by slug.
func (b *Builder) merge(prev *manifest.Manifest, cs incremental.ChangeSet, results []renderResult, report *Report) (*manifest.Manifest, manifest.ContentMap, error) {
	rerendered := make(map[string]struct{}, len(results))
	for _, r := range results {
		rerendered[r.file.RelPath] = struct{}{}
	}

	var metas []manifest.DocMeta
	for _, d := range cs.Unchanged {
		if _, ok := rerendered[d.Path]; !ok {
			metas = append(metas, d)
		}
	}
	var excluded []manifest.FileStamp
	for _, s := range cs.UnchangedExcluded {
		if _, ok := rerendered[s.Path]; !ok {
			excluded = append(excluded, s)
		}
	}

	contents := make(manifest.ContentMap, len(results))
	rendered, hits := 0, 0
	for _, r := range results {
		if r.excluded {
			excluded = append(excluded, manifest.FileStamp{Path: r.file.RelPath, ModTime: r.file.ModTimeMS(), Size: r.file.Size})
			continue
		}
		rendered++
		if r.cacheHit {
			hits++
		}
		metas = append(metas, r.meta)
		contents[r.meta.Slug] = r.content
	}
	report.Rendered = rendered
	report.CacheHits = hits
	report.Excluded = len(excluded)
	b.recorder.AddDocsRendered(rendered)
	b.recorder.AddRenderCache(hits, rendered-hits)

	owners := make([]docs.SlugOwner, 0, len(metas))
	for _, d := range metas {
		owners = append(owners, docs.SlugOwner{Slug: d.Slug, Path: d.Path})
	}
	if err := docs.CheckUnique(owners); err != nil {
		return nil, nil, ferrors.ValidationError("duplicate document slug").WithCause(err).Build()
	}
	manifest.Sort(metas)

	next := &manifest.Manifest{
		Version:     manifest.Version,
		BuildID:     report.BuildID,
		GeneratedAt: b.now().UTC(),
		Mode:        b.mode,
		OptionsHash: b.optionsHash,
		Revision:    report.Revision,
		Docs:        metas,
		Excluded:    excluded,
	}
	if b.mode == manifest.ModeFolders {
		next.Folders = next.ChunkNames()
	}
	if err := next.Validate(); err != nil {
		return nil, nil, ferrors.InternalError("built manifest is inconsistent").WithCause(err).Build()
	}
	return next, contents, nil
}
