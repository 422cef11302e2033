package commands

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docbundle/internal/build"
	"git.home.luguber.info/inful/docbundle/internal/config"
	"git.home.luguber.info/inful/docbundle/internal/eventstore"
	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/loader"
	"git.home.luguber.info/inful/docbundle/internal/metrics"
	"git.home.luguber.info/inful/docbundle/internal/notify"
	"git.home.luguber.info/inful/docbundle/internal/retry"
)

// app bundles the long-lived collaborators of a command.
type app struct {
	builder  *build.Builder
	history  eventstore.Store
	notifier notify.Notifier
}

func (a *app) Close() {
	if a.builder != nil {
		_ = a.builder.Close()
	}
	if a.history != nil {
		_ = a.history.Close()
	}
	if a.notifier != nil {
		_ = a.notifier.Close()
	}
}

// newApp wires history, notifications and the builder from cfg.
func newApp(cfg *config.Config, recorder metrics.Recorder, opts ...build.Option) (*app, error) {
	a := &app{}

	history, err := openHistory(cfg)
	if err != nil {
		return nil, err
	}
	a.history = history

	notifier, err := notify.New(cfg.Notify.NATSURL, cfg.Notify.Subject)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.notifier = notifier

	all := []build.Option{build.WithNotifier(notifier)}
	if recorder != nil {
		all = append(all, build.WithRecorder(recorder))
	}
	if history != nil {
		all = append(all, build.WithHistory(history))
	}
	b, err := build.New(cfg, append(all, opts...)...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.builder = b
	return a, nil
}

// openHistory opens the build history database, or returns nil when
// build.history_db is empty.
func openHistory(cfg *config.Config) (eventstore.Store, error) {
	if cfg.Build.HistoryDB == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Build.HistoryDB), 0o750); err != nil {
		return nil, ferrors.FileSystemError("failed to create history directory").
			WithCause(err).
			WithContext("path", cfg.Build.HistoryDB).
			Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.Build.HistoryDB)
	if err != nil {
		return nil, ferrors.HistoryError("failed to open build history").
			WithCause(err).
			WithContext("path", cfg.Build.HistoryDB).
			Build()
	}
	return store, nil
}

// artifactSource returns where published artifacts are read from:
// server.remote_base_url when set, otherwise the local artifacts directory.
func artifactSource(cfg *config.Config) (loader.Source, error) {
	if cfg.Server.RemoteBaseURL != "" {
		src, err := loader.NewHTTPSource(cfg.Server.RemoteBaseURL, nil,
			loader.WithRetry(retry.FromConfig(cfg.Server.RemoteRetry)))
		if err != nil {
			return nil, ferrors.ConfigError("invalid server.remote_base_url").WithCause(err).Build()
		}
		return src, nil
	}
	return loader.DirSource{Dir: cfg.Server.ArtifactsDir(cfg.Output)}, nil
}

// subscribeInvalidation drops the loader cache whenever another process
// announces a new build.
func subscribeInvalidation(ctx context.Context, n notify.Notifier, l *loader.Loader) error {
	return n.Subscribe(ctx, func(notify.UpdateEvent) { l.Invalidate() })
}
