package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/docbundle/internal/build"
	"git.home.luguber.info/inful/docbundle/internal/config"
	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/loader"
	"git.home.luguber.info/inful/docbundle/internal/logfields"
	"git.home.luguber.info/inful/docbundle/internal/metrics"
	"git.home.luguber.info/inful/docbundle/internal/notify"
	"git.home.luguber.info/inful/docbundle/internal/scheduler"
	"git.home.luguber.info/inful/docbundle/internal/server"
	"git.home.luguber.info/inful/docbundle/internal/watch"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Build bool   `help:"Build once before serving"`
	Addr  string `help:"Override server.address"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Server.Address = s.Addr
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return serve(ctx, cfg, serveOptions{initialBuild: s.Build, trigger: "serve"})
}

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Addr string `help:"Override server.address"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if w.Addr != "" {
		cfg.Server.Address = w.Addr
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return serve(ctx, cfg, serveOptions{initialBuild: true, watchSource: true, trigger: "watch"})
}

type serveOptions struct {
	initialBuild bool
	watchSource  bool
	trigger      string
}

func (o serveOptions) needsBuilder(cfg *config.Config) bool {
	return o.initialBuild || o.watchSource || cfg.Server.RebuildInterval > 0
}

// serve runs the HTTP server until ctx is done, optionally building first,
// rebuilding on a schedule and rebuilding on source changes.
func serve(ctx context.Context, cfg *config.Config, opts serveOptions) error {
	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(reg)

	src, err := artifactSource(cfg)
	if err != nil {
		return err
	}
	l := loader.New(src, loader.WithRecorder(recorder))

	var a *app
	if opts.needsBuilder(cfg) {
		if cfg.Server.RemoteBaseURL != "" {
			return ferrors.ConfigError("building while serving requires local artifacts").
				WithContext("field", "server.remote_base_url").
				Build()
		}
		a, err = newApp(cfg, recorder, build.WithTrigger(opts.trigger))
	} else {
		var n notify.Notifier
		n, err = notify.New(cfg.Notify.NATSURL, cfg.Notify.Subject)
		a = &app{notifier: n}
	}
	if err != nil {
		return err
	}
	defer a.Close()

	if err := subscribeInvalidation(ctx, a.notifier, l); err != nil {
		slog.Warn("Update notifications unavailable", logfields.Error(err))
	}
	invalidate := func(*build.Report) { l.Invalidate() }

	if opts.initialBuild {
		if _, err := a.builder.Run(ctx); err != nil {
			return err
		}
		l.Invalidate()
	}

	srv := server.New(cfg.Server.Address, l, server.Options{Recorder: recorder, Registry: reg})
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP server shutdown error", logfields.Error(err))
		}
	}()

	if cfg.Server.RebuildInterval > 0 {
		sched, err := scheduler.New()
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to create scheduler").Build()
		}
		if _, err := sched.SchedulePeriodicBuild(ctx, cfg.Server.RebuildInterval, a.builder, invalidate); err != nil {
			return err
		}
		sched.Start()
		defer func() { _ = sched.Stop() }()
	}

	watchErr := make(chan error, 1)
	if opts.watchSource {
		w, err := watch.New(cfg.Source.Directory, a.builder, watch.Options{
			Extensions: cfg.Source.Extensions,
			Ignore:     generatedDirs(cfg),
			OnBuilt:    invalidate,
		})
		if err != nil {
			return err
		}
		go func() { watchErr <- w.Run(ctx) }()
	}

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
		return nil
	case err := <-watchErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

// generatedDirs lists the absolute directories docbundle writes to, so
// writing artifacts inside the source tree does not retrigger a build.
func generatedDirs(cfg *config.Config) []string {
	var dirs []string
	for _, d := range []string{cfg.Output.Directory, cfg.Build.CacheDir, cfg.Server.ArtifactsDir(cfg.Output)} {
		if d == "" {
			continue
		}
		if abs, err := filepath.Abs(d); err == nil {
			dirs = append(dirs, abs)
		}
	}
	return dirs
}
