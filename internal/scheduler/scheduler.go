// Package scheduler runs periodic rebuilds for long-lived serve processes.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docbundle/internal/build"
	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/logfields"
)

// Builder runs one build.
type Builder interface {
	Run(ctx context.Context) (*build.Report, error)
}

// Scheduler wraps a gocron scheduler.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// New creates a scheduler. Call Start to begin running jobs.
func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs task every interval. A run still in progress when the
// next one is due causes that run to be skipped, never overlapped.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task func()) (string, error) {
	if interval <= 0 {
		return "", ferrors.ValidationError("interval must be > 0").
			WithContext("interval", interval.String()).
			Build()
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create job %s: %w", name, err)
	}
	return job.ID().String(), nil
}

// SchedulePeriodicBuild rebuilds with b every interval until ctx is done.
// onBuilt runs after builds that wrote new artifacts.
func (s *Scheduler) SchedulePeriodicBuild(ctx context.Context, interval time.Duration, b Builder, onBuilt func(*build.Report)) (string, error) {
	return s.ScheduleEvery("periodic-build", interval, func() {
		if ctx.Err() != nil {
			return
		}
		report, err := b.Run(ctx)
		if err != nil {
			slog.Error("Scheduled build failed", logfields.Error(err))
			return
		}
		if !report.Skipped && onBuilt != nil {
			onBuilt(report)
		}
	})
}
