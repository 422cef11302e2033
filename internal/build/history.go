package build

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docbundle/internal/eventstore"
	"git.home.luguber.info/inful/docbundle/internal/logfields"
)

// record appends a history event. History is best effort and never fails a build.
func (b *Builder) record(ctx context.Context, buildID, eventType string, payload any) {
	if b.history == nil {
		return
	}
	if err := eventstore.Record(ctx, b.history, buildID, eventType, payload); err != nil {
		slog.Warn("Failed to record build history", logfields.BuildID(buildID), logfields.Error(err))
	}
}

// stageTimer returns a function that observes the time since the previous
// call under the given stage name.
func (b *Builder) stageTimer() func(stage string) {
	last := time.Now()
	return func(stage string) {
		now := time.Now()
		b.recorder.ObserveStageDuration(stage, now.Sub(last))
		slog.Debug("Stage finished", logfields.Stage(stage), logfields.DurationMS(float64(now.Sub(last).Microseconds())/1000))
		last = now
	}
}
