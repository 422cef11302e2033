// Package eventstore records build history as append-only events in SQLite
// and folds them into per-build summaries for the history command.
package eventstore

import (
	"context"
	"time"
)

// Store persists build events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, buildID, eventType string, payload []byte, metadata map[string]string) error

	// GetByBuildID returns a build's events in insertion order.
	GetByBuildID(ctx context.Context, buildID string) ([]Event, error)

	// GetRange returns events with start <= timestamp <= end.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Recent returns summaries of the n most recent builds, newest first.
	Recent(ctx context.Context, n int) ([]BuildSummary, error)

	Close() error
}
