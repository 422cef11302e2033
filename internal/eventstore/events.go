package eventstore

import (
	"context"
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/docbundle/internal/foundation/errors"
)

// Event type names.
const (
	TypeBuildStarted   = "build.started"
	TypeBuildCompleted = "build.completed"
	TypeBuildFailed    = "build.failed"
	TypeBuildSkipped   = "build.skipped"
)

// BuildStartedPayload describes a build as it begins.
type BuildStartedPayload struct {
	Mode     string `json:"mode"`
	Trigger  string `json:"trigger,omitempty"` // cli, watch, schedule
	Revision string `json:"revision,omitempty"`
}

// BuildCompletedPayload carries the build report numbers.
type BuildCompletedPayload struct {
	Full       bool     `json:"full"`
	Added      int      `json:"added"`
	Modified   int      `json:"modified"`
	Removed    int      `json:"removed"`
	Rendered   int      `json:"rendered"`
	CacheHits  int      `json:"cache_hits"`
	Documents  int      `json:"documents"`
	Folders    []string `json:"folders,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// BuildFailedPayload records why a build stopped.
type BuildFailedPayload struct {
	Stage      string `json:"stage,omitempty"`
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}

// BuildSkippedPayload records a build that found nothing to do.
type BuildSkippedPayload struct {
	Documents int `json:"documents"`
}

// NewEvent builds an unsaved event with a JSON payload.
func NewEvent(buildID, eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, errors.HistoryError("failed to marshal event payload").
			WithCause(err).
			WithContext("build_id", buildID).
			WithContext("event_type", eventType).
			Build()
	}
	return Event{
		BuildID:   buildID,
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   data,
	}, nil
}

// Record marshals payload and appends it to store.
func Record(ctx context.Context, store Store, buildID, eventType string, payload any) error {
	ev, err := NewEvent(buildID, eventType, payload)
	if err != nil {
		return err
	}
	if err := store.Append(ctx, ev.BuildID, ev.Type, ev.Payload, ev.Metadata); err != nil {
		return errors.HistoryError("failed to append event").
			WithCause(err).
			WithContext("build_id", buildID).
			WithContext("event_type", eventType).
			Build()
	}
	return nil
}
