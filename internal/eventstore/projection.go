package eventstore

import (
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docbundle/internal/logfields"
)

// Build statuses reported in summaries.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// BuildSummary is the read model of one build.
type BuildSummary struct {
	BuildID     string        `json:"build_id"`
	Status      string        `json:"status"`
	Mode        string        `json:"mode,omitempty"`
	Trigger     string        `json:"trigger,omitempty"`
	Revision    string        `json:"revision,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Full        bool          `json:"full,omitempty"`
	Rendered    int           `json:"rendered"`
	CacheHits   int           `json:"cache_hits"`
	Documents   int           `json:"documents"`
	Changes     int           `json:"changes"`
	Error       string        `json:"error,omitempty"`
}

// Summarize folds events (in insertion order) into one summary per build,
// newest first. A build's age is the position of its first event.
func Summarize(events []Event) []BuildSummary {
	builds := make(map[string]*BuildSummary)
	var order []string

	for _, ev := range events {
		id := ev.BuildID
		if id == "" {
			continue
		}
		s, ok := builds[id]
		if !ok {
			s = &BuildSummary{BuildID: id, Status: StatusRunning, StartedAt: ev.Timestamp}
			builds[id] = s
			order = append(order, id)
		}
		apply(s, ev)
	}

	out := make([]BuildSummary, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		out = append(out, *builds[order[i]])
	}
	return out
}

func apply(s *BuildSummary, ev Event) {
	finish := func() {
		at := ev.Timestamp
		s.CompletedAt = &at
		if s.Duration == 0 {
			s.Duration = at.Sub(s.StartedAt)
		}
	}

	switch ev.Type {
	case TypeBuildStarted:
		var p BuildStartedPayload
		if decode(ev, &p) {
			s.Mode, s.Trigger, s.Revision = p.Mode, p.Trigger, p.Revision
		}
		s.StartedAt = ev.Timestamp
	case TypeBuildCompleted:
		var p BuildCompletedPayload
		if decode(ev, &p) {
			s.Full = p.Full
			s.Rendered = p.Rendered
			s.CacheHits = p.CacheHits
			s.Documents = p.Documents
			s.Changes = p.Added + p.Modified + p.Removed
			s.Duration = time.Duration(p.DurationMS) * time.Millisecond
		}
		s.Status = StatusCompleted
		finish()
	case TypeBuildFailed:
		var p BuildFailedPayload
		if decode(ev, &p) {
			s.Error = p.Error
			s.Duration = time.Duration(p.DurationMS) * time.Millisecond
		}
		s.Status = StatusFailed
		finish()
	case TypeBuildSkipped:
		var p BuildSkippedPayload
		if decode(ev, &p) {
			s.Documents = p.Documents
		}
		s.Status = StatusSkipped
		finish()
	}
}

func decode(ev Event, v any) bool {
	if err := ev.Decode(v); err != nil {
		slog.Warn("Skipping undecodable history event",
			logfields.BuildID(ev.BuildID),
			slog.String("event_type", ev.Type),
			logfields.Error(err))
		return false
	}
	return true
}
