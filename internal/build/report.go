package build

import (
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docbundle/internal/logfields"
	"git.home.luguber.info/inful/docbundle/internal/manifest"
)

// Report summarizes one build.
type Report struct {
	BuildID   string        `json:"build_id"`
	Mode      manifest.Mode `json:"mode"`
	Full      bool          `json:"full"`
	Skipped   bool          `json:"skipped"`
	Added     int           `json:"added"`
	Modified  int           `json:"modified"`
	Removed   int           `json:"removed"`
	Rendered  int           `json:"rendered"`
	CacheHits int           `json:"cache_hits"`
	Excluded  int           `json:"excluded"`
	Documents int           `json:"documents"`
	// Folders lists the content chunks written (folders mode).
	Folders      []string      `json:"folders,omitempty"`
	BytesWritten int64         `json:"bytes_written"`
	Revision     string        `json:"revision,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Changes is the number of added, modified and removed documents.
func (r *Report) Changes() int {
	return r.Added + r.Modified + r.Removed
}

// LogValue implements slog.LogValuer.
func (r *Report) LogValue() slog.Value {
	return slog.GroupValue(
		logfields.BuildID(r.BuildID),
		logfields.Mode(string(r.Mode)),
		slog.Bool("full", r.Full),
		slog.Bool("skipped", r.Skipped),
		slog.Int("added", r.Added),
		slog.Int("modified", r.Modified),
		slog.Int("removed", r.Removed),
		slog.Int("rendered", r.Rendered),
		slog.Int("cache_hits", r.CacheHits),
		slog.Int("documents", r.Documents),
		logfields.DurationMS(float64(r.Duration.Microseconds())/1000),
	)
}
