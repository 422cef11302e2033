package metrics

import "time"

// BuildOutcome labels the final status of a build.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeSkipped  BuildOutcome = "skipped"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// Recorder defines the observability hooks used by the build pipeline,
// the artifact loader and the HTTP server.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcome)
	AddDocsRendered(n int)
	AddRenderCache(hits, misses int)
	AddArtifactBytes(n int64)
	IncLoaderCache(hit bool)
	ObserveHTTPRequest(route string, status int, d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)    {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)            {}
func (NoopRecorder) IncBuildOutcome(BuildOutcome)                  {}
func (NoopRecorder) AddDocsRendered(int)                           {}
func (NoopRecorder) AddRenderCache(int, int)                       {}
func (NoopRecorder) AddArtifactBytes(int64)                        {}
func (NoopRecorder) IncLoaderCache(bool)                           {}
func (NoopRecorder) ObserveHTTPRequest(string, int, time.Duration) {}
