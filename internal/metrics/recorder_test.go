package metrics

import "time"

// testRecorder counts calls; it doubles as a compile-time check that the
// interface stays implementable outside this package's concrete types.
type testRecorder struct {
	stages   map[string]int
	outcomes map[BuildOutcome]int
}

func (t *testRecorder) ObserveStageDuration(stage string, _ time.Duration) { t.stages[stage]++ }
func (t *testRecorder) ObserveBuildDuration(time.Duration)                 {}
func (t *testRecorder) IncBuildOutcome(o BuildOutcome)                     { t.outcomes[o]++ }
func (t *testRecorder) AddDocsRendered(int)                                {}
func (t *testRecorder) AddRenderCache(int, int)                            {}
func (t *testRecorder) AddArtifactBytes(int64)                             {}
func (t *testRecorder) IncLoaderCache(bool)                                {}
func (t *testRecorder) ObserveHTTPRequest(string, int, time.Duration)      {}

var (
	_ Recorder = (*testRecorder)(nil)
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)
