// Package metrics provides the build and serving metrics for docbundle.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics never need nil checks:
//
//	builder := build.New(cfg, build.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The Prometheus implementation is activated by the serve and watch commands,
// which also expose the registry on /metrics via HTTPHandler.
package metrics
