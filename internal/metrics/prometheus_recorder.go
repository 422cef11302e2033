package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "docbundle"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	docsRendered  prom.Counter
	renderCache   *prom.CounterVec
	artifactBytes prom.Counter
	loaderCache   *prom.CounterVec
	httpRequests  *prom.CounterVec
	httpDuration  *prom.HistogramVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		docsRendered: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_rendered_total",
			Help:      "Documents converted from Markdown, cache hits included",
		}),
		renderCache: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "render_cache_lookups_total",
			Help:      "Render cache lookups by result",
		}, []string{"result"}),
		artifactBytes: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_bytes_written_total",
			Help:      "Bytes written to artifacts, compressed siblings included",
		}),
		loaderCache: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "loader_cache_lookups_total",
			Help:      "Runtime artifact cache lookups by result",
		}, []string{"result"}),
		httpRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"route", "status"}),
		httpDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prom.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(
		pr.stageDuration, pr.buildDuration, pr.buildOutcome, pr.docsRendered,
		pr.renderCache, pr.artifactBytes, pr.loaderCache, pr.httpRequests, pr.httpDuration,
	)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcome) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddDocsRendered(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.docsRendered.Add(float64(n))
}

func (p *PrometheusRecorder) AddRenderCache(hits, misses int) {
	if p == nil {
		return
	}
	if hits > 0 {
		p.renderCache.WithLabelValues("hit").Add(float64(hits))
	}
	if misses > 0 {
		p.renderCache.WithLabelValues("miss").Add(float64(misses))
	}
}

func (p *PrometheusRecorder) AddArtifactBytes(n int64) {
	if p == nil || n <= 0 {
		return
	}
	p.artifactBytes.Add(float64(n))
}

func (p *PrometheusRecorder) IncLoaderCache(hit bool) {
	if p == nil {
		return
	}
	p.loaderCache.WithLabelValues(hitLabel(hit)).Inc()
}

func (p *PrometheusRecorder) ObserveHTTPRequest(route string, status int, d time.Duration) {
	if p == nil {
		return
	}
	p.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
