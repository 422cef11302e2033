package metrics

import (
	"fmt"
	"log/slog"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler serves reg in the Prometheus exposition format, negotiating
// OpenMetrics when the scraper asks for it. A nil reg serves the default registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
		ErrorLog:          slogErrorLogger{},
	})
}

// slogErrorLogger adapts promhttp's error log to slog.
type slogErrorLogger struct{}

func (slogErrorLogger) Println(v ...any) {
	slog.Warn("Metrics exposition error", slog.String("error", fmt.Sprint(v...)))
}
