// Package exporters publishes the loop metrics over HTTP and SSE.
package exporters

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler serves the default registry, where every promauto metric
// of this module lives.
func HTTPHandler() http.Handler {
	return NewHTTPHandler(prometheus.DefaultRegisterer, prometheus.DefaultGatherer, nil)
}

// NewHTTPHandler serves g in the Prometheus text or OpenMetrics format and
// counts scrapes on r. Gathering errors are logged and the partial result is
// still served.
func NewHTTPHandler(r prometheus.Registerer, g prometheus.Gatherer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return promhttp.InstrumentMetricHandler(r, promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorLog:          slogPrinter{logger},
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	}))
}

// slogPrinter adapts slog to promhttp.Logger.
type slogPrinter struct {
	logger *slog.Logger
}

func (p slogPrinter) Println(v ...any) {
	p.logger.Warn("Metrics exposition error", "error", fmt.Sprint(v...))
}
