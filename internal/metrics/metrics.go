// Package metrics exposes Prometheus instrumentation for imports, exports
// and HTTP requests.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/leads/internal/core"
)

const namespace = "leads"

// Import outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "nothing_imported"
	OutcomeBusy    = "busy"
	OutcomeError   = "error"
)

// Metrics implements core.Recorder and instruments HTTP handlers.
type Metrics struct {
	registry *prometheus.Registry

	imports        *prometheus.CounterVec
	rowsImported   *prometheus.CounterVec
	rowsFailed     *prometheus.CounterVec
	rowsSkipped    *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
	rowsExported   *prometheus.CounterVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Imports by source and outcome.",
		}, []string{"source", "outcome"}),
		rowsImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_total",
			Help:      "Leads stored by imports.",
		}, []string{"source"}),
		rowsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_failed_total",
			Help:      "Import rows rejected by the database.",
		}, []string{"source"}),
		rowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_skipped_total",
			Help:      "Blank import rows skipped.",
		}, []string{"source"}),
		importDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Import duration.",
			Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 180, 600},
		}, []string{"source"}),
		rowsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exported_total",
			Help:      "Leads written to export files.",
		}, []string{"kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.imports,
		m.rowsImported,
		m.rowsFailed,
		m.rowsSkipped,
		m.importDuration,
		m.rowsExported,
		m.requests,
		m.requestDuration,
	)
	return m
}

// ObserveImport records one finished import attempt.
func (m *Metrics) ObserveImport(source string, res *core.ImportResult, err error) {
	m.imports.WithLabelValues(source, importOutcome(err)).Inc()
	if res == nil {
		return
	}
	m.rowsImported.WithLabelValues(source).Add(float64(res.Created))
	m.rowsFailed.WithLabelValues(source).Add(float64(res.Failed))
	m.rowsSkipped.WithLabelValues(source).Add(float64(res.Skipped))
	if res.Duration > 0 {
		m.importDuration.WithLabelValues(source).Observe(res.Duration.Seconds())
	}
}

func importOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, core.ErrNothingImported):
		return OutcomeEmpty
	case errors.Is(err, core.ErrTooManyImports):
		return OutcomeBusy
	default:
		return OutcomeError
	}
}

// ObserveExport records the rows of one export.
func (m *Metrics) ObserveExport(kind string, rows int) {
	m.rowsExported.WithLabelValues(kind).Add(float64(rows))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests and their latency, labelled by the chi route
// pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
