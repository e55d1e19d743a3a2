package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/visitlog/internal/logbook"
)

// Metrics holds the collectors served on /metrics. Each instance owns its
// registry so tests can build handlers side by side.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	exports  *prometheus.CounterVec
}

func NewMetrics(book *logbook.Book) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visitlog",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visitlog",
			Name:      "exports_total",
			Help:      "Export attempts by format and outcome.",
		}, []string{"format", "outcome"}),
	}
	m.registry.MustRegister(m.requests, m.exports)

	if book != nil {
		m.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "visitlog",
				Name:      "reports",
				Help:      "Reports currently stored.",
			}, func() float64 { return float64(book.Reports.Len()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "visitlog",
				Name:      "draft_entries",
				Help:      "Entries staged in the draft.",
			}, func() float64 { return float64(book.Draft.Len()) }),
		)
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts every request under its chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	})
}

func (m *Metrics) observeExport(format, outcome string) {
	m.exports.WithLabelValues(format, outcome).Inc()
}
