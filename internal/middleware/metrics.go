package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Metrics records per-route HTTP traffic. Payment gateway calls are slow
// relative to catalog reads, so the duration buckets reach 30s.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	gatherer prometheus.Gatherer
}

// NewMetrics registers the HTTP collectors under namespace with reg, or with
// the default registry when reg is nil.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	labels := []string{"method", "path", "status"}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status.",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route and status.",
			Buckets:   durationBuckets,
		}, labels),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		gatherer: prometheus.DefaultGatherer,
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	reg.MustRegister(m.requests, m.duration, m.inFlight)
	return m
}

// Middleware observes each request once the handler returns. It must run
// inside the mux so r.Pattern names the matched route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		labels := prometheus.Labels{
			"method": r.Method,
			"path":   routeLabel(r),
			"status": strconv.Itoa(sw.status),
		}
		m.requests.With(labels).Inc()
		m.duration.With(labels).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry the collectors were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return normalizePath(r.URL.Path)
	}
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

// normalizePath collapses uuids and Razorpay ids (pay_, order_, rfnd_) to
// :id so unmatched paths cannot blow up label cardinality.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := uuid.Parse(seg); err == nil || hasGatewayPrefix(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func hasGatewayPrefix(seg string) bool {
	for _, p := range []string{"pay_", "order_", "rfnd_"} {
		if strings.HasPrefix(seg, p) {
			return true
		}
	}
	return false
}
