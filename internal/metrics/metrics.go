// Package metrics exposes Prometheus metrics for link processing and the
// HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/brizzai/tigoplanes/internal/deeplink"
	"github.com/brizzai/tigoplanes/internal/reconcile"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tigoplanes"

// Collector records link outcomes and HTTP traffic.
type Collector struct {
	linksIgnored   prometheus.Counter
	linkDuplicates *prometheus.CounterVec
	linkRuns       *prometheus.CounterVec
	linkLatency    *prometheus.HistogramVec
	authEvents     *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInflight prometheus.Gauge

	gatherer prometheus.Gatherer
}

var _ reconcile.Recorder = (*Collector)(nil)

// NewCollector creates a Collector registered on reg.
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		linksIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_ignored_total",
			Help:      "Delivered links that were not authentication links.",
		}),
		linkDuplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_duplicate_total",
			Help:      "Authentication links dropped as duplicates.",
		}, []string{"scope"}),
		linkRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_processed_total",
			Help:      "Authentication links processed, by intake kind and terminal state.",
		}, []string{"kind", "state"}),
		linkLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "link_processing_seconds",
			Help:      "Time from classification to terminal state.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Session changes seen by observers.",
		}, []string{"event"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "HTTP requests currently being served.",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		c.linksIgnored,
		c.linkDuplicates,
		c.linkRuns,
		c.linkLatency,
		c.authEvents,
		c.httpRequests,
		c.httpDuration,
		c.httpInflight,
	)
	return c
}

func (c *Collector) LinkIgnored() {
	c.linksIgnored.Inc()
}

func (c *Collector) LinkDuplicate(crossScreen bool) {
	scope := "screen"
	if crossScreen {
		scope = "process"
	}
	c.linkDuplicates.WithLabelValues(scope).Inc()
}

func (c *Collector) RunFinished(kind deeplink.Kind, state reconcile.State, took time.Duration) {
	c.linkRuns.WithLabelValues(string(kind), string(state)).Inc()
	c.linkLatency.WithLabelValues(string(kind)).Observe(took.Seconds())
}

// AuthEvent counts one session change.
func (c *Collector) AuthEvent(event string) {
	c.authEvents.WithLabelValues(event).Inc()
}

// Handler serves the registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Instrument is a chi middleware counting requests by route pattern, so path
// parameters do not explode the label space.
func (c *Collector) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.httpInflight.Inc()
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			c.httpInflight.Dec()
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		}()
		next.ServeHTTP(rec, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Flush keeps server-sent events working through the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
