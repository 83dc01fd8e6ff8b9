// Package metrics provides Prometheus instrumentation for hotserve.
//
// Two groups of metrics live here: the supervisor's own (spawns, restarts,
// watch decisions) and the HTTP metrics of the supervised server. Both are
// registered on DefaultRegistry, which the server exposes on /metrics:
//
//	r.Use(metrics.Middleware())
//	r.HandleFunc("/metrics", metrics.Handler())
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hotserve"

// ─────────────────────────────────────────────
// Supervisor and watch metrics
// ─────────────────────────────────────────────

var (
	// SupervisorSpawns counts every server task started, initial one included.
	SupervisorSpawns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "supervisor",
		Name:      "spawns_total",
		Help:      "Total number of server tasks spawned.",
	})

	// SupervisorRestarts counts restart triggers acted on by the loop.
	SupervisorRestarts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "supervisor",
		Name:      "restarts_total",
		Help:      "Total number of restarts caused by file changes.",
	})

	// SupervisorTaskErrors counts server tasks that ended with an error.
	SupervisorTaskErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "supervisor",
		Name:      "task_errors_total",
		Help:      "Total number of server tasks that failed.",
	})

	// SupervisorState exposes the loop state as its numeric value.
	SupervisorState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "supervisor",
		Name:      "state",
		Help:      "Current supervisor state (0 idle, 1 starting, 2 running, 3 restarting, 4 stopped).",
	})

	// WatchEvents counts filesystem events by debounce decision.
	WatchEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "events_total",
			Help:      "Filesystem events seen by the debounce gate.",
		},
		[]string{"result"}, // "accepted" | "dropped"
	)

	// WatchErrors counts driver errors reported while monitoring.
	WatchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "watch",
		Name:      "errors_total",
		Help:      "Filesystem watcher errors.",
	})

	// WatchForwardFailures counts accepted triggers the supervisor never got.
	WatchForwardFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "watch",
		Name:      "forward_failures_total",
		Help:      "Restart triggers that could not be delivered.",
	})
)

// ─────────────────────────────────────────────
// HTTP metrics
// ─────────────────────────────────────────────

var (
	// RequestDuration tracks how long each HTTP request takes.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts all HTTP requests.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// RequestInFlight tracks how many requests are currently being served.
	RequestInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being served.",
	})
)

// ─────────────────────────────────────────────
// gRPC metrics
// ─────────────────────────────────────────────

var (
	// GRPCHandled counts completed unary RPCs by method and code.
	GRPCHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "handled_total",
			Help:      "Total number of gRPC calls completed by method and code.",
		},
		[]string{"method", "code"},
	)

	// GRPCDuration tracks unary RPC latency.
	GRPCDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "handling_seconds",
			Help:      "Histogram of gRPC response latency in seconds.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method"},
	)
)

// DefaultRegistry is the Prometheus registry served on /metrics.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(collectors.NewGoCollector())
	DefaultRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	DefaultRegistry.MustRegister(
		SupervisorSpawns,
		SupervisorRestarts,
		SupervisorTaskErrors,
		SupervisorState,
		WatchEvents,
		WatchErrors,
		WatchForwardFailures,
		RequestDuration,
		RequestTotal,
		RequestInFlight,
		GRPCHandled,
		GRPCDuration,
	)
}

// Register adds a collector to DefaultRegistry.
func Register(c prometheus.Collector) error {
	return DefaultRegistry.Register(c)
}

// ─────────────────────────────────────────────
// HTTP middleware
// ─────────────────────────────────────────────

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records duration, count and in-flight gauge for every request.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := r.URL.Path

			RequestInFlight.Inc()
			defer RequestInFlight.Dec()

			rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rr, r)

			// Label by route pattern so path parameters do not explode cardinality.
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}

			status := strconv.Itoa(rr.status)
			RequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
			RequestTotal.WithLabelValues(r.Method, path, status).Inc()
		})
	}
}

// Handler exposes DefaultRegistry in the Prometheus text and OpenMetrics
// formats.
func Handler() http.HandlerFunc {
	h := promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	return h.ServeHTTP
}
