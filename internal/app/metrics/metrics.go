package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vybe_engagement"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	transfers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "transfers_total",
			Help:      "Transfers attempted, by kind and outcome.",
		},
		[]string{"kind", "result"},
	)

	transferAmount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "transfer_amount",
			Help:      "Amount moved by completed transfers.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)

	toggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "toggles_total",
			Help:      "Edge toggles, by relation, direction and whether the edge set changed.",
		},
		[]string{"relation", "op", "changed"},
	)

	comments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comments",
			Name:      "appends_total",
			Help:      "Comment appends, by outcome.",
		},
		[]string{"result"},
	)

	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "counters",
			Name:      "cache_requests_total",
			Help:      "Counter cache lookups, by hit or miss.",
		},
		[]string{"result"},
	)

	reconcileRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "counters",
			Name:      "reconcile_runs_total",
			Help:      "Completed counter reconciliation passes.",
		},
	)

	driftCorrections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "counters",
			Name:      "drift_corrections_total",
			Help:      "Cached counters overwritten by reconciliation, by counter kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		transfers,
		transferAmount,
		toggles,
		comments,
		cacheRequests,
		reconcileRuns,
		driftCorrections,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordTransfer records the outcome of one transfer attempt. amount is only
// observed for successful transfers.
func RecordTransfer(kind, result string, amount float64) {
	if kind == "" {
		kind = "unknown"
	}
	transfers.WithLabelValues(kind, result).Inc()
	if result == "success" && amount > 0 {
		transferAmount.Observe(amount)
	}
}

// RecordToggle records an edge toggle.
func RecordToggle(relation, op string, changed bool) {
	toggles.WithLabelValues(relation, op, strconv.FormatBool(changed)).Inc()
}

// RecordComment records a comment append outcome.
func RecordComment(result string) {
	comments.WithLabelValues(result).Inc()
}

// RecordCacheLookup records a counter cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheRequests.WithLabelValues(result).Inc()
}

// RecordReconcile records a reconciliation pass and its corrections per kind.
func RecordReconcile(corrected map[string]int) {
	reconcileRuns.Inc()
	for kind, n := range corrected {
		driftCorrections.WithLabelValues(kind).Add(float64(n))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// staticSegments are path segments that name routes rather than entities.
var staticSegments = map[string]bool{
	"v1": true, "health": true, "metrics": true, "admin": true,
	"wallet": true, "wallets": true, "transfers": true, "deposit": true, "tips": true,
	"users": true, "follow": true, "followers": true, "following": true, "counts": true,
	"posts": true, "like": true, "likes": true, "comments": true,
	"counters": true, "reconcile": true, "audit": true,
}

// canonicalPath replaces entity ids with ":id" to keep label cardinality
// bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	for i, part := range parts {
		if !staticSegments[part] {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}
