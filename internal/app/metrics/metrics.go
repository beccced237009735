package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "worry_service",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worry_service",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "worry_service",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	reactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worry_service",
			Subsystem: "ledger",
			Name:      "reactions_total",
			Help:      "Total number of reaction toggles by kind and direction.",
		},
		[]string{"kind", "direction"},
	)

	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worry_service",
			Subsystem: "ledger",
			Name:      "submissions_total",
			Help:      "Total number of letter and comment submissions by outcome.",
		},
		[]string{"kind", "outcome"},
	)

	levelUpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worry_service",
			Subsystem: "ledger",
			Name:      "level_ups_total",
			Help:      "Total number of level-up attempts by outcome.",
		},
		[]string{"outcome"},
	)

	pointsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worry_service",
			Subsystem: "ledger",
			Name:      "points_applied_total",
			Help:      "Total absolute points moved through the ledger by direction.",
		},
		[]string{"direction"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		reactionsTotal,
		submissionsTotal,
		levelUpsTotal,
		pointsApplied,
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

// RecordReaction counts a toggle that changed membership.
func RecordReaction(kind string, added bool) {
	direction := "removed"
	if added {
		direction = "added"
	}
	reactionsTotal.WithLabelValues(kind, direction).Inc()
}

// RecordSubmission counts a letter or comment submission attempt.
func RecordSubmission(kind, outcome string) {
	submissionsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordLevelUp counts a level-up attempt.
func RecordLevelUp(outcome string) {
	levelUpsTotal.WithLabelValues(outcome).Inc()
}

// RecordPoints counts points moved through the ledger.
func RecordPoints(delta int) {
	if delta == 0 {
		return
	}
	direction := "credit"
	if delta < 0 {
		direction = "debit"
		delta = -delta
	}
	pointsApplied.WithLabelValues(direction).Add(float64(delta))
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

// canonicalPath collapses per-entity path segments so metric labels stay
// low-cardinality.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "worry":
		switch {
		case len(parts) == 1:
			return "/worry"
		case parts[1] == "like":
			return "/worry/like"
		case parts[1] == "dislike":
			return "/worry/dislike"
		case len(parts) == 2:
			return "/worry/:worryId"
		default:
			return "/worry/:worryId/:anonId"
		}
	case "points", "levels", "levelUp":
		return "/" + parts[0] + "/:anonId"
	default:
		return "/" + parts[0]
	}
}
