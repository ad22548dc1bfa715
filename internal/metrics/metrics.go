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
			Namespace: "clinicgraph",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicgraph",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clinicgraph",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	crawlFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicgraph",
			Subsystem: "crawler",
			Name:      "fetches_total",
			Help:      "Total number of crawler page fetches.",
		},
		[]string{"result"},
	)

	llmCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicgraph",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total number of LLM completion calls.",
		},
		[]string{"provider", "outcome"},
	)

	llmTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicgraph",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total tokens consumed by LLM calls.",
		},
		[]string{"provider", "kind"},
	)

	llmDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clinicgraph",
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Duration of LLM completion calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~100s
		},
		[]string{"provider"},
	)

	schemaGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicgraph",
			Subsystem: "schema",
			Name:      "documents_total",
			Help:      "Total number of schema generation attempts.",
		},
		[]string{"page_type", "result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		crawlFetches,
		llmCalls,
		llmTokens,
		llmDuration,
		schemaGenerated,
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

// RecordCrawlFetch counts one crawler fetch with its result.
func RecordCrawlFetch(result string) {
	crawlFetches.WithLabelValues(result).Inc()
}

// RecordLLMCall records a completion call with its outcome and token usage.
func RecordLLMCall(provider, outcome string, duration time.Duration, promptTokens, completionTokens int) {
	if provider == "" {
		provider = "unknown"
	}
	llmCalls.WithLabelValues(provider, outcome).Inc()
	if duration > 0 {
		llmDuration.WithLabelValues(provider).Observe(duration.Seconds())
	}
	if promptTokens > 0 {
		llmTokens.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		llmTokens.WithLabelValues(provider, "completion").Add(float64(completionTokens))
	}
}

// RecordSchemaGeneration counts one schema generation attempt.
func RecordSchemaGeneration(pageType, result string) {
	schemaGenerated.WithLabelValues(pageType, result).Inc()
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

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "accounts" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/accounts"
	}
	if len(parts) == 2 {
		return "/accounts/:account"
	}
	return "/accounts/:account/" + parts[2]
}
