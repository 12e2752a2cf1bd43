package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the BFF.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	insightsTotal   *prometheus.CounterVec
	staleDiscards   prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fintrack_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		insightsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_insights_total",
				Help: "Total insight requests by outcome.",
			},
			[]string{"outcome"},
		),
		staleDiscards: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fintrack_stale_results_discarded_total",
				Help: "Results discarded by the last-request-wins policy.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrInsight increments the insight outcome counter ("generated" or
// "fallback").
func (m *Metrics) IncrInsight(outcome string) {
	m.insightsTotal.WithLabelValues(outcome).Inc()
}

// IncrStaleDiscard counts a result dropped by last-request-wins.
func (m *Metrics) IncrStaleDiscard() {
	m.staleDiscards.Inc()
}

// GetInsightSnapshot returns a snapshot of insight-related metrics suitable
// for the GET /v1/metrics/insights endpoint.
func (m *Metrics) GetInsightSnapshot() *domain.InsightMetrics {
	generated := getCounterValue(m.insightsTotal, "generated")
	fallback := getCounterValue(m.insightsTotal, "fallback")
	total := generated + fallback

	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	cacheHits := getCounterValue(m.cacheHits, "insights")
	cacheMisses := getCounterValue(m.cacheMisses, "insights")

	fallbackRate := float64(0)
	avgTokens := float64(0)
	cacheHitRate := float64(0)

	if total > 0 {
		fallbackRate = fallback / total
		avgTokens = (promptTokens + completionTokens) / total
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.InsightMetrics{
		TotalRequests:       int64(total),
		FallbackRate:        fallbackRate,
		CacheHitRate:        cacheHitRate,
		AvgTokensPerRequest: avgTokens,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
