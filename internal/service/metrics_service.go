package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

// Dry-run cache events recorded by ObserveDryRunEvent.
const (
	DryRunEventCreated   = "created"
	DryRunEventHit       = "hit"
	DryRunEventExpired   = "expired"
	DryRunEventEvicted   = "evicted"
	DryRunEventCommitted = "committed"
	DryRunEventCancelled = "cancelled"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	validatorDuration  *prometheus.HistogramVec
	validatorRuns      *prometheus.CounterVec
	issuesFound        *prometheus.CounterVec
	suggestions        *prometheus.CounterVec
	fixesApplied       *prometheus.CounterVec
	dryRunEvents       *prometheus.CounterVec
	dryRunCacheSize    prometheus.Gauge
	cacheLatency       prometheus.Observer
	cacheWrite         prometheus.Observer
	cacheHitRatio      prometheus.Gauge
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	dbQueryDuration    *prometheus.HistogramVec
	reportJobsFinished *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	validationCount      uint64
	issueCount           uint64
	suggestionCount      uint64
	fixAppliedCount      uint64
	fixFailedCount       uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	validatorDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "validator_duration_seconds",
		Help:    "Time spent in a single validator run",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"validator"})

	validatorRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "validator_runs_total",
		Help: "Validator runs partitioned by outcome",
	}, []string{"validator", "passed"})

	issuesFound := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_issues_total",
		Help: "Validation issues reported by severity",
	}, []string{"severity"})

	suggestions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "remediation_suggestions_total",
		Help: "Remediation suggestions generated by fix type",
	}, []string{"fix_type"})

	fixesApplied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "remediation_fixes_applied_total",
		Help: "Fixes and dry-run changes applied by fix type and outcome",
	}, []string{"fix_type", "outcome"})

	dryRunEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dry_run_session_events_total",
		Help: "Dry-run cache lifecycle events",
	}, []string{"event"})

	dryRunCacheSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dry_run_cached_sessions",
		Help: "Dry-run sessions currently cached",
	})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	reportJobsFinished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_jobs_finished_total",
		Help: "Validation report jobs by final status",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		validatorDuration, validatorRuns, issuesFound, suggestions, fixesApplied,
		dryRunEvents, dryRunCacheSize,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		dbQueryDuration, reportJobsFinished, goroutines,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		validatorDuration:  validatorDuration,
		validatorRuns:      validatorRuns,
		issuesFound:        issuesFound,
		suggestions:        suggestions,
		fixesApplied:       fixesApplied,
		dryRunEvents:       dryRunEvents,
		dryRunCacheSize:    dryRunCacheSize,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		dbQueryDuration:    dbQueryDuration,
		reportJobsFinished: reportJobsFinished,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveValidation records one validator run and the issues it produced.
func (m *MetricsService) ObserveValidation(result models.ValidationResult, duration time.Duration) {
	if m == nil {
		return
	}
	m.validatorDuration.WithLabelValues(result.ValidatorName).Observe(duration.Seconds())
	m.validatorRuns.WithLabelValues(result.ValidatorName, fmt.Sprintf("%t", result.Passed)).Inc()
	for _, issue := range result.Issues {
		m.issuesFound.WithLabelValues(string(issue.Severity)).Inc()
	}
	atomic.AddUint64(&m.validationCount, 1)
	atomic.AddUint64(&m.issueCount, uint64(len(result.Issues)))
}

// ObserveSuggestions counts generated remediation suggestions.
func (m *MetricsService) ObserveSuggestions(suggestions []models.RemediationSuggestion) {
	if m == nil {
		return
	}
	for _, s := range suggestions {
		m.suggestions.WithLabelValues(string(s.FixType)).Inc()
	}
	atomic.AddUint64(&m.suggestionCount, uint64(len(suggestions)))
}

// ObserveFixApplied counts one applied fix or dry-run change.
func (m *MetricsService) ObserveFixApplied(fixType models.RemediationFixType, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
		atomic.AddUint64(&m.fixFailedCount, 1)
	} else {
		atomic.AddUint64(&m.fixAppliedCount, 1)
	}
	m.fixesApplied.WithLabelValues(string(fixType), outcome).Inc()
}

// ObserveDryRunEvent counts a dry-run cache lifecycle event.
func (m *MetricsService) ObserveDryRunEvent(event string) {
	if m == nil {
		return
	}
	m.dryRunEvents.WithLabelValues(event).Inc()
}

// SetDryRunCacheSize publishes the number of cached dry-run sessions.
func (m *MetricsService) SetDryRunCacheSize(size int) {
	if m == nil {
		return
	}
	m.dryRunCacheSize.Set(float64(size))
}

// ObserveReportJob counts a finished report job.
func (m *MetricsService) ObserveReportJob(status models.ReportStatus) {
	if m == nil {
		return
	}
	m.reportJobsFinished.WithLabelValues(string(status)).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// Snapshot returns aggregated counters for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	dbCount := atomic.LoadUint64(&m.dbQueryCount)
	dbDuration := atomic.LoadUint64(&m.dbQueryDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgDBMs float64
	if dbCount > 0 {
		avgDBMs = float64(dbDuration) / float64(dbCount) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		ValidationsTotal:         atomic.LoadUint64(&m.validationCount),
		IssuesTotal:              atomic.LoadUint64(&m.issueCount),
		SuggestionsTotal:         atomic.LoadUint64(&m.suggestionCount),
		FixesApplied:             atomic.LoadUint64(&m.fixAppliedCount),
		FixesFailed:              atomic.LoadUint64(&m.fixFailedCount),
		DBQueryCount:             dbCount,
		AverageDBQueryDurationMs: avgDBMs,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
