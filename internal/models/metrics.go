package models

import "time"

// SystemMetrics is a JSON snapshot of in-process counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ValidationsTotal         uint64    `json:"validations_total"`
	IssuesTotal              uint64    `json:"issues_total"`
	SuggestionsTotal         uint64    `json:"suggestions_total"`
	FixesApplied             uint64    `json:"fixes_applied"`
	FixesFailed              uint64    `json:"fixes_failed"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
