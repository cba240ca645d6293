package models

import "time"

// DailyRequestCount is one day's created/completed totals.
type DailyRequestCount struct {
	Day       time.Time `db:"day"`
	Created   int       `db:"created"`
	Completed int       `db:"completed"`
}

// SystemMetrics is a lightweight snapshot of runtime counters exposed to
// operational dashboards.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"avg_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
