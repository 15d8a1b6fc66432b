package models

import "time"

// SystemMetrics is a JSON snapshot of in-process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	PlansGenerated           uint64    `json:"plans_generated"`
	AveragePlanDurationMs    float64   `json:"average_plan_duration_ms"`
	UnscheduledTasks         uint64    `json:"unscheduled_tasks"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
