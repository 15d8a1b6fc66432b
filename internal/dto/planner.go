package dto

import (
	"time"

	"github.com/noah-isme/uniplanner-api/internal/planner"
)

// PlanResponse is the study plan for one student on one day.
type PlanResponse struct {
	Today          string                    `json:"today"`
	Timezone       string                    `json:"timezone"`
	Horizon        planner.Horizon           `json:"horizon"`
	DailyHours     float64                   `json:"daily_hours"`
	Entries        []planner.PlanEntry       `json:"entries"`
	Unscheduled    []planner.UnscheduledTask `json:"unscheduled"`
	UnscheduledIDs []int64                   `json:"unscheduled_ids"`
	ScheduledHours float64                   `json:"scheduled_hours"`
	GeneratedAt    time.Time                 `json:"generated_at"`
}

// WeeklyLoadResponse lists the ISO weeks that have deadlines.
type WeeklyLoadResponse struct {
	Timezone string             `json:"timezone"`
	Weeks    []planner.WeekLoad `json:"weeks"`
}

// RankedTasksResponse carries urgent or recommended tasks in priority order.
type RankedTasksResponse struct {
	AsOf  time.Time            `json:"as_of"`
	Tasks []planner.ScoredTask `json:"tasks"`
}

// StatisticsResponse wraps workload and curriculum statistics.
type StatisticsResponse struct {
	AsOf time.Time `json:"as_of"`
	planner.Statistics
}

// CatalogReloadResponse reports the outcome of an admin catalog reload.
type CatalogReloadResponse struct {
	Courses  int       `json:"courses"`
	LoadedAt time.Time `json:"loaded_at"`
}
