package planner

import (
	"math"
	"time"

	"github.com/noah-isme/uniplanner-api/internal/models"
)

// DefaultUrgentDays is the window used by the urgent view when none is given.
const DefaultUrgentDays = 3

// DefaultRecommendationLimit bounds the recommendation list by default.
const DefaultRecommendationLimit = 5

// Urgent returns pending tasks due within days (overdue included), in rank order.
func Urgent(tasks []models.Task, now time.Time, days int) []ScoredTask {
	if days < 0 {
		days = DefaultUrgentDays
	}
	result := make([]ScoredTask, 0)
	for _, scored := range Rank(pendingOnly(tasks), now) {
		if scored.DaysRemaining <= days {
			result = append(result, scored)
		}
	}
	return result
}

// TopRecommended returns the k highest-priority pending tasks.
func TopRecommended(tasks []models.Task, now time.Time, k int) []ScoredTask {
	if k <= 0 {
		k = DefaultRecommendationLimit
	}
	ranked := Rank(pendingOnly(tasks), now)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Statistics summarises a student's workload and curriculum progress.
type Statistics struct {
	PendingTasks      int     `json:"pending_tasks"`
	CompletedTasks    int     `json:"completed_tasks"`
	OverdueTasks      int     `json:"overdue_tasks"`
	PendingHours      float64 `json:"pending_hours"`
	ApprovedCourses   int     `json:"approved_courses"`
	InProgressCourses int     `json:"in_progress_courses"`
	ApprovedCredits   int     `json:"approved_credits"`
	InProgressCredits int     `json:"in_progress_credits"`
	TotalCredits      int     `json:"total_credits"`
	CompletionPercent float64 `json:"completion_percent"`
}

// Summarize computes Statistics for a task set and enrollment snapshot.
// Completion is the share of catalog credits already approved.
func Summarize(tasks []models.Task, graph *CourseGraph, state *EnrollmentState, now time.Time) Statistics {
	var stats Statistics
	for _, task := range tasks {
		if task.Completed {
			stats.CompletedTasks++
			continue
		}
		stats.PendingTasks++
		stats.PendingHours += task.EstimatedHours * float64(100-task.CompletionPercent) / 100
		if task.Deadline.Before(now) {
			stats.OverdueTasks++
		}
	}
	if graph == nil || state == nil {
		return stats
	}
	for _, course := range graph.Courses() {
		stats.TotalCredits += course.Credits
		switch {
		case state.IsApproved(course.Code):
			stats.ApprovedCourses++
			stats.ApprovedCredits += course.Credits
		case state.IsInProgress(course.Code):
			stats.InProgressCourses++
			stats.InProgressCredits += course.Credits
		}
	}
	if stats.TotalCredits > 0 {
		stats.CompletionPercent = math.Round(float64(stats.ApprovedCredits)/float64(stats.TotalCredits)*10000) / 100
	}
	return stats
}

func pendingOnly(tasks []models.Task) []models.Task {
	pending := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if !task.Completed {
			pending = append(pending, task)
		}
	}
	return pending
}
