package planner

import (
	"fmt"
	"math"
	"time"

	"github.com/noah-isme/uniplanner-api/internal/models"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
)

// DefaultHorizonDays caps how far ahead the allocator looks.
const DefaultHorizonDays = 120

const capacityEpsilon = 1e-9

// UnscheduledReason explains why a task landed in the overflow bucket.
type UnscheduledReason string

const (
	UnscheduledDeadlinePassed  UnscheduledReason = "DEADLINE_PASSED"
	UnscheduledExceedsCapacity UnscheduledReason = "EXCEEDS_DAILY_CAPACITY"
	UnscheduledNoCapacity      UnscheduledReason = "NO_CAPACITY_BEFORE_DEADLINE"
	UnscheduledBeyondHorizon   UnscheduledReason = "BEYOND_HORIZON"
	UnscheduledNoStudyDays     UnscheduledReason = "NO_STUDY_DAYS"
)

// AllocatorOptions tunes a single allocation run.
type AllocatorOptions struct {
	HorizonDays int
}

// PlannedTask is one task block placed on a study day.
type PlannedTask struct {
	TaskID     int64   `json:"task_id"`
	CourseCode string  `json:"course_code"`
	Title      string  `json:"title"`
	Hours      float64 `json:"hours"`
	Score      float64 `json:"score"`
}

// PlanEntry is a study day with at least one task assigned.
type PlanEntry struct {
	Date       string        `json:"date"`
	Tasks      []PlannedTask `json:"tasks"`
	TotalHours float64       `json:"total_hours"`
	Capacity   float64       `json:"capacity"`
}

// UnscheduledTask references a task the allocator could not place.
type UnscheduledTask struct {
	TaskID int64             `json:"task_id"`
	Reason UnscheduledReason `json:"reason"`
}

// Horizon is the inclusive date range the allocator considered.
type Horizon struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Plan is the allocator output. Entries are ordered by date and only cover
// days that received work.
type Plan struct {
	Horizon     Horizon           `json:"horizon"`
	Entries     []PlanEntry       `json:"entries"`
	Unscheduled []UnscheduledTask `json:"unscheduled"`
}

// UnscheduledIDs lists the ids in the overflow bucket in priority order.
func (p *Plan) UnscheduledIDs() []int64 {
	ids := make([]int64, 0, len(p.Unscheduled))
	for _, item := range p.Unscheduled {
		ids = append(ids, item.TaskID)
	}
	return ids
}

// ScheduledHours sums the hours placed across all entries.
func (p *Plan) ScheduledHours() float64 {
	var total float64
	for _, entry := range p.Entries {
		total += entry.TotalHours
	}
	return total
}

type studyDay struct {
	date      time.Time
	remaining float64
	entry     *PlanEntry
}

// Allocate builds a day-by-day study plan. Tasks are taken in priority order
// and each is placed whole on the earliest allowed day on or before its
// deadline date that still has room for it. Completed tasks are ignored.
// Days are evaluated in today's location.
func Allocate(tasks []models.Task, cfg StudyConfiguration, today time.Time, opts AllocatorOptions) (*Plan, error) {
	if math.IsNaN(cfg.DailyHours) || math.IsInf(cfg.DailyHours, 0) || cfg.DailyHours < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "daily hours must not be negative")
	}
	pending := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Completed {
			continue
		}
		if math.IsNaN(task.EstimatedHours) || task.EstimatedHours <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("task %d has non-positive estimated hours", task.ID))
		}
		if task.Difficulty < 1 || task.Difficulty > 5 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("task %d has difficulty outside 1-5", task.ID))
		}
		pending = append(pending, task)
	}

	horizonDays := opts.HorizonDays
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	loc := today.Location()
	start := startOfDay(today)
	capEnd := start.AddDate(0, 0, horizonDays-1)
	end := start
	for _, task := range pending {
		if due := deadlineDate(task, loc); due.After(end) {
			end = due
		}
	}
	if end.After(capEnd) {
		end = capEnd
	}

	plan := &Plan{
		Horizon:     Horizon{Start: formatDate(start), End: formatDate(end)},
		Entries:     []PlanEntry{},
		Unscheduled: []UnscheduledTask{},
	}
	if len(pending) == 0 {
		return plan, nil
	}

	var days []*studyDay
	if cfg.DailyHours > 0 {
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			if cfg.Allows(day.Weekday()) {
				days = append(days, &studyDay{date: day, remaining: cfg.DailyHours})
			}
		}
	}

	for _, scored := range Rank(pending, today) {
		task := scored.Task
		due := deadlineDate(task, loc)
		placed := false
		for _, day := range days {
			if day.date.After(due) {
				break
			}
			if day.remaining+capacityEpsilon < task.EstimatedHours {
				continue
			}
			if day.entry == nil {
				day.entry = &PlanEntry{Date: formatDate(day.date), Tasks: []PlannedTask{}, Capacity: cfg.DailyHours}
			}
			day.entry.Tasks = append(day.entry.Tasks, PlannedTask{
				TaskID:     task.ID,
				CourseCode: task.CourseCode,
				Title:      task.Title,
				Hours:      task.EstimatedHours,
				Score:      scored.Score,
			})
			day.entry.TotalHours += task.EstimatedHours
			day.remaining -= task.EstimatedHours
			placed = true
			break
		}
		if !placed {
			plan.Unscheduled = append(plan.Unscheduled, UnscheduledTask{
				TaskID: task.ID,
				Reason: unscheduledReason(task, cfg, days, start, capEnd, due),
			})
		}
	}

	for _, day := range days {
		if day.entry != nil {
			plan.Entries = append(plan.Entries, *day.entry)
		}
	}
	return plan, nil
}

func unscheduledReason(task models.Task, cfg StudyConfiguration, days []*studyDay, start, capEnd, due time.Time) UnscheduledReason {
	switch {
	case due.Before(start):
		return UnscheduledDeadlinePassed
	case cfg.DailyHours <= 0 || len(cfg.AllowedDays) == 0:
		return UnscheduledNoStudyDays
	case task.EstimatedHours > cfg.DailyHours+capacityEpsilon:
		return UnscheduledExceedsCapacity
	}
	if due.After(capEnd) {
		return UnscheduledBeyondHorizon
	}
	for _, day := range days {
		if !day.date.After(due) {
			return UnscheduledNoCapacity
		}
	}
	return UnscheduledNoStudyDays
}

func deadlineDate(task models.Task, loc *time.Location) time.Time {
	return startOfDay(task.Deadline.In(loc))
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
