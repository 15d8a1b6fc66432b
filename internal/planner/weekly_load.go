package planner

import (
	"sort"
	"time"

	"github.com/noah-isme/uniplanner-api/internal/models"
)

// WeekLoad is the summed estimate of tasks due within one ISO week.
type WeekLoad struct {
	WeekStart  time.Time `json:"week_start"`
	ISOYear    int       `json:"iso_year"`
	ISOWeek    int       `json:"iso_week"`
	TotalHours float64   `json:"total_hours"`
	TaskCount  int       `json:"task_count"`
}

// WeeklyLoad buckets tasks by the ISO week of their deadline, evaluated in
// loc (UTC when nil). Weeks without tasks are omitted and the result is
// ordered by week start.
func WeeklyLoad(tasks []models.Task, loc *time.Location) []WeekLoad {
	if loc == nil {
		loc = time.UTC
	}
	type isoWeek struct{ year, week int }
	buckets := make(map[isoWeek]*WeekLoad)
	for _, task := range tasks {
		deadline := task.Deadline.In(loc)
		year, week := deadline.ISOWeek()
		key := isoWeek{year: year, week: week}
		bucket, ok := buckets[key]
		if !ok {
			bucket = &WeekLoad{WeekStart: weekStart(deadline), ISOYear: year, ISOWeek: week}
			buckets[key] = bucket
		}
		bucket.TotalHours += task.EstimatedHours
		bucket.TaskCount++
	}

	result := make([]WeekLoad, 0, len(buckets))
	for _, bucket := range buckets {
		result = append(result, *bucket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].WeekStart.Before(result[j].WeekStart)
	})
	return result
}

// weekStart returns midnight of the Monday of t's ISO week, in t's location.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	day := startOfDay(t)
	return day.AddDate(0, 0, -offset)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
