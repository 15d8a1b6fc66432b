package planner

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/uniplanner-api/internal/models"
)

const (
	urgencyScale     = 10.0
	overdueCapDays   = 30.0
	difficultyWeight = 0.25
	hoursWeight      = 0.5
)

// ScoredTask pairs a task with its priority at a given instant.
type ScoredTask struct {
	Task          models.Task `json:"task"`
	Score         float64     `json:"score"`
	DaysRemaining int         `json:"days_remaining"`
}

// DaysRemaining returns whole days until the deadline, rounded down, so an
// overdue task yields a negative value.
func DaysRemaining(task models.Task, now time.Time) int {
	return int(math.Floor(task.Deadline.Sub(now).Hours() / 24))
}

// Score computes the priority of a task at now. The value only has meaning
// relative to other scores: it grows as the deadline approaches (and keeps
// growing, capped, once overdue) and with estimated hours and difficulty.
func Score(task models.Task, now time.Time) float64 {
	days := task.Deadline.Sub(now).Hours() / 24
	var urgency float64
	if days >= 0 {
		urgency = urgencyScale / (1 + days)
	} else {
		urgency = urgencyScale + math.Min(-days, overdueCapDays)
	}
	return urgency*(1+difficultyWeight*float64(task.Difficulty)) + hoursWeight*task.EstimatedHours
}

// Rank scores tasks and orders them by descending priority. Equal scores fall
// back to earlier deadline, then higher difficulty, then lower id.
func Rank(tasks []models.Task, now time.Time) []ScoredTask {
	ranked := make([]ScoredTask, 0, len(tasks))
	for _, task := range tasks {
		ranked = append(ranked, ScoredTask{
			Task:          task,
			Score:         Score(task, now),
			DaysRemaining: DaysRemaining(task, now),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return rankBefore(ranked[i], ranked[j])
	})
	return ranked
}

func rankBefore(a, b ScoredTask) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.Task.Deadline.Equal(b.Task.Deadline) {
		return a.Task.Deadline.Before(b.Task.Deadline)
	}
	if a.Task.Difficulty != b.Task.Difficulty {
		return a.Task.Difficulty > b.Task.Difficulty
	}
	return a.Task.ID < b.Task.ID
}
