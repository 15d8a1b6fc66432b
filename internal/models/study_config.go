package models

import (
	"time"

	"github.com/lib/pq"
)

// StudyMode names one of the registration presets.
type StudyMode string

const (
	StudyModeIntensive StudyMode = "INTENSIVE"
	StudyModeModerate  StudyMode = "MODERATE"
	StudyModeLight     StudyMode = "LIGHT"
)

// StudyConfiguration is the persisted per-student study budget.
// DaysOfWeek uses time.Weekday numbering (Sunday = 0).
type StudyConfiguration struct {
	UserID         string        `db:"user_id" json:"user_id"`
	StudyMode      StudyMode     `db:"study_mode" json:"study_mode"`
	DailyHours     float64       `db:"daily_hours" json:"daily_hours"`
	DaysOfWeek     pq.Int64Array `db:"days_of_week" json:"days_of_week"`
	PreferredStart string        `db:"preferred_start" json:"preferred_start"`
	PreferredEnd   string        `db:"preferred_end" json:"preferred_end"`
	BreakMinutes   int           `db:"break_minutes" json:"break_minutes"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}
