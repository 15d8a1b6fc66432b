package models

import "time"

// TaskKind classifies coursework.
type TaskKind string

const (
	TaskKindAssignment   TaskKind = "ASSIGNMENT"
	TaskKindExam         TaskKind = "EXAM"
	TaskKindProject      TaskKind = "PROJECT"
	TaskKindReading      TaskKind = "READING"
	TaskKindPresentation TaskKind = "PRESENTATION"
	TaskKindQuiz         TaskKind = "QUIZ"
)

// Task is a unit of coursework owned by one student.
type Task struct {
	ID                int64      `db:"id" json:"id"`
	UserID            string     `db:"user_id" json:"user_id"`
	CourseCode        string     `db:"course_code" json:"course_code"`
	Title             string     `db:"title" json:"title"`
	Description       string     `db:"description" json:"description"`
	Kind              TaskKind   `db:"kind" json:"kind"`
	Deadline          time.Time  `db:"deadline" json:"deadline"`
	EstimatedHours    float64    `db:"estimated_hours" json:"estimated_hours"`
	Difficulty        int        `db:"difficulty" json:"difficulty"`
	CompletionPercent int        `db:"completion_percent" json:"completion_percent"`
	Completed         bool       `db:"completed" json:"completed"`
	CompletedAt       *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	PendingOnly bool
}
