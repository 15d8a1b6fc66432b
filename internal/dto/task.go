package dto

import "github.com/noah-isme/uniplanner-api/internal/models"

// CreateTaskRequest registers coursework. DeadlineDate is YYYY-MM-DD and the
// optional DeadlineTime is HH:MM in the planner timezone.
type CreateTaskRequest struct {
	CourseCode     string          `json:"course_code" validate:"required"`
	Title          string          `json:"title" validate:"required,max=200"`
	Description    string          `json:"description" validate:"max=2000"`
	Kind           models.TaskKind `json:"kind" validate:"omitempty,oneof=ASSIGNMENT EXAM PROJECT READING PRESENTATION QUIZ"`
	DeadlineDate   string          `json:"deadline_date" validate:"required"`
	DeadlineTime   string          `json:"deadline_time"`
	EstimatedHours float64         `json:"estimated_hours" validate:"required,gt=0,lte=500"`
	Difficulty     int             `json:"difficulty" validate:"required,min=1,max=5"`
}

// UpdateProgressRequest sets the completion percentage of a task.
type UpdateProgressRequest struct {
	CompletionPercent *int `json:"completion_percent" validate:"required,min=0,max=100"`
}
