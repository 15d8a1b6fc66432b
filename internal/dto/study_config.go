package dto

import "github.com/noah-isme/uniplanner-api/internal/models"

// UpdateStudyConfigRequest replaces a student's study budget.
// DaysOfWeek uses Sunday = 0 numbering; an explicit empty list disables studying.
type UpdateStudyConfigRequest struct {
	StudyMode      models.StudyMode `json:"study_mode" validate:"omitempty,oneof=INTENSIVE MODERATE LIGHT"`
	DailyHours     float64          `json:"daily_hours" validate:"required,gt=0,lte=24"`
	DaysOfWeek     []int            `json:"days_of_week" validate:"required,dive,min=0,max=6"`
	PreferredStart string           `json:"preferred_start"`
	PreferredEnd   string           `json:"preferred_end"`
	BreakMinutes   int              `json:"break_minutes" validate:"min=0,max=240"`
}

// ApplyPresetRequest resets the study budget to a study mode preset.
type ApplyPresetRequest struct {
	StudyMode models.StudyMode `json:"study_mode" validate:"required,oneof=INTENSIVE MODERATE LIGHT"`
}
