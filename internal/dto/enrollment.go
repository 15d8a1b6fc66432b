package dto

// CourseActionRequest names the course for check, enroll and withdraw calls.
type CourseActionRequest struct {
	CourseCode string `json:"course_code" validate:"required"`
}
