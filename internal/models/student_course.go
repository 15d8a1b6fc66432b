package models

import "time"

// StudentCourseStatus tracks where a course sits in a student's record.
type StudentCourseStatus string

const (
	StudentCourseApproved   StudentCourseStatus = "APPROVED"
	StudentCourseInProgress StudentCourseStatus = "IN_PROGRESS"
	StudentCourseCancelled  StudentCourseStatus = "CANCELLED"
)

// StudentCourse is one row of a student's academic record.
type StudentCourse struct {
	UserID     string              `db:"user_id" json:"user_id"`
	CourseCode string              `db:"course_code" json:"course_code"`
	Status     StudentCourseStatus `db:"status" json:"status"`
	UpdatedAt  time.Time           `db:"updated_at" json:"updated_at"`
}

// StudentCourseDetail joins a record row with catalog data.
type StudentCourseDetail struct {
	StudentCourse
	Name    string `db:"name" json:"name"`
	Credits int    `db:"credits" json:"credits"`
}
