package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uniplanner-api/internal/models"
)

// StudentCourseRepository persists each student's approved and in-progress courses.
type StudentCourseRepository struct {
	db *sqlx.DB
}

// NewStudentCourseRepository creates a repository instance.
func NewStudentCourseRepository(db *sqlx.DB) *StudentCourseRepository {
	return &StudentCourseRepository{db: db}
}

func (r *StudentCourseRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListActive returns the approved and in-progress rows of a student. Cancelled rows are skipped.
func (r *StudentCourseRepository) ListActive(ctx context.Context, exec sqlx.ExtContext, userID string) ([]models.StudentCourse, error) {
	const query = `SELECT user_id, course_code, status, updated_at FROM student_courses
WHERE user_id = $1 AND status <> 'CANCELLED' ORDER BY course_code ASC`
	var rows []models.StudentCourse
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return rows, nil
}

// ListDetailsByStatus joins a student's rows in status with catalog data.
func (r *StudentCourseRepository) ListDetailsByStatus(ctx context.Context, userID string, status models.StudentCourseStatus) ([]models.StudentCourseDetail, error) {
	const query = `SELECT sc.user_id, sc.course_code, sc.status, sc.updated_at, c.name, c.credits
FROM student_courses sc
JOIN courses c ON c.code = sc.course_code
WHERE sc.user_id = $1 AND sc.status = $2
ORDER BY c.semester ASC, c.code ASC`
	var rows []models.StudentCourseDetail
	if err := r.db.SelectContext(ctx, &rows, query, userID, status); err != nil {
		return nil, fmt.Errorf("list student course details: %w", err)
	}
	return rows, nil
}

// Upsert records status for one course, replacing any previous row.
func (r *StudentCourseRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, userID, courseCode string, status models.StudentCourseStatus) error {
	const query = `INSERT INTO student_courses (user_id, course_code, status, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, course_code) DO UPDATE
SET status = EXCLUDED.status,
    updated_at = EXCLUDED.updated_at`
	if _, err := r.exec(exec).ExecContext(ctx, query, userID, courseCode, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert student course: %w", err)
	}
	return nil
}

// UpsertBatch records the same status for several courses.
func (r *StudentCourseRepository) UpsertBatch(ctx context.Context, exec sqlx.ExtContext, userID string, codes []string, status models.StudentCourseStatus) error {
	for _, code := range codes {
		if err := r.Upsert(ctx, exec, userID, code, status); err != nil {
			return err
		}
	}
	return nil
}
