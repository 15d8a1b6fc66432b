package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uniplanner-api/internal/models"
)

const taskColumns = `id, user_id, course_code, title, description, kind, deadline, estimated_hours, difficulty, completion_percent, completed, completed_at, created_at, updated_at`

// TaskRepository persists student coursework.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a task repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task and fills its generated id.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	const query = `
INSERT INTO tasks (user_id, course_code, title, description, kind, deadline, estimated_hours, difficulty, completion_percent, completed, completed_at, created_at, updated_at)
VALUES (:user_id, :course_code, :title, :description, :kind, :deadline, :estimated_hours, :difficulty, :completion_percent, :completed, :completed_at, :created_at, :updated_at)
RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, task)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&task.ID); err != nil {
			return fmt.Errorf("scan task id: %w", err)
		}
	}
	return rows.Err()
}

// ListByUser returns a student's tasks ordered by deadline.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string, filter models.TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	if filter.PendingOnly {
		query += ` AND completed = FALSE`
	}
	query += ` ORDER BY deadline ASC, id ASC`

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, userID); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// FindByID returns a task scoped to its owner. Tasks of other users look missing.
func (r *TaskRepository) FindByID(ctx context.Context, userID string, id int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// UpdateProgress stores completion fields of a task.
func (r *TaskRepository) UpdateProgress(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tasks SET completion_percent = $3, completed = $4, completed_at = $5, updated_at = $6
WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, task.ID, task.UserID, task.CompletionPercent, task.Completed, task.CompletedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update task progress: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a task owned by userID.
func (r *TaskRepository) Delete(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
