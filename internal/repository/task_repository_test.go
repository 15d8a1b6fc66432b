package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uniplanner-api/internal/models"
)

var taskRowColumns = []string{"id", "user_id", "course_code", "title", "description", "kind", "deadline", "estimated_hours", "difficulty", "completion_percent", "completed", "completed_at", "created_at", "updated_at"}

func TestTaskCreateReturnsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectQuery("INSERT INTO tasks").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	task := &models.Task{UserID: "u1", CourseCode: "167392", Title: "Lab 3", Kind: models.TaskKindAssignment, Deadline: time.Now().Add(48 * time.Hour), EstimatedHours: 3, Difficulty: 2}
	require.NoError(t, repo.Create(context.Background(), task))
	assert.Equal(t, int64(42), task.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskListPendingOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(taskRowColumns).
		AddRow(int64(1), "u1", "167392", "Lab 3", "", "ASSIGNMENT", now, 3.0, 2, 0, false, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND completed = FALSE ORDER BY deadline ASC, id ASC")).
		WithArgs("u1").
		WillReturnRows(rows)

	tasks, err := repo.ListByUser(context.Background(), "u1", models.TaskFilter{PendingOnly: true})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 3.0, tasks[0].EstimatedHours)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskFindByIDScopedToOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND user_id = $2")).
		WithArgs(int64(9), "u2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "u2", 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskUpdateProgressMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET completion_percent = $3")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateProgress(context.Background(), &models.Task{ID: 9, UserID: "u1", CompletionPercent: 50})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = $1 AND user_id = $2")).
		WithArgs(int64(3), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "u1", 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
