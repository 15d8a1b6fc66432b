package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uniplanner-api/internal/dto"
	"github.com/noah-isme/uniplanner-api/internal/models"
	"github.com/noah-isme/uniplanner-api/internal/planner"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
)

type taskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	ListByUser(ctx context.Context, userID string, filter models.TaskFilter) ([]models.Task, error)
	FindByID(ctx context.Context, userID string, id int64) (*models.Task, error)
	UpdateProgress(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, userID string, id int64) error
}

// TaskService manages a student's coursework.
type TaskService struct {
	repo      taskRepository
	catalog   catalogProvider
	refresher plannerRefresher
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// TaskServiceParams groups the collaborators of TaskService.
type TaskServiceParams struct {
	Repo      taskRepository
	Catalog   catalogProvider
	Refresher plannerRefresher
	Validator *validator.Validate
	Logger    *zap.Logger
	Location  *time.Location
}

// NewTaskService constructs a TaskService. Deadlines without a zone are read in Location.
func NewTaskService(params TaskServiceParams) *TaskService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &TaskService{
		repo:      params.Repo,
		catalog:   params.Catalog,
		refresher: params.Refresher,
		validator: validate,
		logger:    logger,
		location:  loc,
		now:       time.Now,
	}
}

// Create registers a task for a catalog course.
func (s *TaskService) Create(ctx context.Context, userID string, req dto.CreateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid task payload")
	}
	code := normalizeCode(req.CourseCode)
	graph, err := s.catalog.Graph()
	if err != nil {
		return nil, err
	}
	if !graph.Has(code) {
		return nil, appErrors.Clone(appErrors.ErrUnknownCourse, fmt.Sprintf("course %s not found", code))
	}
	deadline, err := planner.ParseDeadline(req.DeadlineDate, req.DeadlineTime, s.location)
	if err != nil {
		return nil, err
	}
	kind := req.Kind
	if kind == "" {
		kind = models.TaskKindAssignment
	}

	task := &models.Task{
		UserID:         userID,
		CourseCode:     code,
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		Kind:           kind,
		Deadline:       deadline,
		EstimatedHours: req.EstimatedHours,
		Difficulty:     req.Difficulty,
	}
	if task.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title must not be blank")
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, appErrors.Internal(err, "failed to create task")
	}
	if deadline.Before(s.now()) {
		s.logger.Debug("task created with past deadline", zap.Int64("task_id", task.ID))
	}
	s.refresh(ctx, userID)
	return task, nil
}

// List returns the student's tasks ordered by deadline.
func (s *TaskService) List(ctx context.Context, userID string, pendingOnly bool) ([]models.Task, error) {
	tasks, err := s.repo.ListByUser(ctx, userID, models.TaskFilter{PendingOnly: pendingOnly})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list tasks")
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// Get returns one task owned by the student.
func (s *TaskService) Get(ctx context.Context, userID string, id int64) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Internal(err, "failed to load task")
	}
	return task, nil
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, userID string, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return appErrors.Internal(err, "failed to delete task")
	}
	s.refresh(ctx, userID)
	return nil
}

// UpdateProgress sets the completion percentage. A task is completed exactly
// when it reaches 100 percent.
func (s *TaskService) UpdateProgress(ctx context.Context, userID string, id int64, req dto.UpdateProgressRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid progress payload")
	}
	return s.setProgress(ctx, userID, id, *req.CompletionPercent)
}

// Complete marks a task as done.
func (s *TaskService) Complete(ctx context.Context, userID string, id int64) (*models.Task, error) {
	return s.setProgress(ctx, userID, id, 100)
}

func (s *TaskService) setProgress(ctx context.Context, userID string, id int64, percent int) (*models.Task, error) {
	task, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	task.CompletionPercent = percent
	switch {
	case percent == 100 && !task.Completed:
		completedAt := s.now().UTC()
		task.Completed = true
		task.CompletedAt = &completedAt
	case percent < 100:
		task.Completed = false
		task.CompletedAt = nil
	}

	if err := s.repo.UpdateProgress(ctx, task); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Internal(err, "failed to update task progress")
	}
	s.refresh(ctx, userID)
	return task, nil
}

func (s *TaskService) refresh(ctx context.Context, userID string) {
	if s.refresher != nil {
		s.refresher.Refresh(ctx, userID)
	}
}
