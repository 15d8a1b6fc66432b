package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/uniplanner-api/internal/models"
	"github.com/noah-isme/uniplanner-api/internal/planner"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type studentCourseRepository interface {
	ListActive(ctx context.Context, exec sqlx.ExtContext, userID string) ([]models.StudentCourse, error)
	ListDetailsByStatus(ctx context.Context, userID string, status models.StudentCourseStatus) ([]models.StudentCourseDetail, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, userID, courseCode string, status models.StudentCourseStatus) error
}

type studentLocker interface {
	LockForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type catalogProvider interface {
	Graph() (*planner.CourseGraph, error)
}

// plannerRefresher is notified whenever data feeding a student's plan changes.
type plannerRefresher interface {
	Refresh(ctx context.Context, userID string)
}

// CourseList is a student's course list with its credit total.
type CourseList struct {
	Courses      []models.StudentCourseDetail `json:"courses"`
	TotalCredits int                          `json:"total_credits"`
}

// WithdrawResult reports whether a withdrawal changed anything.
type WithdrawResult struct {
	CourseCode string `json:"course_code"`
	Withdrawn  bool   `json:"withdrawn"`
}

// EnrollmentService exposes a student's academic record and the enroll/withdraw flows.
type EnrollmentService struct {
	db        txProvider
	records   studentCourseRepository
	students  studentLocker
	catalog   catalogProvider
	refresher plannerRefresher
	metrics   *MetricsService
	logger    *zap.Logger
}

// EnrollmentServiceParams groups the collaborators of EnrollmentService.
type EnrollmentServiceParams struct {
	DB        txProvider
	Records   studentCourseRepository
	Students  studentLocker
	Catalog   catalogProvider
	Refresher plannerRefresher
	Metrics   *MetricsService
	Logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(params EnrollmentServiceParams) *EnrollmentService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		db:        params.DB,
		records:   params.Records,
		students:  params.Students,
		catalog:   params.Catalog,
		refresher: params.Refresher,
		metrics:   params.Metrics,
		logger:    logger,
	}
}

// SetRefresher attaches the planner notified after enroll and withdraw.
func (s *EnrollmentService) SetRefresher(refresher plannerRefresher) {
	s.refresher = refresher
}

// State loads the student's enrollment snapshot.
func (s *EnrollmentService) State(ctx context.Context, userID string) (*planner.EnrollmentState, error) {
	return s.loadState(ctx, nil, userID)
}

// Status classifies every catalog course for the student.
func (s *EnrollmentService) Status(ctx context.Context, userID string) ([]planner.CourseStatus, error) {
	graph, err := s.catalog.Graph()
	if err != nil {
		return nil, err
	}
	state, err := s.loadState(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	return planner.CatalogStatus(graph, state), nil
}

// Approved lists approved courses with their credit total.
func (s *EnrollmentService) Approved(ctx context.Context, userID string) (*CourseList, error) {
	return s.listByStatus(ctx, userID, models.StudentCourseApproved)
}

// InProgress lists in-progress courses with their credit total.
func (s *EnrollmentService) InProgress(ctx context.Context, userID string) (*CourseList, error) {
	return s.listByStatus(ctx, userID, models.StudentCourseInProgress)
}

// Check evaluates eligibility without changing anything.
func (s *EnrollmentService) Check(ctx context.Context, userID, code string) (planner.Decision, error) {
	graph, err := s.catalog.Graph()
	if err != nil {
		return planner.Decision{}, err
	}
	state, err := s.loadState(ctx, nil, userID)
	if err != nil {
		return planner.Decision{}, err
	}
	return planner.NewEligibilityChecker(graph).CanEnroll(state, normalizeCode(code))
}

// Enroll moves a course into the student's in-progress set. The student row is
// locked for the duration so concurrent requests see each other's result.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, code string) (*planner.EnrollmentChange, error) {
	code = normalizeCode(code)
	graph, err := s.catalog.Graph()
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	state, err := s.lockAndLoad(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	change, err := planner.NewEligibilityChecker(graph).Enroll(state, code)
	if err != nil {
		if errors.Is(err, appErrors.ErrEnrollmentRejected) {
			s.metrics.RecordEnrollmentDecision("rejected")
		}
		return nil, err
	}

	if err = s.apply(ctx, tx, userID, change); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit enrollment")
		return nil, err
	}

	s.metrics.RecordEnrollmentDecision("allowed")
	s.logger.Info("course enrolled", zap.String("user_id", userID), zap.String("course", code))
	s.refresh(ctx, userID)
	return &change, nil
}

// Withdraw cancels an in-progress course. Withdrawing a course that is not in
// progress is not an error and reports Withdrawn=false.
func (s *EnrollmentService) Withdraw(ctx context.Context, userID, code string) (*WithdrawResult, error) {
	code = normalizeCode(code)
	graph, err := s.catalog.Graph()
	if err != nil {
		return nil, err
	}
	if !graph.Has(code) {
		return nil, appErrors.Clone(appErrors.ErrUnknownCourse, fmt.Sprintf("course %s not found", code))
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	state, err := s.lockAndLoad(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	change, ok := planner.NewEligibilityChecker(graph).Withdraw(state, code)
	if !ok {
		// nothing to persist
		_ = tx.Rollback()
		return &WithdrawResult{CourseCode: code, Withdrawn: false}, nil
	}

	if err = s.apply(ctx, tx, userID, change); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit withdrawal")
		return nil, err
	}

	s.logger.Info("course withdrawn", zap.String("user_id", userID), zap.String("course", code))
	s.refresh(ctx, userID)
	return &WithdrawResult{CourseCode: code, Withdrawn: true}, nil
}

func (s *EnrollmentService) lockAndLoad(ctx context.Context, tx *sqlx.Tx, userID string) (*planner.EnrollmentState, error) {
	if err := s.students.LockForUpdate(ctx, tx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to lock student record")
	}
	return s.loadState(ctx, tx, userID)
}

func (s *EnrollmentService) loadState(ctx context.Context, exec sqlx.ExtContext, userID string) (*planner.EnrollmentState, error) {
	rows, err := s.records.ListActive(ctx, exec, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load academic record")
	}
	var approved, inProgress []string
	for _, row := range rows {
		switch row.Status {
		case models.StudentCourseApproved:
			approved = append(approved, row.CourseCode)
		case models.StudentCourseInProgress:
			inProgress = append(inProgress, row.CourseCode)
		}
	}
	state, err := planner.NewEnrollmentState(approved, inProgress)
	if err != nil {
		return nil, appErrors.Internal(err, "academic record is inconsistent")
	}
	return state, nil
}

func (s *EnrollmentService) apply(ctx context.Context, tx *sqlx.Tx, userID string, change planner.EnrollmentChange) error {
	status := models.StudentCourseInProgress
	if change.Kind == planner.ChangeWithdraw {
		status = models.StudentCourseCancelled
	}
	if err := s.records.Upsert(ctx, tx, userID, change.CourseCode, status); err != nil {
		return appErrors.Internal(err, "failed to persist enrollment change")
	}
	return nil
}

func (s *EnrollmentService) listByStatus(ctx context.Context, userID string, status models.StudentCourseStatus) (*CourseList, error) {
	rows, err := s.records.ListDetailsByStatus(ctx, userID, status)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list courses")
	}
	if rows == nil {
		rows = []models.StudentCourseDetail{}
	}
	list := &CourseList{Courses: rows}
	for _, row := range rows {
		list.TotalCredits += row.Credits
	}
	return list, nil
}

func (s *EnrollmentService) refresh(ctx context.Context, userID string) {
	if s.refresher != nil {
		s.refresher.Refresh(ctx, userID)
	}
}
