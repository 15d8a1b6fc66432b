package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uniplanner-api/internal/dto"
	"github.com/noah-isme/uniplanner-api/internal/models"
	"github.com/noah-isme/uniplanner-api/internal/planner"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
	"github.com/noah-isme/uniplanner-api/pkg/export"
	"github.com/noah-isme/uniplanner-api/pkg/jobs"
	"github.com/noah-isme/uniplanner-api/pkg/logger"
)

// WarmupJobType identifies background plan recomputation jobs.
const WarmupJobType = "planner.warmup"

const (
	viewPlan       = "plan"
	viewWeeklyLoad = "weekly"
)

type plannerTaskSource interface {
	ListByUser(ctx context.Context, userID string, filter models.TaskFilter) ([]models.Task, error)
}

type plannerConfigSource interface {
	Get(ctx context.Context, userID string) (*models.StudyConfiguration, error)
}

type enrollmentStateSource interface {
	State(ctx context.Context, userID string) (*planner.EnrollmentState, error)
}

type warmupQueue interface {
	TryEnqueue(job jobs.Job) error
}

// PlannerConfig tunes derived planner views.
type PlannerConfig struct {
	Location            *time.Location
	HorizonDays         int
	UrgentDays          int
	RecommendationLimit int
	CacheTTL            time.Duration
	ExportEnabled       bool
}

// PlannerServiceParams groups the collaborators of PlannerService.
type PlannerServiceParams struct {
	Tasks      plannerTaskSource
	Configs    plannerConfigSource
	Enrollment enrollmentStateSource
	Catalog    catalogProvider
	Cache      *CacheService
	Metrics    *MetricsService
	Exports    *export.Registry
	Logger     *zap.Logger
	Config     PlannerConfig
}

// ExportFile is a rendered study plan ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PlannerService computes study plans and the derived task views.
type PlannerService struct {
	tasks      plannerTaskSource
	configs    plannerConfigSource
	enrollment enrollmentStateSource
	catalog    catalogProvider
	cache      *CacheService
	metrics    *MetricsService
	exports    *export.Registry
	logger     *zap.Logger
	cfg        PlannerConfig
	queue      warmupQueue
	now        func() time.Time
}

// NewPlannerService constructs a PlannerService.
func NewPlannerService(params PlannerServiceParams) *PlannerService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = planner.DefaultHorizonDays
	}
	if cfg.UrgentDays < 0 {
		cfg.UrgentDays = planner.DefaultUrgentDays
	}
	if cfg.RecommendationLimit <= 0 {
		cfg.RecommendationLimit = planner.DefaultRecommendationLimit
	}
	exports := params.Exports
	if exports == nil {
		pdf := export.NewPDFExporter()
		pdf.Weights = map[string]float64{"task": 3, "course": 1.5}
		exports = export.NewRegistry(export.NewCSVExporter(), pdf)
	}
	return &PlannerService{
		tasks:      params.Tasks,
		configs:    params.Configs,
		enrollment: params.Enrollment,
		catalog:    params.Catalog,
		cache:      params.Cache,
		metrics:    params.Metrics,
		exports:    exports,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// SetWarmupQueue attaches the queue used by Refresh to recompute plans in the background.
func (s *PlannerService) SetWarmupQueue(queue warmupQueue) {
	s.queue = queue
}

// Plan returns today's study plan for the student. The boolean reports a cache hit.
func (s *PlannerService) Plan(ctx context.Context, userID string) (*dto.PlanResponse, bool, error) {
	now := s.clock()
	key := PlannerCacheKey(userID, viewPlan, formatDay(now))

	var cached dto.PlanResponse
	if s.fromCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	plan, err := s.computePlan(ctx, userID, now)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, key, plan)
	return plan, false, nil
}

// WeeklyLoad buckets pending work by the ISO week of its deadline.
func (s *PlannerService) WeeklyLoad(ctx context.Context, userID string) (*dto.WeeklyLoadResponse, bool, error) {
	now := s.clock()
	key := PlannerCacheKey(userID, viewWeeklyLoad, formatDay(now))

	var cached dto.WeeklyLoadResponse
	if s.fromCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	tasks, err := s.pendingTasks(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	result := &dto.WeeklyLoadResponse{
		Timezone: s.cfg.Location.String(),
		Weeks:    planner.WeeklyLoad(tasks, s.cfg.Location),
	}
	s.persistCache(ctx, key, result)
	return result, false, nil
}

// Urgent lists pending tasks due within days, overdue ones included. A
// negative value selects the configured default.
func (s *PlannerService) Urgent(ctx context.Context, userID string, days int) (*dto.RankedTasksResponse, error) {
	if days < 0 {
		days = s.cfg.UrgentDays
	}
	tasks, err := s.pendingTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	return &dto.RankedTasksResponse{AsOf: now, Tasks: planner.Urgent(tasks, now, days)}, nil
}

// Recommendations returns the highest-priority pending tasks.
func (s *PlannerService) Recommendations(ctx context.Context, userID string, limit int) (*dto.RankedTasksResponse, error) {
	if limit <= 0 {
		limit = s.cfg.RecommendationLimit
	}
	tasks, err := s.pendingTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	return &dto.RankedTasksResponse{AsOf: now, Tasks: planner.TopRecommended(tasks, now, limit)}, nil
}

// Statistics summarises workload and curriculum progress.
func (s *PlannerService) Statistics(ctx context.Context, userID string) (*dto.StatisticsResponse, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID, models.TaskFilter{})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list tasks")
	}
	graph, err := s.catalog.Graph()
	if err != nil {
		return nil, err
	}
	state, err := s.enrollment.State(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	return &dto.StatisticsResponse{AsOf: now, Statistics: planner.Summarize(tasks, graph, state, now)}, nil
}

// Export renders today's plan in the requested format (csv or pdf).
func (s *PlannerService) Export(ctx context.Context, userID, format string) (*ExportFile, error) {
	if !s.cfg.ExportEnabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "plan export is disabled")
	}
	if strings.TrimSpace(format) == "" {
		format = "csv"
	}
	renderer, ok := s.exports.Lookup(format)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q, use one of %s", format, strings.Join(s.exports.Formats(), ", ")))
	}

	plan, _, err := s.Plan(ctx, userID)
	if err != nil {
		return nil, err
	}
	data, err := renderer.Render(planDataset(plan))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render plan export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("study-plan-%s.%s", plan.Today, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

// Refresh drops the student's cached views and schedules a background recomputation.
func (s *PlannerService) Refresh(ctx context.Context, userID string) {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.log(ctx).Warn("failed to invalidate planner cache", zap.String("user_id", userID), zap.Error(err))
	}
	if s.queue == nil || !s.cache.Enabled() {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: WarmupJobType, Key: userID, Payload: userID}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.log(ctx).Warn("failed to schedule plan warmup", zap.String("user_id", userID), zap.Error(err))
	}
}

// HandleWarmup recomputes and caches today's plan and weekly load for the job's student.
func (s *PlannerService) HandleWarmup(ctx context.Context, job jobs.Job) error {
	userID, ok := job.Payload.(string)
	if !ok || userID == "" {
		s.metrics.RecordWarmup(false)
		s.logger.Error("warmup job without user", zap.String("job_id", job.ID))
		return nil
	}
	if _, _, err := s.Plan(ctx, userID); err != nil {
		s.metrics.RecordWarmup(false)
		return fmt.Errorf("warm plan for %s: %w", userID, err)
	}
	if _, _, err := s.WeeklyLoad(ctx, userID); err != nil {
		s.metrics.RecordWarmup(false)
		return fmt.Errorf("warm weekly load for %s: %w", userID, err)
	}
	s.metrics.RecordWarmup(true)
	return nil
}

func (s *PlannerService) computePlan(ctx context.Context, userID string, now time.Time) (*dto.PlanResponse, error) {
	tasks, err := s.pendingTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	stored, err := s.studyConfiguration(ctx, userID)
	if err != nil {
		return nil, err
	}
	cfg := planner.ConfigurationFromModel(*stored)

	start := time.Now()
	plan, err := planner.Allocate(tasks, cfg, now, planner.AllocatorOptions{HorizonDays: s.cfg.HorizonDays})
	if err != nil {
		return nil, err
	}
	reasons := make([]string, 0, len(plan.Unscheduled))
	for _, item := range plan.Unscheduled {
		reasons = append(reasons, string(item.Reason))
	}
	s.metrics.ObservePlan(time.Since(start), reasons)

	return &dto.PlanResponse{
		Today:          formatDay(now),
		Timezone:       s.cfg.Location.String(),
		Horizon:        plan.Horizon,
		DailyHours:     cfg.DailyHours,
		Entries:        plan.Entries,
		Unscheduled:    plan.Unscheduled,
		UnscheduledIDs: plan.UnscheduledIDs(),
		ScheduledHours: plan.ScheduledHours(),
		GeneratedAt:    now.UTC(),
	}, nil
}

// studyConfiguration falls back to the MODERATE preset for students without a stored configuration.
func (s *PlannerService) studyConfiguration(ctx context.Context, userID string) (*models.StudyConfiguration, error) {
	cfg, err := s.configs.Get(ctx, userID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, sql.ErrNoRows) && !errors.Is(err, appErrors.ErrNotFound) {
		return nil, appErrors.Internal(err, "failed to load study configuration")
	}
	s.log(ctx).Warn("study configuration missing, using preset", zap.String("user_id", userID))
	preset, err := planner.PresetFor(models.StudyModeModerate)
	if err != nil {
		return nil, err
	}
	fallback := preset.Model(userID)
	return &fallback, nil
}

func (s *PlannerService) pendingTasks(ctx context.Context, userID string) ([]models.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID, models.TaskFilter{PendingOnly: true})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list tasks")
	}
	return tasks, nil
}

func (s *PlannerService) fromCache(ctx context.Context, key string, dest interface{}) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		// degrade to a recomputation
		return false
	}
	return hit
}

func (s *PlannerService) persistCache(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.log(ctx).Warn("failed to cache planner view", zap.String("key", key), zap.Error(err))
	}
}

func (s *PlannerService) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.logger)
}

func (s *PlannerService) clock() time.Time {
	return s.now().In(s.cfg.Location)
}

func formatDay(t time.Time) string {
	return t.Format("2006-01-02")
}

func planDataset(plan *dto.PlanResponse) export.Dataset {
	data := export.Dataset{
		Title:   fmt.Sprintf("Study plan %s", plan.Today),
		Headers: []string{"date", "course", "task", "hours", "score"},
		Labels:  map[string]string{"date": "Date", "course": "Course", "task": "Task", "hours": "Hours", "score": "Priority"},
		Rows:    make([]map[string]string, 0),
	}
	for _, entry := range plan.Entries {
		for _, task := range entry.Tasks {
			data.Rows = append(data.Rows, map[string]string{
				"date":   entry.Date,
				"course": task.CourseCode,
				"task":   task.Title,
				"hours":  fmt.Sprintf("%.2f", task.Hours),
				"score":  fmt.Sprintf("%.2f", task.Score),
			})
		}
	}
	data.Summary = append(data.Summary,
		fmt.Sprintf("Horizon: %s to %s (%s)", plan.Horizon.Start, plan.Horizon.End, plan.Timezone),
		fmt.Sprintf("Daily budget: %.2f h, scheduled: %.2f h", plan.DailyHours, plan.ScheduledHours),
	)
	for _, item := range plan.Unscheduled {
		data.Summary = append(data.Summary, fmt.Sprintf("Unscheduled task %d: %s", item.TaskID, item.Reason))
	}
	return data
}
