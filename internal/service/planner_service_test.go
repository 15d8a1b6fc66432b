package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uniplanner-api/internal/models"
	"github.com/noah-isme/uniplanner-api/internal/planner"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
	"github.com/noah-isme/uniplanner-api/pkg/jobs"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *memoryCacheRepo) Ping(ctx context.Context) error { return nil }

type fakeStateSource struct {
	state *planner.EnrollmentState
}

func (f *fakeStateSource) State(ctx context.Context, userID string) (*planner.EnrollmentState, error) {
	return f.state, nil
}

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) TryEnqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type plannerFixture struct {
	svc     *PlannerService
	tasks   *mockTaskRepo
	configs *mockStudyConfigRepo
	cache   *memoryCacheRepo
	queue   *recordingQueue
}

var plannerNow = time.Date(2026, 10, 12, 14, 0, 0, 0, time.UTC)

func newPlannerFixture(t *testing.T, cacheEnabled bool, tasks ...models.Task) *plannerFixture {
	t.Helper()
	state, err := planner.NewEnrollmentState([]string{"167390"}, []string{"167392"})
	require.NoError(t, err)

	f := &plannerFixture{
		tasks:   newMockTaskRepo(tasks...),
		configs: newMockStudyConfigRepo(),
		cache:   newMemoryCacheRepo(),
		queue:   &recordingQueue{},
	}
	preset, err := planner.PresetFor(models.StudyModeModerate)
	require.NoError(t, err)
	f.configs.stored["user-1"] = preset.Model("user-1")

	metrics := NewMetricsService()
	f.svc = NewPlannerService(PlannerServiceParams{
		Tasks:      f.tasks,
		Configs:    f.configs,
		Enrollment: &fakeStateSource{state: state},
		Catalog:    newLoadedCatalog(t),
		Cache:      NewCacheService(f.cache, metrics, time.Minute, zap.NewNop(), cacheEnabled),
		Metrics:    metrics,
		Logger:     zap.NewNop(),
		Config:     PlannerConfig{Location: time.UTC, ExportEnabled: true},
	})
	f.svc.now = func() time.Time { return plannerNow }
	f.svc.SetWarmupQueue(f.queue)
	return f
}

func plannerTasks() []models.Task {
	return []models.Task{
		{ID: 1, UserID: "user-1", CourseCode: "167392", Title: "Lab 3", Deadline: plannerNow.Add(48 * time.Hour), EstimatedHours: 3, Difficulty: 3},
		{ID: 2, UserID: "user-1", CourseCode: "167392", Title: "Quiz prep", Deadline: plannerNow.Add(24 * time.Hour), EstimatedHours: 2, Difficulty: 2},
		{ID: 3, UserID: "user-1", CourseCode: "157408", Title: "Late essay", Deadline: plannerNow.Add(-72 * time.Hour), EstimatedHours: 1, Difficulty: 1},
		{ID: 4, UserID: "user-1", CourseCode: "157408", Title: "Done", Deadline: plannerNow.Add(24 * time.Hour), EstimatedHours: 1, Difficulty: 1, Completed: true, CompletionPercent: 100},
		{ID: 5, UserID: "user-2", CourseCode: "157408", Title: "Other student", Deadline: plannerNow.Add(24 * time.Hour), EstimatedHours: 1, Difficulty: 1},
	}
}

func TestPlannerServicePlan(t *testing.T) {
	f := newPlannerFixture(t, false, plannerTasks()...)

	plan, hit, err := f.svc.Plan(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "2026-10-12", plan.Today)
	assert.Equal(t, "UTC", plan.Timezone)
	assert.Equal(t, 4.0, plan.DailyHours)
	assert.InDelta(t, 5.0, plan.ScheduledHours, 1e-9)
	assert.Equal(t, []int64{3}, plan.UnscheduledIDs)
	require.Len(t, plan.Unscheduled, 1)
	assert.Equal(t, planner.UnscheduledDeadlinePassed, plan.Unscheduled[0].Reason)

	for _, entry := range plan.Entries {
		assert.LessOrEqual(t, entry.TotalHours, entry.Capacity+1e-9)
		for _, task := range entry.Tasks {
			assert.NotEqual(t, int64(4), task.TaskID)
			assert.NotEqual(t, int64(5), task.TaskID)
		}
	}
}

func TestPlannerServicePlanFallsBackToModeratePreset(t *testing.T) {
	f := newPlannerFixture(t, false, plannerTasks()...)
	delete(f.configs.stored, "user-1")

	plan, _, err := f.svc.Plan(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, plan.DailyHours)
}

func TestPlannerServicePlanConfigFailure(t *testing.T) {
	f := newPlannerFixture(t, false, plannerTasks()...)
	f.configs.getErr = errors.New("db down")

	_, _, err := f.svc.Plan(context.Background(), "user-1")
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestPlannerServicePlanUsesCache(t *testing.T) {
	f := newPlannerFixture(t, true, plannerTasks()...)
	ctx := context.Background()

	first, hit, err := f.svc.Plan(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := f.svc.Plan(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.UnscheduledIDs, second.UnscheduledIDs)
	assert.Equal(t, first.Entries, second.Entries)

	f.svc.Refresh(ctx, "user-1")
	_, hit, err = f.svc.Plan(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, hit)

	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, WarmupJobType, f.queue.jobs[0].Type)
	assert.Equal(t, "user-1", f.queue.jobs[0].Key)
}

func TestPlannerServiceCacheErrorDegradesToRecompute(t *testing.T) {
	f := newPlannerFixture(t, true, plannerTasks()...)
	f.cache.getErr = errors.New("redis down")

	plan, hit, err := f.svc.Plan(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []int64{3}, plan.UnscheduledIDs)
}

func TestPlannerServiceRefreshIgnoresFullQueue(t *testing.T) {
	f := newPlannerFixture(t, true)
	f.queue.err = jobs.ErrQueueFull

	assert.NotPanics(t, func() { f.svc.Refresh(context.Background(), "user-1") })
	assert.Empty(t, f.queue.jobs)
}

func TestPlannerServiceHandleWarmup(t *testing.T) {
	f := newPlannerFixture(t, true, plannerTasks()...)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleWarmup(ctx, jobs.Job{ID: "job-1", Type: WarmupJobType, Payload: "user-1"}))

	_, hit, err := f.svc.Plan(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, hit)
	_, hit, err = f.svc.WeeklyLoad(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, hit)

	assert.NoError(t, f.svc.HandleWarmup(ctx, jobs.Job{ID: "job-2", Payload: 42}))

	f.configs.getErr = errors.New("db down")
	require.NoError(t, f.cache.DeleteByPattern(ctx, "planner:*"))
	assert.Error(t, f.svc.HandleWarmup(ctx, jobs.Job{ID: "job-3", Payload: "user-1"}))
}

func TestPlannerServiceWeeklyLoad(t *testing.T) {
	f := newPlannerFixture(t, false, plannerTasks()...)

	load, _, err := f.svc.WeeklyLoad(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "UTC", load.Timezone)

	var total float64
	var count int
	for _, week := range load.Weeks {
		total += week.TotalHours
		count += week.TaskCount
	}
	assert.InDelta(t, 6.0, total, 1e-9)
	assert.Equal(t, 3, count)
}

func TestPlannerServiceUrgentAndRecommendations(t *testing.T) {
	f := newPlannerFixture(t, false, plannerTasks()...)
	ctx := context.Background()

	urgent, err := f.svc.Urgent(ctx, "user-1", 1)
	require.NoError(t, err)
	ids := make([]int64, 0, len(urgent.Tasks))
	for _, task := range urgent.Tasks {
		ids = append(ids, task.Task.ID)
	}
	assert.ElementsMatch(t, []int64{2, 3}, ids)

	recommended, err := f.svc.Recommendations(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.Len(t, recommended.Tasks, 2)
	assert.Equal(t, plannerNow, recommended.AsOf)
}

func TestPlannerServiceStatistics(t *testing.T) {
	f := newPlannerFixture(t, false, plannerTasks()...)

	stats, err := f.svc.Statistics(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, plannerNow, stats.AsOf)
	assert.Equal(t, 3, stats.PendingTasks)
	assert.Equal(t, 1, stats.CompletedTasks)
	assert.Equal(t, 1, stats.OverdueTasks)
	assert.Equal(t, 1, stats.ApprovedCourses)
	assert.Equal(t, 1, stats.InProgressCourses)
	assert.Equal(t, 14, stats.TotalCredits)
}

func TestPlannerServiceExport(t *testing.T) {
	f := newPlannerFixture(t, false, plannerTasks()...)
	ctx := context.Background()

	file, err := f.svc.Export(ctx, "user-1", "CSV")
	require.NoError(t, err)
	assert.Equal(t, "study-plan-2026-10-12.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	body := string(file.Data)
	assert.True(t, strings.HasPrefix(body, "Date,Course,Task,Hours,Priority"))
	assert.Contains(t, body, "Lab 3")
	assert.NotContains(t, body, "Late essay")

	pdf, err := f.svc.Export(ctx, "user-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, strings.HasPrefix(string(pdf.Data), "%PDF-"))

	_, err = f.svc.Export(ctx, "user-1", "xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "csv, pdf")

	f.svc.cfg.ExportEnabled = false
	_, err = f.svc.Export(ctx, "user-1", "csv")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
