package planner

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uniplanner-api/internal/models"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
)

var everyDay = []time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
}

func allDaysConfig(hours float64) StudyConfiguration {
	return StudyConfiguration{DailyHours: hours, AllowedDays: everyDay}
}

func entryIDs(entry PlanEntry) []int64 {
	ids := make([]int64, 0, len(entry.Tasks))
	for _, task := range entry.Tasks {
		ids = append(ids, task.TaskID)
	}
	return ids
}

func TestAllocateMovesBlockToNextDayWhenItDoesNotFit(t *testing.T) {
	tasks := []models.Task{
		newTask(1, 3, 4, referenceNow.AddDate(0, 0, 2)),
		newTask(2, 2, 2, referenceNow.AddDate(0, 0, 10)),
	}

	plan, err := Allocate(tasks, allDaysConfig(4), referenceNow, AllocatorOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 2)
	assert.Empty(t, plan.Unscheduled)

	assert.Equal(t, "2026-10-12", plan.Entries[0].Date)
	assert.Equal(t, []int64{1}, entryIDs(plan.Entries[0]))
	assert.Equal(t, 3.0, plan.Entries[0].TotalHours)

	assert.Equal(t, "2026-10-13", plan.Entries[1].Date)
	assert.Equal(t, []int64{2}, entryIDs(plan.Entries[1]))
	assert.Equal(t, 2.0, plan.Entries[1].TotalHours)

	assert.Equal(t, Horizon{Start: "2026-10-12", End: "2026-10-22"}, plan.Horizon)
}

func TestAllocatePacksDayWhenCapacityAllows(t *testing.T) {
	tasks := []models.Task{
		newTask(1, 2, 4, referenceNow.AddDate(0, 0, 2)),
		newTask(2, 2, 2, referenceNow.AddDate(0, 0, 10)),
	}

	plan, err := Allocate(tasks, allDaysConfig(4), referenceNow, AllocatorOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, []int64{1, 2}, entryIDs(plan.Entries[0]))
	assert.Equal(t, 4.0, plan.Entries[0].TotalHours)
}

func TestAllocateZeroCapacityOverflowsEverything(t *testing.T) {
	tasks := []models.Task{
		newTask(1, 3, 4, referenceNow.AddDate(0, 0, 2)),
		newTask(2, 2, 2, referenceNow.AddDate(0, 0, 10)),
	}

	for name, cfg := range map[string]StudyConfiguration{
		"zero hours": allDaysConfig(0),
		"no days":    {DailyHours: 4},
	} {
		t.Run(name, func(t *testing.T) {
			plan, err := Allocate(tasks, cfg, referenceNow, AllocatorOptions{})
			require.NoError(t, err)
			assert.Empty(t, plan.Entries)
			assert.Equal(t, []int64{1, 2}, plan.UnscheduledIDs())
			for _, item := range plan.Unscheduled {
				assert.Equal(t, UnscheduledNoStudyDays, item.Reason)
			}
		})
	}
}

func TestAllocateEmptyTaskList(t *testing.T) {
	plan, err := Allocate(nil, allDaysConfig(4), referenceNow, AllocatorOptions{})
	require.NoError(t, err)
	assert.Empty(t, plan.Entries)
	assert.Empty(t, plan.Unscheduled)
	assert.Equal(t, 0.0, plan.ScheduledHours())
}

func TestAllocateUnscheduledReasons(t *testing.T) {
	t.Run("deadline passed", func(t *testing.T) {
		plan, err := Allocate([]models.Task{newTask(1, 1, 1, referenceNow.AddDate(0, 0, -1))}, allDaysConfig(4), referenceNow, AllocatorOptions{})
		require.NoError(t, err)
		require.Len(t, plan.Unscheduled, 1)
		assert.Equal(t, UnscheduledDeadlinePassed, plan.Unscheduled[0].Reason)
	})
	t.Run("larger than a day", func(t *testing.T) {
		plan, err := Allocate([]models.Task{newTask(1, 5, 1, referenceNow.AddDate(0, 0, 7))}, allDaysConfig(4), referenceNow, AllocatorOptions{})
		require.NoError(t, err)
		require.Len(t, plan.Unscheduled, 1)
		assert.Equal(t, UnscheduledExceedsCapacity, plan.Unscheduled[0].Reason)
	})
	t.Run("days before deadline are full", func(t *testing.T) {
		today := referenceNow.Add(2 * time.Hour)
		tasks := []models.Task{newTask(1, 3, 3, today), newTask(2, 3, 3, today)}
		plan, err := Allocate(tasks, allDaysConfig(4), referenceNow, AllocatorOptions{})
		require.NoError(t, err)
		require.Len(t, plan.Entries, 1)
		assert.Equal(t, []int64{1}, entryIDs(plan.Entries[0]))
		assert.Equal(t, []UnscheduledTask{{TaskID: 2, Reason: UnscheduledNoCapacity}}, plan.Unscheduled)
	})
	t.Run("beyond horizon", func(t *testing.T) {
		tasks := []models.Task{
			newTask(1, 4, 3, referenceNow.AddDate(0, 0, 1)),
			newTask(2, 4, 3, referenceNow.AddDate(0, 0, 1)),
			newTask(3, 4, 3, referenceNow.AddDate(0, 0, 10)),
		}
		plan, err := Allocate(tasks, allDaysConfig(4), referenceNow, AllocatorOptions{HorizonDays: 2})
		require.NoError(t, err)
		assert.Len(t, plan.Entries, 2)
		assert.Equal(t, "2026-10-13", plan.Horizon.End)
		assert.Equal(t, []UnscheduledTask{{TaskID: 3, Reason: UnscheduledBeyondHorizon}}, plan.Unscheduled)
	})
}

func TestAllocateSkipsDisallowedDays(t *testing.T) {
	saturday := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	cfg := StudyConfiguration{DailyHours: 4, AllowedDays: weekdays}
	tasks := []models.Task{
		newTask(1, 2, 3, time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)),
		newTask(2, 2, 3, time.Date(2026, 10, 18, 18, 0, 0, 0, time.UTC)),
	}

	plan, err := Allocate(tasks, cfg, saturday, AllocatorOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "2026-10-19", plan.Entries[0].Date)
	assert.Equal(t, []int64{1}, entryIDs(plan.Entries[0]))
	assert.Equal(t, []UnscheduledTask{{TaskID: 2, Reason: UnscheduledNoStudyDays}}, plan.Unscheduled)
}

func TestAllocateSchedulesOnDeadlineDay(t *testing.T) {
	task := newTask(1, 2, 3, time.Date(2026, 10, 12, 23, 59, 59, 0, time.UTC))

	plan, err := Allocate([]models.Task{task}, allDaysConfig(4), referenceNow, AllocatorOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "2026-10-12", plan.Entries[0].Date)
}

func TestAllocateIgnoresCompletedTasks(t *testing.T) {
	done := newTask(1, 3, 3, referenceNow.AddDate(0, 0, 1))
	done.Completed = true
	done.CompletionPercent = 100

	plan, err := Allocate([]models.Task{done}, allDaysConfig(4), referenceNow, AllocatorOptions{})
	require.NoError(t, err)
	assert.Empty(t, plan.Entries)
	assert.Empty(t, plan.Unscheduled)
}

func TestAllocateValidation(t *testing.T) {
	_, err := Allocate(nil, allDaysConfig(-1), referenceNow, AllocatorOptions{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = Allocate([]models.Task{newTask(1, 0, 3, referenceNow)}, allDaysConfig(4), referenceNow, AllocatorOptions{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = Allocate([]models.Task{newTask(1, 2, 9, referenceNow)}, allDaysConfig(4), referenceNow, AllocatorOptions{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func randomTasks(r *rand.Rand, n int) []models.Task {
	tasks := make([]models.Task, 0, n)
	for i := 0; i < n; i++ {
		deadline := referenceNow.Add(time.Duration(r.Intn(21*24)-24) * time.Hour)
		hours := float64(r.Intn(12)+1) / 2
		tasks = append(tasks, newTask(int64(i+1), hours, r.Intn(5)+1, deadline))
	}
	return tasks
}

func TestAllocateInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	cfg := StudyConfiguration{DailyHours: 4, AllowedDays: weekdays}

	for round := 0; round < 50; round++ {
		tasks := randomTasks(r, 25)
		byID := make(map[int64]models.Task, len(tasks))
		for _, task := range tasks {
			byID[task.ID] = task
		}

		plan, err := Allocate(tasks, cfg, referenceNow, AllocatorOptions{HorizonDays: 14})
		require.NoError(t, err)

		seen := make(map[int64]int)
		for _, entry := range plan.Entries {
			day, err := time.ParseInLocation("2006-01-02", entry.Date, time.UTC)
			require.NoError(t, err)
			assert.True(t, cfg.Allows(day.Weekday()), "study on disallowed day %s", entry.Date)

			var sum float64
			for _, planned := range entry.Tasks {
				sum += planned.Hours
				seen[planned.TaskID]++
				due := deadlineDate(byID[planned.TaskID], time.UTC)
				assert.False(t, day.After(due), "task %d scheduled after its deadline", planned.TaskID)
			}
			assert.LessOrEqual(t, sum, cfg.DailyHours+capacityEpsilon)
			assert.InDelta(t, sum, entry.TotalHours, 1e-9)
		}
		for _, id := range plan.UnscheduledIDs() {
			seen[id]++
		}
		assert.Len(t, seen, len(tasks))
		for id, count := range seen {
			assert.Equal(t, 1, count, "task %d placed %d times", id, count)
		}
	}
}

func TestAllocateIsDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	tasks := randomTasks(r, 30)
	cfg := StudyConfiguration{DailyHours: 5, AllowedDays: weekdays}

	first, err := Allocate(tasks, cfg, referenceNow, AllocatorOptions{})
	require.NoError(t, err)
	shuffled := append([]models.Task(nil), tasks...)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	second, err := Allocate(shuffled, cfg, referenceNow, AllocatorOptions{})
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
