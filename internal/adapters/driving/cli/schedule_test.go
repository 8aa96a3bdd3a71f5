package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

func withScheduler(t *testing.T, s *mockScheduler, cfg domain.SchedulerConfig) {
	t.Helper()
	_, cleanup := setupTestServices()
	t.Cleanup(cleanup)
	scheduler = s
	schedulerConfig = cfg
}

func TestScheduleCmd(t *testing.T) {
	ran := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	sched := &mockScheduler{status: []domain.TaskStatus{
		{
			Task: domain.ScheduledTask{
				ID: domain.TaskIDOrphanPurge, Name: "Orphan Vector Purge", Interval: 6 * time.Hour,
				Enabled: true, LastRun: ran, NextRun: ran.Add(6 * time.Hour),
			},
			Recent: []domain.TaskResult{
				{StartedAt: ran, EndedAt: ran.Add(2 * time.Second), Success: true, ItemsProcessed: 12},
				{StartedAt: ran.Add(-6 * time.Hour), EndedAt: ran.Add(-6 * time.Hour), Error: "index offline"},
			},
		},
		{
			Task: domain.ScheduledTask{
				ID: domain.TaskIDStaleSweep, Name: "Stale Ingestion Sweep", Interval: 10 * time.Minute,
				Enabled: true, LastError: "store locked",
			},
		},
	}}
	withScheduler(t, sched, domain.DefaultSchedulerConfig())

	out, err := execute(t, "schedule", "--history", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "orphan-purge (Orphan Vector Purge) every 6h0m0s, ok")
	assert.Contains(t, out, "12 items")
	assert.NotContains(t, out, "index offline")
	assert.Contains(t, out, "stale-sweep (Stale Ingestion Sweep) every 10m0s, failing: store locked")
	assert.Contains(t, out, "Last run: never")
	assert.Contains(t, out, "Next run: due")
	assert.NotContains(t, out, "disabled")
}

func TestScheduleCmd_EmptyAndDisabled(t *testing.T) {
	withScheduler(t, &mockScheduler{}, domain.SchedulerConfig{})

	out, err := execute(t, "schedule")

	require.NoError(t, err)
	assert.Contains(t, out, "Scheduler is disabled")
	assert.Contains(t, out, "No scheduled tasks yet")
}

func TestScheduleRunCmd(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		sched := &mockScheduler{result: &domain.TaskResult{Success: true, ItemsProcessed: 4}}
		withScheduler(t, sched, domain.DefaultSchedulerConfig())

		out, err := execute(t, "schedule", "run", domain.TaskIDStaleSweep)

		require.NoError(t, err)
		assert.Equal(t, []string{domain.TaskIDStaleSweep}, sched.ran)
		assert.Contains(t, out, "stale-sweep processed 4 items")
	})

	t.Run("task failure", func(t *testing.T) {
		withScheduler(t, &mockScheduler{result: &domain.TaskResult{Error: "index offline"}}, domain.DefaultSchedulerConfig())

		_, err := execute(t, "schedule", "run", domain.TaskIDOrphanPurge)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "orphan-purge failed: index offline")
	})

	t.Run("unknown task", func(t *testing.T) {
		withScheduler(t, &mockScheduler{err: domain.ErrNotFound}, domain.DefaultSchedulerConfig())

		_, err := execute(t, "schedule", "run", "reindex")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestScheduleCmd_NotConfigured(t *testing.T) {
	cleanup := clearServices()
	defer cleanup()

	_, err := execute(t, "schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler not configured")

	_, err = execute(t, "schedule", "run", domain.TaskIDStaleSweep)
	require.Error(t, err)
}

func TestScheduleCmd_StatusError(t *testing.T) {
	withScheduler(t, &mockScheduler{err: errors.New("db locked")}, domain.DefaultSchedulerConfig())

	_, err := execute(t, "schedule")

	assert.ErrorContains(t, err, "db locked")
}
