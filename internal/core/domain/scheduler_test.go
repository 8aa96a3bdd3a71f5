package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerConfig(t *testing.T) {
	cfg := DefaultSchedulerConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, TaskConfig{Enabled: true, Interval: 10 * time.Minute}, cfg.GetTaskConfig(TaskIDStaleSweep))
	assert.Equal(t, TaskConfig{Enabled: true, Interval: 6 * time.Hour}, cfg.GetTaskConfig(TaskIDOrphanPurge))
	assert.Equal(t, TaskConfig{}, cfg.GetTaskConfig("reindex"))

	var empty SchedulerConfig
	assert.False(t, empty.GetTaskConfig(TaskIDStaleSweep).Enabled)
}

func TestScheduledTask_Due(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		task ScheduledTask
		want bool
	}{
		{"never scheduled", ScheduledTask{Enabled: true}, true},
		{"overdue", ScheduledTask{Enabled: true, NextRun: now.Add(-time.Second)}, true},
		{"exactly now", ScheduledTask{Enabled: true, NextRun: now}, true},
		{"future", ScheduledTask{Enabled: true, NextRun: now.Add(time.Minute)}, false},
		{"disabled", ScheduledTask{NextRun: now.Add(-time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.Due(now))
		})
	}
}

func TestTaskResult_Duration(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := TaskResult{StartedAt: start, EndedAt: start.Add(1500 * time.Millisecond)}

	assert.Equal(t, 1500*time.Millisecond, r.Duration())
	assert.True(t, ScheduledTask{}.Healthy())
	assert.False(t, ScheduledTask{LastError: "index offline"}.Healthy())
}
