package domain

import "time"

// Maintenance task IDs.
const (
	TaskIDStaleSweep  = "stale-sweep"
	TaskIDOrphanPurge = "orphan-purge"
)

// DefaultTaskHistory is how many results are retained per task.
const DefaultTaskHistory = 100

// ScheduledTask is the persisted state of a recurring maintenance task.
type ScheduledTask struct {
	ID          string
	Name        string
	Interval    time.Duration
	Enabled     bool
	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time

	// LastError is empty when the last run succeeded.
	LastError string
}

// Due reports whether an enabled task should run at now.
// A task that has never been scheduled is always due.
func (t ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// Healthy reports whether the most recent run, if any, succeeded.
func (t ScheduledTask) Healthy() bool {
	return t.LastError == ""
}

// TaskResult records one execution of a task.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed counts documents failed by a sweep or vectors purged.
	ItemsProcessed int
}

// Duration is how long the run took.
func (r TaskResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// TaskStatus pairs a task with its most recent results, newest first.
type TaskStatus struct {
	Task   ScheduledTask
	Recent []TaskResult
}

// SchedulerConfig controls the maintenance scheduler.
type SchedulerConfig struct {
	// Enabled is the master switch; when false long-running modes never start the loop.
	Enabled bool

	TaskConfigs map[string]TaskConfig
}

// TaskConfig configures a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the task's configuration, or the zero value (disabled).
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig sweeps stale ingestions every ten minutes and
// purges orphan vectors every six hours.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDStaleSweep:  {Enabled: true, Interval: 10 * time.Minute},
			TaskIDOrphanPurge: {Enabled: true, Interval: 6 * time.Hour},
		},
	}
}
