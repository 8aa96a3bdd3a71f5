package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
	"github.com/custodia-labs/regdocs/internal/logger"
)

var _ driving.Scheduler = (*Scheduler)(nil)

// job is one maintenance routine. run returns the number of items it handled.
type job struct {
	name string
	run  func(ctx context.Context) (int, error)
}

// Scheduler drives the repair service's maintenance routines from a
// persisted task table. Each task runs at most once at a time.
type Scheduler struct {
	config domain.SchedulerConfig
	store  driven.SchedulerStore
	jobs   map[string]job
	tick   time.Duration
	now    func() time.Time
	log    logger.Logger

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	inflight map[string]bool
	wg       sync.WaitGroup
}

// NewScheduler wires the stale sweep and orphan purge to repair.
// Documents without progress for staleAfter are failed by the sweep.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	repair driving.RepairService,
	staleAfter time.Duration,
) *Scheduler {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	s := &Scheduler{
		config:   config,
		store:    store,
		tick:     time.Minute,
		now:      time.Now,
		log:      logger.Component("scheduler"),
		inflight: make(map[string]bool),
	}
	s.jobs = map[string]job{
		domain.TaskIDStaleSweep: {name: "Stale Ingestion Sweep", run: func(ctx context.Context) (int, error) {
			if repair == nil {
				return 0, nil
			}
			report, err := repair.MarkStale(ctx, staleAfter)
			if err != nil {
				return 0, err
			}
			return len(report.DocumentIDs), nil
		}},
		domain.TaskIDOrphanPurge: {name: "Orphan Vector Purge", run: func(ctx context.Context) (int, error) {
			if repair == nil {
				return 0, nil
			}
			report, err := repair.PurgeOrphans(ctx, 0)
			if err != nil {
				return 0, err
			}
			return report.Deleted, nil
		}},
	}
	return s
}

// Start syncs the task table with configuration and runs due tasks every
// tick. It blocks until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	if err := s.syncTasks(ctx); err != nil {
		s.log.Error("failed to sync tasks: %v", err)
	}

	s.runDue(ctx)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// Stop ends the loop and waits for in-flight runs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// Status lists stored tasks ordered by ID with their recent results.
func (s *Scheduler) Status(ctx context.Context, historyLimit int) ([]domain.TaskStatus, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	out := make([]domain.TaskStatus, 0, len(tasks))
	for _, t := range tasks {
		st := domain.TaskStatus{Task: t}
		if historyLimit > 0 {
			st.Recent, err = s.store.GetTaskHistory(ctx, t.ID, historyLimit)
			if err != nil {
				return nil, fmt.Errorf("failed to load history for %s: %w", t.ID, err)
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// RunNow executes taskID immediately, whether or not it is due or enabled.
func (s *Scheduler) RunNow(ctx context.Context, taskID string) (*domain.TaskResult, error) {
	j, ok := s.jobs[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: task %q", domain.ErrNotFound, taskID)
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}
	if task == nil {
		cfg := s.config.GetTaskConfig(taskID)
		task = &domain.ScheduledTask{ID: taskID, Name: j.name, Interval: cfg.Interval, Enabled: cfg.Enabled}
	}
	if !s.claim(taskID) {
		return nil, fmt.Errorf("%w: task %s is already running", domain.ErrInvalidInput, taskID)
	}
	defer s.release(taskID)
	return s.execute(ctx, task, j), nil
}

// syncTasks creates or updates enabled tasks and drops the rest, so the
// stored table mirrors configuration.
func (s *Scheduler) syncTasks(ctx context.Context) error {
	stored, err := s.store.ListTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range stored {
		if _, known := s.jobs[t.ID]; !known || !s.config.GetTaskConfig(t.ID).Enabled {
			s.log.Info("removing task %s", t.ID)
			if err := s.store.DeleteTask(ctx, t.ID); err != nil {
				return err
			}
		}
	}

	now := s.now()
	for id, j := range s.jobs {
		cfg := s.config.GetTaskConfig(id)
		if !cfg.Enabled {
			continue
		}
		task, err := s.store.GetTask(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case task == nil:
			task = &domain.ScheduledTask{ID: id, Name: j.name, Interval: cfg.Interval, NextRun: now.Add(cfg.Interval)}
		case task.Interval != cfg.Interval:
			task.Interval = cfg.Interval
			task.NextRun = now.Add(cfg.Interval)
		}
		task.Enabled = true
		if err := s.store.SaveTask(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

// runDue starts every due task that is not already running.
func (s *Scheduler) runDue(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		s.log.Error("failed to list tasks: %v", err)
		return
	}
	now := s.now()
	for i := range tasks {
		task := tasks[i]
		j, ok := s.jobs[task.ID]
		if !ok {
			s.log.Warn("unknown task ID: %s", task.ID)
			continue
		}
		if !task.Due(now) || !s.claim(task.ID) {
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release(task.ID)
			s.execute(ctx, &task, j)
		}()
	}
}

func (s *Scheduler) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[id] {
		return false
	}
	s.inflight[id] = true
	return true
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

// execute runs the job and persists the task state and result.
// Store failures are logged; the returned result is always populated.
func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask, j job) *domain.TaskResult {
	result := &domain.TaskResult{TaskID: task.ID, StartedAt: s.now()}
	n, err := j.run(ctx)
	result.EndedAt = s.now()
	result.ItemsProcessed = n
	result.Success = err == nil

	task.LastRun = result.StartedAt
	task.NextRun = result.EndedAt.Add(task.Interval)
	if err != nil {
		result.Error = err.Error()
		task.LastError = result.Error
		s.log.Warn("task %s failed: %v", task.ID, err)
	} else {
		task.LastError = ""
		task.LastSuccess = result.EndedAt
		s.log.Debug("task %s processed %d items", task.ID, n)
	}

	if err := s.store.SaveTask(ctx, task); err != nil {
		s.log.Error("failed to save task %s: %v", task.ID, err)
	}
	if err := s.store.RecordResult(ctx, result); err != nil {
		s.log.Error("failed to record result for %s: %v", task.ID, err)
	}
	if err := s.store.PruneHistory(ctx, domain.DefaultTaskHistory); err != nil {
		s.log.Error("failed to prune history: %v", err)
	}
	return result
}
