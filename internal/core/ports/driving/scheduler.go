package driving

import (
	"context"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// Scheduler runs the maintenance tasks (stale ingestion sweep, orphan
// vector purge) on their configured intervals.
type Scheduler interface {
	// Start blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop waits for in-flight task runs to finish.
	Stop() error

	// Status lists known tasks with up to historyLimit recent results each.
	Status(ctx context.Context, historyLimit int) ([]domain.TaskStatus, error)

	// RunNow executes a configured task synchronously and records the result.
	// Unknown task IDs return ErrNotFound.
	RunNow(ctx context.Context, taskID string) (*domain.TaskResult, error)
}
