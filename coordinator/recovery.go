package coordinator

import (
	"context"
	"fmt"

	"github.com/coursegrade/backend/queue"
)

// TaskFactory rebuilds the grading task for a recovered queue item.
type TaskFactory func(ctx context.Context, item queue.Item) (Task, error)

// Recover re-arms every queue entry and resubmits it to the pool. Run
// once at process start: any item still marked started belonged to a run
// the previous process never finished. Grading from scratch is safe
// because a run derives everything from current repository state.
func (c *Coordinator) Recover(ctx context.Context, factory TaskFactory) error {
	if err := c.queue.MarkAllNotStarted(ctx); err != nil {
		return fmt.Errorf("re-arm queue for recovery: %w", err)
	}

	// list only after re-arming so the factory sees the re-armed items
	items, err := c.queue.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list queue for recovery: %w", err)
	}

	for _, item := range items {
		task, err := factory(ctx, item)
		if err != nil {
			c.log.Error("failed to rebuild grader for recovered queue item",
				"net_id", item.NetID, "phase", item.Phase, "error", err)
			continue
		}
		if err := c.AddGrader(task); err != nil {
			return fmt.Errorf("resubmit recovered task for %s: %w", item.NetID, err)
		}
		c.log.Info("resubmitted queue item after restart",
			"net_id", item.NetID, "phase", item.Phase)
	}
	return nil
}
