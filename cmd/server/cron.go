package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/phrazzld/tome-api/internal/task"
)

// maintenanceRunner submits a recurring background-priority task that
// prunes old delete-operation records. Running it through the scheduler
// keeps housekeeping subject to the same concurrency bound and visibility
// as user work.
type maintenanceRunner struct {
	cron *cron.Cron
}

// setupMaintenance registers the maintenance job. An empty cron spec
// disables it, returning a nil runner.
func setupMaintenance(app *application) (*maintenanceRunner, error) {
	spec := app.config.Maintenance.CronSpec
	if spec == "" {
		app.logger.Info("maintenance job disabled, no cron spec configured")
		return nil, nil
	}

	pruneAfter := time.Duration(app.config.Maintenance.PruneAfterHours) * time.Hour
	logger := app.logger.With("component", "maintenance")

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		work := task.TaskFunc(func(ctx context.Context) (any, error) {
			cutoff := time.Now().UTC().Add(-pruneAfter)
			pruned, err := app.opStore.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				return nil, fmt.Errorf("pruning operation records: %w", err)
			}
			logger.Info("pruned old operation records",
				"pruned", pruned,
				"cutoff", cutoff)
			return map[string]int64{"pruned": pruned}, nil
		})

		taskID, err := app.scheduler.Submit(context.Background(), work,
			task.WithPriority(task.PriorityBackground),
			task.WithTaskType(task.TaskTypeMaintenance),
		)
		if err != nil {
			logger.Warn("failed to submit maintenance task", "error", err)
			return
		}
		logger.Debug("maintenance task submitted", "task_id", taskID)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid maintenance cron spec %q: %w", spec, err)
	}

	c.Start()
	logger.Info("maintenance job scheduled",
		"cron_spec", spec,
		"prune_after_hours", app.config.Maintenance.PruneAfterHours)

	return &maintenanceRunner{cron: c}, nil
}

// stop halts the cron scheduler and waits for a running invocation to
// finish submitting.
func (m *maintenanceRunner) stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}
