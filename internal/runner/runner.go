package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner drives the recurring mail chores off a single cron scheduler.
// Each task pass runs under its own deadline; a slow mailbox drain is cut
// off rather than allowed to pile up behind the next tick.
type Runner struct {
	cron     *cron.Cron
	registry *TaskRegistry
	logger   *log.Logger
	wg       sync.WaitGroup
}

// NewRunner creates a runner over the registered tasks.
func NewRunner(registry *TaskRegistry) *Runner {
	return &Runner{
		cron:     cron.New(cron.WithSeconds()),
		registry: registry,
		logger:   log.New(os.Stdout, "[RUNNER] ", log.LstdFlags),
	}
}

// Start schedules every task in registration order and blocks until a
// termination signal arrives or the context is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	tasks := r.registry.All()
	for _, task := range tasks {
		r.logger.Printf("Scheduling %s (%s)", task.Name(), task.Schedule())
		if _, err := r.cron.AddFunc(task.Schedule(), func() {
			r.runOnce(ctx, task)
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", task.Name(), err)
		}
	}

	r.cron.Start()
	r.logger.Printf("Running %d tasks", len(tasks))
	return r.waitForShutdown(ctx)
}

// runOnce executes a single pass of one task under its deadline.
func (r *Runner) runOnce(ctx context.Context, task Task) {
	r.wg.Add(1)
	defer r.wg.Done()

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()

	start := time.Now()
	if err := task.Run(taskCtx); err != nil {
		r.logger.Printf("%s failed after %v: %v", task.Name(), time.Since(start), err)
		return
	}
	r.logger.Printf("%s finished in %v", task.Name(), time.Since(start))
}

// Stop halts scheduling and waits for in-flight passes to finish.
func (r *Runner) Stop() {
	done := r.cron.Stop()
	r.wg.Wait()
	<-done.Done()
	r.logger.Println("Runner stopped")
}

// waitForShutdown blocks until SIGINT/SIGTERM or context cancellation,
// then drains in-flight passes.
func (r *Runner) waitForShutdown(ctx context.Context) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		r.logger.Printf("Received %v, shutting down", sig)
		r.Stop()
		return nil
	case <-ctx.Done():
		r.Stop()
		return ctx.Err()
	}
}
