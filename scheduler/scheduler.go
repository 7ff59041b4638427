/*
Package scheduler runs the unattended daily pass: the annual reset and,
in the final month of the year, the carryover forfeiture warnings.

DESIGN:
  - An explicit long-lived task that owns a context and a fixed
    interval ticker; no framework lifecycle involved
  - Each tick is a bounded, sequential pass with fresh transactional
    scopes; nothing is held open between ticks
  - Cooperative shutdown: canceling the context stops scheduling new
    passes and lets the in-flight pass finish
  - Every pass records a cycle-run row for audit and the admin UI
  - The year guard inside the reset makes the daily cadence safe: the
    first January pass resets each balance, every later pass skips it
*/
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/leave-engine/entitlement"
	"github.com/warp/leave-engine/lifecycle"
	"github.com/warp/leave-engine/notify"
)

// Store is what the scheduler needs from storage: the engine's
// transactional store plus cycle-run persistence.
type Store interface {
	entitlement.TxStore
	entitlement.RunStore
}

// Scheduler drives the daily pass.
type Scheduler struct {
	Engine     *lifecycle.Engine
	Store      Store
	Dispatcher *notify.Dispatcher
	Interval   time.Duration

	// Now supplies the reference time for each pass. Defaults to
	// time.Now; tests pin it.
	Now func() time.Time

	wg sync.WaitGroup
}

func New(engine *lifecycle.Engine, store Store, dispatcher *notify.Dispatcher, interval time.Duration) *Scheduler {
	return &Scheduler{
		Engine:     engine,
		Store:      store,
		Dispatcher: dispatcher,
		Interval:   interval,
		Now:        time.Now,
	}
}

// Start launches the loop. It runs one pass immediately, then one per
// interval until the context is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
	log.Printf("[Scheduler] started with interval %v", s.Interval)
}

// Wait blocks until the loop has exited after context cancellation.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			log.Println("[Scheduler] stopped")
			return
		}
	}
}

// RunOnce executes a single daily pass. Exported for the admin
// trigger endpoint and tests.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.Now()

	// Warn about expiring days ahead of the January reset. Running
	// this outside December would re-mail employees every day.
	if now.Month() == time.December {
		report, err := s.Engine.ProcessCarryoverNotifications(ctx, now)
		if err != nil {
			log.Printf("[Scheduler] carryover pass failed: %v", err)
		} else {
			s.Dispatcher.Dispatch(ctx, report.Notifications)
		}
	}

	run := entitlement.CycleRun{
		ID:        uuid.NewString(),
		Year:      now.Year(),
		Status:    "running",
		StartedAt: now,
	}
	if err := s.Store.SaveCycleRun(ctx, run); err != nil {
		log.Printf("[Scheduler] failed to record run: %v", err)
	}

	report, err := s.Engine.ProcessAnnualReset(ctx, now)
	completed := s.Now()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		log.Printf("[Scheduler] reset pass failed: %v", err)
	} else {
		run.Status = "completed"
		run.Processed = report.Processed
		run.Skipped = report.Skipped
		run.Failed = report.Failed
		if report.Processed > 0 || report.Failed > 0 {
			log.Printf("[Scheduler] reset pass: %d processed, %d skipped, %d failed",
				report.Processed, report.Skipped, report.Failed)
		}
	}

	if err := s.Store.SaveCycleRun(ctx, run); err != nil {
		log.Printf("[Scheduler] failed to update run: %v", err)
	}
}
