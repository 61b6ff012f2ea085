// Package scheduler runs the periodic reconciliation of pending payments.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CourseCheckout/internal/pkg/payments"
)

// reconcileGrace leaves fresh transactions to the webhook.
const reconcileGrace = time.Minute

type Reconciler interface {
	ReconcilePending(ctx context.Context, olderThan time.Duration) (*payments.ReconcileResult, error)
}

type Scheduler struct {
	sched  gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// Start schedules reconciliation every interval. An interval <= 0 returns nil
// and schedules nothing.
func Start(r Reconciler, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		log.Info("[Scheduler] Reconciliation disabled")
		return nil, nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{sched: sched, ctx: ctx, cancel: cancel}

	j, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.reconcile, r),
		gocron.WithName("reconcile-pending"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("schedule reconciliation: %w", err)
	}

	sched.Start()
	log.Infof("[Scheduler] Job %s (%s) every %s", j.Name(), j.ID().String(), interval)
	return s, nil
}

func (s *Scheduler) reconcile(r Reconciler) {
	if _, err := r.ReconcilePending(s.ctx, reconcileGrace); err != nil {
		log.Errorf("[Scheduler] Reconciliation failed: %v", err)
	}
}

// Stop cancels a running pass and shuts the scheduler down. Safe on nil.
func (s *Scheduler) Stop() error {
	if s == nil {
		return nil
	}
	s.cancel()
	return s.sched.Shutdown()
}
