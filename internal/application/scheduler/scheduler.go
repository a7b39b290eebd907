// Package scheduler runs the periodic jobs of the service.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"clubledger/internal/application/orchestrators"
)

// drainTimeout bounds one outbox pass.
const drainTimeout = 5 * time.Minute

// Scheduler drains the outbox on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	drainer orchestrators.OutboxDrainer
	drain   cron.Job
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler for drainer. Runs that overlap a still-running
// drain are skipped, whether started by cron or by DrainOnce.
func New(drainer orchestrators.OutboxDrainer) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(),
		drainer: drainer,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.drain = cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(s.drainPass))
	return s
}

// RegisterOutbox schedules the outbox drain.
// PRE: spec is a standard cron expression or an @every descriptor
// POST: the job runs once Start is called
func (s *Scheduler) RegisterOutbox(spec string) error {
	if _, err := s.cron.AddJob(spec, s.drain); err != nil {
		return fmt.Errorf("register outbox drain %q: %w", spec, err)
	}
	slog.Info("scheduler_job_registered", "job", "outbox_drain", "spec", spec)
	return nil
}

// DrainOnce runs one outbox pass now. It is skipped while another pass runs.
func (s *Scheduler) DrainOnce() {
	s.drain.Run()
}

func (s *Scheduler) drainPass() {
	ctx, cancel := context.WithTimeout(s.ctx, drainTimeout)
	defer cancel()
	if _, err := s.drainer.ProcessPending(ctx); err != nil {
		slog.Error("outbox_drain_failed", "error", err)
	}
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler_started", "jobs", len(s.cron.Entries()))
}

// Stop cancels in-flight drains and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	slog.Info("scheduler_stopped")
}
