package diagnostics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler reruns diagnostics on a cron schedule.
type Scheduler struct {
	runner *Runner
	logger *slog.Logger
	cron   *cron.Cron
}

// NewScheduler wraps runner.
func NewScheduler(runner *Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{runner: runner, logger: logger}
}

// Start registers schedule (standard five-field or a descriptor such as
// "@every 10m"). An empty schedule leaves the scheduler idle.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		return nil
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		s.cron = nil
		return fmt.Errorf("schedule diagnostics %q: %w", schedule, err)
	}
	s.cron.Start()
	s.logger.Info("diagnostics scheduled", slog.String("schedule", schedule))
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("diagnostics scheduler stopped")
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	report := s.runner.Run(ctx)
	s.logger.Info("scheduled diagnostics completed", slog.Bool("healthy", report.Healthy()))
}
