// =============================================================================
// Retail Star Schema Pipeline - Scheduler
// =============================================================================
//
// The scheduler re-runs the full pipeline on a cron expression until its
// context is cancelled. Runs never overlap: a trigger that fires while the
// previous run is still going is skipped.
//
// =============================================================================

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled pipeline run.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule.
type Scheduler struct {
	spec       string
	schedule   cron.Schedule
	job        Job
	runOnStart bool
	logger     *slog.Logger
}

// New validates spec and creates a scheduler. spec is a standard five-field
// cron expression or a descriptor such as "@daily" or "@every 1h". When
// runOnStart is set the job runs once before the first trigger is armed.
func New(spec string, job Job, runOnStart bool, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		spec:       spec,
		schedule:   schedule,
		job:        job,
		runOnStart: runOnStart,
		logger:     logger.With("component", "scheduler"),
	}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run blocks until ctx is cancelled, then waits for a running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{logger: s.logger}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	run := func() {
		started := time.Now()
		s.logger.Info("scheduled run started")
		if err := s.job(ctx); err != nil {
			s.logger.Error("scheduled run failed", "error", err, "duration", time.Since(started))
			return
		}
		s.logger.Info("scheduled run finished", "duration", time.Since(started))
	}

	if s.runOnStart {
		run()
	}

	c.Schedule(s.schedule, cron.FuncJob(run))
	c.Start()
	s.logger.Info("scheduler started", "cron", s.spec, "next", s.Next(time.Now()))

	<-ctx.Done()
	s.logger.Info("scheduler stopping")
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
