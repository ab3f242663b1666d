package worker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Scheduler runs the export job on a fixed interval, for deployments
// without an external trigger.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	interval  time.Duration
	timeout   time.Duration
	logger    zerolog.Logger
}

// SchedulerConfig holds configuration for the internal scheduler.
type SchedulerConfig struct {
	Runner   Runner
	Interval time.Duration

	// Timeout bounds each scheduled run (default: 15 minutes).
	Timeout time.Duration

	Logger zerolog.Logger
}

// NewScheduler creates an interval scheduler in UTC.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    cfg.Runner,
		interval:  cfg.Interval,
		timeout:   timeout,
		logger:    cfg.Logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.logger.Info().Dur("interval", s.interval).Msg("scheduled export run starting")

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		result, err := s.runner.Run(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("scheduled export run failed")
			return
		}

		s.logger.Info().
			Str("run_id", result.RunID).
			Int("records", result.Records).
			Str("object_key", result.ObjectKey).
			Msg("scheduled export run completed")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
