package daemon

import (
	"log/slog"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
)

// Scheduler triggers builds on a cron schedule.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// NewScheduler schedules trigger for the cron expression expr.
func NewScheduler(expr string, trigger func(reason string) bool, logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "create scheduler").Build()
	}
	_, err = s.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(func() {
			if !trigger("schedule") {
				logger.Debug("Scheduled build skipped, one is already pending")
			}
		}),
		gocron.WithName("scheduled-build"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid build schedule").
			WithContext("field", "daemon.schedule").
			WithContext("value", expr).
			Build()
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}
