package vote

import (
	"context"
	"log/slog"

	"github.com/robfig/cron"
)

const reconcileBatch = 100

// Scheduler runs Reconcile on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler registers the reconcile job. schedule uses robfig/cron syntax,
// e.g. "@every 30s".
func NewScheduler(service *Service, schedule string, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(),
		service: service,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and cancels an in-flight pass.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.cancel()
}

func (s *Scheduler) run() {
	if _, err := s.service.Reconcile(s.ctx, reconcileBatch); err != nil && s.logger != nil {
		s.logger.Error("reconcile pass failed", "error", err)
	}
}
