package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"clipcash/contexts/finance-core/budget-ledger/application/workers"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the periodic worker jobs off cron schedules.
type Scheduler struct {
	cron      *cron.Cron
	relay     workers.OutboxRelay
	completer workers.LowBudgetCompleter
	logger    *slog.Logger
	ctx       context.Context
}

func New(
	ctx context.Context,
	relay workers.OutboxRelay,
	completer workers.LowBudgetCompleter,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:      cron.New(),
		relay:     relay,
		completer: completer,
		logger:    logger,
		ctx:       ctx,
	}
}

// RegisterAll wires the relay and completer jobs. Schedules use the
// robfig/cron syntax, including @every descriptors. An empty schedule
// skips that job.
func (s *Scheduler) RegisterAll(relaySchedule, completerSchedule string) error {
	if relaySchedule != "" {
		if _, err := s.cron.AddFunc(relaySchedule, s.runRelay); err != nil {
			return fmt.Errorf("register outbox relay: %w", err)
		}
	}
	if completerSchedule != "" {
		if _, err := s.cron.AddFunc(completerSchedule, s.runCompleter); err != nil {
			return fmt.Errorf("register low-budget completer: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started",
		"event", "scheduler_started",
		"module", "internal/platform/scheduler",
		"layer", "platform",
	)
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped",
		"event", "scheduler_stopped",
		"module", "internal/platform/scheduler",
		"layer", "platform",
	)
}

func (s *Scheduler) runRelay() {
	if err := s.relay.RunOnce(s.ctx); err != nil {
		s.logger.Error("outbox relay run failed",
			"event", "scheduler_relay_failed",
			"module", "internal/platform/scheduler",
			"layer", "platform",
			"error", err.Error(),
		)
	}
}

func (s *Scheduler) runCompleter() {
	if err := s.completer.RunOnce(s.ctx); err != nil {
		s.logger.Error("low-budget completer run failed",
			"event", "scheduler_completer_failed",
			"module", "internal/platform/scheduler",
			"layer", "platform",
			"error", err.Error(),
		)
	}
}
