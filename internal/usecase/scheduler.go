package usecase

import (
	"context"
	"log/slog"
	"time"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/ports"
)

// Scheduler wires the trigger driver with the suggestion pipeline.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring generation runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler. Each trigger plans NextTargetDate.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	return s.driver.Start(ctx, func(trigger time.Time) {
		s.run(ctx, trigger)
	})
}

func (s *Scheduler) run(ctx context.Context, trigger time.Time) {
	target := NextTargetDate(trigger)
	result, err := s.pipeline.Suggest(ctx, target)
	if s.logger == nil {
		return
	}
	if err != nil {
		s.logger.Error("scheduled generation failed", "trigger", trigger, "date", domain.DateKey(target), "error", err)
		return
	}
	s.logger.Info("scheduled generation done",
		"date", domain.DateKey(target),
		"assigned", result.Proposal.AssignmentCount(),
		"leftover", len(result.Leftover))
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
