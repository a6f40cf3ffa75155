package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joshua-takyi/bookings/internal/metrics"
	"github.com/joshua-takyi/bookings/internal/models"
)

type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// saga records the committed steps of a multi-entity write together with their
// inverses. Inverses only run when compensate is set.
type saga struct {
	operation  string
	compensate bool
	steps      []compensation
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

func newSaga(operation string, compensate bool, collector metrics.MetricsCollector, logger *slog.Logger) *saga {
	return &saga{
		operation:  operation,
		compensate: compensate,
		metrics:    collector,
		logger:     logger,
	}
}

// done marks step as committed. undo may be nil when the step has no inverse.
func (s *saga) done(step string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{step: step, undo: undo})
}

func (s *saga) completed() []string {
	names := make([]string, 0, len(s.steps))
	for _, c := range s.steps {
		names = append(names, c.step)
	}
	return names
}

// fail turns err into a partial failure naming step and the steps already committed.
// With nothing committed err is returned as is.
func (s *saga) fail(ctx context.Context, step string, err error) error {
	if len(s.steps) == 0 {
		return err
	}

	appErr := models.NewPartialFailureError(step, s.completed(), err)
	s.metrics.RecordPartialFailure(s.operation, step)
	s.logger.Error("booking partially applied",
		slog.String("operation", s.operation),
		slog.String("failed_step", step),
		slog.Any("completed_steps", appErr.Completed),
		slog.String("error", err.Error()),
	)

	if s.compensate {
		if rbErr := s.rollback(ctx); rbErr != nil {
			appErr.Message = "booking partially applied, rollback incomplete"
			appErr.Err = errors.Join(err, rbErr)
		} else {
			appErr.Message = "booking rolled back"
		}
	}
	return appErr
}

// rollback runs the inverses newest first. It keeps going past failures.
func (s *saga) rollback(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		if c.undo == nil {
			continue
		}
		if err := c.undo(ctx); err != nil {
			s.logger.Error("compensation failed",
				slog.String("operation", s.operation),
				slog.String("step", c.step),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
