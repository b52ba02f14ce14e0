package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Signalist/internal/domain"
	"Signalist/internal/events"
	"Signalist/internal/ports"
)

// Scheduler wires the cron driver and the event bus to the digest and
// welcome use cases.
type Scheduler struct {
	driver  ports.Scheduler
	digest  *DigestOrchestrator
	welcome *WelcomeFlow
	logger  *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, digest *DigestOrchestrator, welcome *WelcomeFlow, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, digest: digest, welcome: welcome, logger: logger.With("component", "scheduler")}
}

// Start registers the digest run with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.digest == nil {
		return nil
	}

	job := func(tick time.Time) {
		s.logger.Info("scheduled digest run", "tick", tick.Format(time.RFC3339))
		_, _ = s.run(ctx, TriggerCron)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// Subscribe attaches the event handlers to bus.
func (s *Scheduler) Subscribe(bus *events.Bus) error {
	if err := bus.Subscribe(events.SendDailySummary, s.onSendDailySummary); err != nil {
		return err
	}
	return bus.Subscribe(events.UserCreated, s.onUserCreated)
}

func (s *Scheduler) onSendDailySummary(ctx context.Context, _ events.Event) error {
	if s.digest == nil {
		return fmt.Errorf("digest run: %w", domain.ErrNotConfigured)
	}
	_, err := s.run(ctx, TriggerEvent)
	if errors.Is(err, ErrRunInProgress) {
		return nil
	}
	return err
}

func (s *Scheduler) onUserCreated(ctx context.Context, event events.Event) error {
	if s.welcome == nil {
		return fmt.Errorf("welcome email: %w", domain.ErrNotConfigured)
	}
	user, ok := event.Data.(domain.User)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", event.Name, event.Data)
	}
	return s.welcome.Send(ctx, user)
}

func (s *Scheduler) run(ctx context.Context, trigger Trigger) (RunReport, error) {
	report, err := s.digest.Run(ctx, trigger)
	if err != nil && !errors.Is(err, ErrRunInProgress) {
		s.logger.Error("digest run failed", "trigger", trigger, "stage", report.Stage, "error", err)
	}
	return report, err
}
