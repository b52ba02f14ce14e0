package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"Signalist/internal/ports"
	"Signalist/pkg/logger"
)

// DefaultSpec runs the digest daily at noon.
const DefaultSpec = "0 12 * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// CronScheduler runs a job on a five-field cron expression.
type CronScheduler struct {
	spec     string
	location *time.Location
	log      *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler validates spec; a nil location means UTC.
func NewCronScheduler(spec string, loc *time.Location, log *slog.Logger) (*CronScheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}

	if log == nil {
		log = slog.Default()
	}
	return &CronScheduler{spec: spec, location: loc, log: log}, nil
}

// Spec returns the configured expression.
func (c *CronScheduler) Spec() string {
	return c.spec
}

// Start registers job and begins the cron loop. Overlapping ticks are skipped.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cronLogger := cron.PrintfLogger(logger.New("cron", c.log))
	cr := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(c.location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	if _, err := cr.AddFunc(c.spec, func() {
		if ctx.Err() != nil {
			return
		}
		job(time.Now().In(c.location))
	}); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	cr.Start()
	c.cron = cr
	c.log.Info("scheduler started", "spec", c.spec, "timezone", c.location.String())

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()
	return nil
}

// Stop halts the cron loop and waits for a running job until ctx is done.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()

	if cr == nil {
		return nil
	}

	select {
	case <-cr.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports when the job will next run after from.
func (c *CronScheduler) Next(from time.Time) time.Time {
	sched, err := parser.Parse(c.spec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(from.In(c.location))
}
