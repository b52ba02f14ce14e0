package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Name identifies an application event.
type Name string

const (
	// UserCreated fires after a successful sign-up.
	UserCreated Name = "app/user.created"
	// SendDailySummary triggers a digest run outside the cron schedule.
	SendDailySummary Name = "app/send.daily.summary"
)

// Known reports whether name is an event the application handles.
func Known(name Name) bool {
	return name == UserCreated || name == SendDailySummary
}

// Event is a published message.
type Event struct {
	Name Name
	Data any
}

// Handler processes one event.
type Handler func(ctx context.Context, event Event) error

// Bus is an in-process pub/sub bus. Publish runs handlers in the background
// on the bus context so they outlive the request that published them.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler
	ctx      context.Context
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewBus creates a bus whose background handlers run on ctx.
func NewBus(ctx context.Context, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{handlers: make(map[Name][]Handler), ctx: ctx, logger: logger}
}

// Subscribe registers a handler for name.
func (b *Bus) Subscribe(name Name, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
	return nil
}

// Publish dispatches the event asynchronously.
func (b *Bus) Publish(event Event) {
	handlers := b.subscribers(event.Name)
	if len(handlers) == 0 {
		b.logger.Debug("no subscribers for event", "event", event.Name)
		return
	}

	b.logger.Info("publishing event", "event", event.Name, "subscribers", len(handlers))
	for _, h := range handlers {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := h(b.ctx, event); err != nil {
				b.logger.Error("event handler failed", "event", event.Name, "error", err)
			}
		}()
	}
}

// PublishSync runs every handler and waits, joining their errors.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	handlers := b.subscribers(event.Name)

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for _, h := range handlers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h(ctx, event); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Wait blocks until background handlers finish.
func (b *Bus) Wait() {
	b.wg.Wait()
}

func (b *Bus) subscribers(name Name) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[name]...)
}
