package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsEverySubscriber(t *testing.T) {
	t.Parallel()

	bus := NewBus(context.Background(), nil)
	var calls int32
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Subscribe(SendDailySummary, func(context.Context, Event) error {
			atomic.AddInt32(&calls, 1)
			return nil
		}))
	}
	require.NoError(t, bus.Subscribe(UserCreated, func(context.Context, Event) error {
		t.Error("wrong event delivered")
		return nil
	}))

	bus.Publish(Event{Name: SendDailySummary})
	bus.Wait()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPublishSyncJoinsErrors(t *testing.T) {
	t.Parallel()

	bus := NewBus(context.Background(), nil)
	require.NoError(t, bus.Subscribe(UserCreated, func(context.Context, Event) error { return errors.New("one") }))
	require.NoError(t, bus.Subscribe(UserCreated, func(context.Context, Event) error { return nil }))

	err := bus.PublishSync(context.Background(), Event{Name: UserCreated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one")

	assert.NoError(t, bus.PublishSync(context.Background(), Event{Name: SendDailySummary}))
	assert.Error(t, bus.Subscribe(UserCreated, nil))
}

func TestKnown(t *testing.T) {
	t.Parallel()

	assert.True(t, Known("app/user.created"))
	assert.True(t, Known("app/send.daily.summary"))
	assert.False(t, Known("app/unknown"))
}
