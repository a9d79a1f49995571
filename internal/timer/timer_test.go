package timer

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingClock records every callback handed to AfterFunc so a test can
// invoke one after it was cancelled, as a late platform fire would.
type capturingClock struct {
	*quartz.Mock
	callbacks []func()
}

func (c *capturingClock) AfterFunc(d time.Duration, f func(), tags ...string) *quartz.Timer {
	c.callbacks = append(c.callbacks, f)
	return c.Mock.AfterFunc(d, f, tags...)
}

func newScheduler(t *testing.T) (*Scheduler, *quartz.Mock) {
	t.Helper()
	mock := quartz.NewMock(t)
	return New(mock, log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})), mock
}

func TestScheduleFires(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mock := newScheduler(t)

	var fired atomic.Int32
	gen := s.Schedule(ActionTimeout, time.Second, func() { fired.Add(1) })
	assert.Equal(t, uint64(1), gen)
	assert.True(t, s.Pending(ActionTimeout))

	mock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, int32(1), fired.Load())
	assert.False(t, s.Pending(ActionTimeout))
	assert.Equal(t, uint64(1), s.Generation(ActionTimeout), "firing does not bump the generation")
}

func TestRescheduleReplacesTimer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mock := newScheduler(t)

	var first, second atomic.Bool
	s.Schedule(StreetTransition, time.Second, func() { first.Store(true) })
	gen := s.Schedule(StreetTransition, 2*time.Second, func() { second.Store(true) })
	assert.Equal(t, uint64(2), gen)

	mock.Advance(time.Second).MustWait(ctx)
	assert.False(t, first.Load())
	assert.False(t, second.Load())

	mock.Advance(time.Second).MustWait(ctx)
	assert.False(t, first.Load())
	assert.True(t, second.Load())
}

func TestCancelledCallbackIsNoOp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := &capturingClock{Mock: quartz.NewMock(t)}
	s := New(clock, log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}))

	var fired atomic.Int32
	s.Schedule(ShowdownReveal, time.Second, func() { fired.Add(1) })
	s.Cancel(ShowdownReveal)
	assert.Equal(t, uint64(2), s.Generation(ShowdownReveal))
	assert.False(t, s.Pending(ShowdownReveal))

	require.Len(t, clock.callbacks, 1)
	clock.callbacks[0]()
	assert.Zero(t, fired.Load())

	// Rearming the kind does not revive the old callback.
	s.Schedule(ShowdownReveal, time.Second, func() { fired.Add(10) })
	clock.callbacks[0]()
	assert.Zero(t, fired.Load())

	clock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, int32(10), fired.Load())
}

func TestCallbackRunsOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := &capturingClock{Mock: quartz.NewMock(t)}
	s := New(clock, log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}))

	var fired atomic.Int32
	s.Schedule(NextHand, time.Second, func() { fired.Add(1) })
	clock.Advance(time.Second).MustWait(ctx)
	clock.callbacks[0]()
	assert.Equal(t, int32(1), fired.Load())
}

func TestCancelAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mock := newScheduler(t)

	var fired atomic.Int32
	for _, k := range Kinds() {
		s.Schedule(k, time.Second, func() { fired.Add(1) })
	}
	s.CancelAll()
	for _, k := range Kinds() {
		assert.False(t, s.Pending(k), k.String())
		assert.Equal(t, uint64(2), s.Generation(k), k.String())
	}

	mock.Advance(time.Second).MustWait(ctx)
	assert.Zero(t, fired.Load())
}

func TestDelay(t *testing.T) {
	t.Parallel()

	t.Run("fires", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		s, mock := newScheduler(t)

		done := make(chan error, 1)
		go func() { done <- s.Delay(ctx, ActionAnimation, 600*time.Millisecond) }()
		require.Eventually(t, func() bool { return s.Pending(ActionAnimation) }, time.Second, time.Millisecond)

		mock.Advance(600 * time.Millisecond).MustWait(ctx)
		assert.NoError(t, <-done)
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		s, _ := newScheduler(t)

		done := make(chan error, 1)
		go func() { done <- s.Delay(ctx, AllInRunout, time.Second) }()
		require.Eventually(t, func() bool { return s.Pending(AllInRunout) }, time.Second, time.Millisecond)

		s.Cancel(AllInRunout)
		assert.ErrorIs(t, <-done, ErrCancelled)
	})

	t.Run("replaced", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		s, _ := newScheduler(t)

		done := make(chan error, 1)
		go func() { done <- s.Delay(ctx, HandComplete, time.Second) }()
		require.Eventually(t, func() bool { return s.Pending(HandComplete) }, time.Second, time.Millisecond)

		s.Schedule(HandComplete, time.Second, func() {})
		assert.ErrorIs(t, <-done, ErrCancelled)
	})

	t.Run("context done", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		s, _ := newScheduler(t)

		done := make(chan error, 1)
		go func() { done <- s.Delay(ctx, BotThink, time.Second) }()
		require.Eventually(t, func() bool { return s.Pending(BotThink) }, time.Second, time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
		assert.False(t, s.Pending(BotThink))
	})
}

func TestTimingFor(t *testing.T) {
	t.Parallel()
	timing := DefaultTiming()
	assert.Equal(t, 30*time.Second, timing.For(ActionTimeout))
	assert.Equal(t, 600*time.Millisecond, timing.For(ActionAnimation))
	assert.Equal(t, 2*time.Second, timing.For(NextHand))
	for _, k := range Kinds() {
		assert.Positive(t, timing.For(k), k.String())
	}
}
