package table

import (
	"context"
	"errors"
	"sync"

	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/timer"
)

// beat is a group of envelopes released together, optionally after a pacing
// delay. after runs on the table goroutine once the envelopes are out.
type beat struct {
	paced     bool
	delay     timer.Kind
	envelopes []Envelope
	after     func()
}

func (b beat) empty() bool {
	return len(b.envelopes) == 0 && b.after == nil
}

// pacingFor returns the delay that precedes ev, if any.
func pacingFor(ev engine.Event) (timer.Kind, bool) {
	switch e := ev.(type) {
	case engine.StreetAdvanced:
		if e.Runout {
			return timer.AllInRunout, true
		}
		return timer.StreetTransition, true
	case engine.ShowdownRevealed:
		return timer.ShowdownReveal, true
	}
	return 0, false
}

// beatQueue is an unbounded FIFO so the table goroutine never blocks on a
// slow consumer.
type beatQueue struct {
	mu    sync.Mutex
	items []beat
	wake  chan struct{}
}

func newBeatQueue() *beatQueue {
	return &beatQueue{wake: make(chan struct{}, 1)}
}

func (q *beatQueue) push(b beat) {
	q.mu.Lock()
	q.items = append(q.items, b)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *beatQueue) pop(ctx context.Context) (beat, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			b := q.items[0]
			q.items[0] = beat{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return b, true
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-ctx.Done():
			return beat{}, false
		}
	}
}

// pace releases beats to the outbound channel, waiting out each pacing
// delay. It is the only sender on t.out.
func (t *Table) pace() {
	defer t.wg.Done()
	defer close(t.out)

	for {
		b, ok := t.beats.pop(t.ctx)
		if !ok {
			return
		}
		if b.paced && !t.hurry.Load() {
			if d := t.timing.For(b.delay); d > 0 {
				err := t.scheduler.Delay(t.ctx, b.delay, d)
				if err != nil && !errors.Is(err, timer.ErrCancelled) {
					return
				}
			}
		}
		for _, env := range b.envelopes {
			select {
			case t.out <- env:
			case <-t.ctx.Done():
				return
			}
		}
		if b.after != nil {
			t.post(b.after)
		}
	}
}
