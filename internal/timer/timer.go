// Package timer provides the named, generation-tagged timers that pace a
// table. Each kind holds at most one live timer. Every schedule or cancel
// bumps the kind's generation, and a firing timer whose generation is no
// longer current does nothing, so a fire that races a cancel is discarded.
package timer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// ErrCancelled is returned by Delay when its timer is cancelled or replaced.
var ErrCancelled = errors.New("timer cancelled")

// Kind names a timer slot.
type Kind int

const (
	ActionTimeout Kind = iota
	ActionAnimation
	StreetTransition
	AllInRunout
	ShowdownReveal
	HandComplete
	NextHand
	BotThink

	numKinds
)

// Kinds lists every timer kind.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for k := range numKinds {
		out[k] = k
	}
	return out
}

func (k Kind) String() string {
	switch k {
	case ActionTimeout:
		return "action_timeout"
	case ActionAnimation:
		return "action_animation"
	case StreetTransition:
		return "street_transition"
	case AllInRunout:
		return "allin_runout"
	case ShowdownReveal:
		return "showdown_reveal"
	case HandComplete:
		return "hand_complete"
	case NextHand:
		return "next_hand"
	case BotThink:
		return "bot_think"
	default:
		return "unknown"
	}
}

type slot struct {
	generation uint64
	timer      *quartz.Timer
	cancelled  chan struct{} // closed when a pending Delay is cancelled
}

// Scheduler owns one slot per Kind. It is safe for concurrent use.
type Scheduler struct {
	clock  quartz.Clock
	logger *log.Logger

	mu    sync.Mutex
	slots [numKinds]slot
}

// New creates a Scheduler on the given clock.
func New(clock quartz.Clock, logger *log.Logger) *Scheduler {
	return &Scheduler{
		clock:  clock,
		logger: logger.WithPrefix("timer"),
	}
}

// Schedule arms fn to run after d, replacing any live timer of the same kind.
// It returns the generation the timer was armed with.
func (s *Scheduler) Schedule(kind Kind, d time.Duration, fn func()) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.resetLocked(kind)
	s.slots[kind].timer = s.clock.AfterFunc(d, s.guard(kind, gen, fn), kind.String())
	return gen
}

// Delay blocks until a timer of kind fires after d. It returns ErrCancelled
// when the timer is cancelled or replaced first, or the context's error.
func (s *Scheduler) Delay(ctx context.Context, kind Kind, d time.Duration) error {
	fired := make(chan struct{})
	cancelled := make(chan struct{})

	s.mu.Lock()
	gen := s.resetLocked(kind)
	sl := &s.slots[kind]
	sl.cancelled = cancelled
	sl.timer = s.clock.AfterFunc(d, s.guard(kind, gen, func() { close(fired) }), kind.String())
	s.mu.Unlock()

	select {
	case <-fired:
		return nil
	case <-cancelled:
		return ErrCancelled
	case <-ctx.Done():
		s.mu.Lock()
		if s.slots[kind].generation == gen {
			s.resetLocked(kind)
		}
		s.mu.Unlock()
		return ctx.Err()
	}
}

// Cancel stops the live timer of kind, if any. A fire already in flight is
// discarded.
func (s *Scheduler) Cancel(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(kind)
}

// CancelAll cancels every kind.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range numKinds {
		s.resetLocked(k)
	}
}

// Generation returns the current generation of kind.
func (s *Scheduler) Generation(kind Kind) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[kind].generation
}

// Pending reports whether kind has a live timer.
func (s *Scheduler) Pending(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[kind].timer != nil
}

// resetLocked stops the slot's timer, releases any Delay waiting on it and
// advances the generation.
func (s *Scheduler) resetLocked(kind Kind) uint64 {
	sl := &s.slots[kind]
	if sl.timer != nil {
		sl.timer.Stop()
		sl.timer = nil
	}
	if sl.cancelled != nil {
		close(sl.cancelled)
		sl.cancelled = nil
	}
	sl.generation++
	return sl.generation
}

// guard wraps fn so it runs at most once, and only while gen is still the
// kind's generation.
func (s *Scheduler) guard(kind Kind, gen uint64, fn func()) func() {
	return func() {
		s.mu.Lock()
		sl := &s.slots[kind]
		if sl.generation != gen || sl.timer == nil {
			current := sl.generation
			s.mu.Unlock()
			s.logger.Debug("Dropping stale timer fire", "kind", kind, "generation", gen, "current", current)
			return
		}
		sl.timer = nil
		sl.cancelled = nil
		s.mu.Unlock()
		fn()
	}
}
