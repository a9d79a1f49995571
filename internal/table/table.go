// Package table runs one poker table in real time. A single goroutine owns
// the seats and the game state; public methods post work to its mailbox and
// wait for the result. A second goroutine releases engine events and table
// notices to the outbound channel, spacing them with pacing delays so
// observers can follow the hand.
package table

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/lox/holdemtables/internal/bot"
	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/ids"
	"github.com/lox/holdemtables/internal/timer"
	"github.com/lox/holdemtables/poker"
)

var (
	// ErrSeatUnavailable is returned when the table is full or the player is
	// already seated.
	ErrSeatUnavailable = errors.New("seat unavailable")
	// ErrNotSeated is returned for players without a seat at the table.
	ErrNotSeated = errors.New("player not seated")
	// ErrTableClosed is returned once the table has been closed.
	ErrTableClosed = errors.New("table closed")
)

// Phase is the table's position in the hand cycle.
type Phase int

const (
	Idle Phase = iota
	HandInProgress
	BetweenHands
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case HandInProgress:
		return "hand_in_progress"
	case BetweenHands:
		return "between_hands"
	default:
		return "unknown"
	}
}

type removal int

const (
	stays removal = iota
	leaveAtHandEnd
	afkAtHandEnd
	detached // cashed out already; seat is freed at hand end
)

type seat struct {
	playerID string
	chips    int
	bot      *bot.Bot
	timeouts int
	removal  removal
}

// Snapshot is a point-in-time view of the table for lobby listings.
type Snapshot struct {
	ID             string
	SmallBlind     int
	BigBlind       int
	FastFold       bool
	Private        bool
	InviteCode     string
	Players        int
	PlayerIDs      []string
	OpenSeats      int
	Phase          Phase
	HandInProgress bool
	HandID         string
	HandsPlayed    int
}

// Table is one running table.
type Table struct {
	id     string
	opts   Options
	rules  engine.Options
	timing timer.Timing
	logger *log.Logger

	scheduler *timer.Scheduler
	rng       *rand.Rand
	deck      *poker.Deck
	ids       *ids.Generator

	mailbox chan func()
	out     chan Envelope
	beats   *beatQueue
	hurry   atomic.Bool

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	// Owned by the table goroutine.
	seats      [engine.MaxSeats]*seat
	state      engine.GameState
	phase      Phase
	handEvents []engine.Event
	turn       uint64 // bumped whenever the seat to act may have changed
	round      uint64 // bumped whenever a next hand is scheduled
	button     int
	seq        uint64
	hands      int

	infoMu sync.RWMutex
	info   Snapshot
}

// New starts a table.
func New(opts Options) *Table {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	logger := opts.Logger.WithPrefix("table").With("table", opts.ID)

	t := &Table{
		id:        opts.ID,
		opts:      opts,
		rules:     opts.Rules,
		timing:    opts.Timing,
		logger:    logger,
		scheduler: timer.New(opts.Clock, logger),
		rng:       opts.Rand,
		deck:      poker.NewDeck(opts.Rand),
		ids:       opts.IDs,
		mailbox:   make(chan func()),
		out:       make(chan Envelope, opts.OutBuffer),
		beats:     newBeatQueue(),
		ctx:       ctx,
		cancel:    cancel,
		button:    -1,
	}
	t.publish()

	t.wg.Add(2)
	go t.run()
	go t.pace()

	logger.Info("Table opened",
		"blinds", fmt.Sprintf("%d/%d", opts.SmallBlind, opts.BigBlind),
		"fastFold", opts.FastFold,
		"private", opts.InviteCode != "")
	return t
}

// ID returns the table ID.
func (t *Table) ID() string { return t.id }

// Out returns the outbound envelope channel. It is closed after Close.
func (t *Table) Out() <-chan Envelope { return t.out }

// Snapshot returns the latest published view of the table without waiting
// for the table goroutine.
func (t *Table) Snapshot() Snapshot {
	t.infoMu.RLock()
	defer t.infoMu.RUnlock()
	s := t.info
	s.PlayerIDs = append([]string(nil), t.info.PlayerIDs...)
	return s
}

// Close stops the table, cancelling every timer. Pending envelopes are
// dropped. Close must not be called from a handler.
func (t *Table) Close() {
	t.closeOnce.Do(func() {
		t.cancel()
		t.scheduler.CancelAll()
		t.wg.Wait()
		t.logger.Info("Table closed", "hands", t.hands)
	})
}

// Seat seats a player with chips and returns the seat number.
func (t *Table) Seat(ctx context.Context, playerID string, chips int) (int, error) {
	var seatID int
	err := t.call(ctx, func() error {
		var err error
		seatID, err = t.sit(&seat{playerID: playerID, chips: chips})
		return err
	})
	return seatID, err
}

// SeatBot seats a computer-controlled player.
func (t *Table) SeatBot(ctx context.Context, name string, p bot.Personality, chips int) (int, error) {
	var seatID int
	err := t.call(ctx, func() error {
		rng := rand.New(rand.NewPCG(t.rng.Uint64(), t.rng.Uint64()))
		var err error
		seatID, err = t.sit(&seat{
			playerID: name,
			chips:    chips,
			bot:      bot.New(name, p, rng, t.opts.Logger),
		})
		return err
	})
	return seatID, err
}

// Leave removes a player. A player still contesting the hand is folded; one
// who is all-in stays until the hand ends. The final stack is reported to
// the LeaveHandler.
func (t *Table) Leave(ctx context.Context, playerID string) error {
	return t.call(ctx, func() error {
		return t.leave(playerID)
	})
}

// Command applies a betting action for playerID. For bets amount is the bet
// size and for raises the street total; other actions ignore it.
func (t *Table) Command(ctx context.Context, playerID string, action engine.Action, amount int) error {
	return t.call(ctx, func() error {
		seatID, s := t.find(playerID)
		if s == nil {
			return ErrNotSeated
		}
		cmd, err := commandFor(seatID, action, amount)
		if err != nil {
			return err
		}
		if err := t.apply(cmd); err != nil {
			t.logger.Debug("Command rejected", "player", playerID, "action", action, "amount", amount, "error", err)
			return err
		}
		s.timeouts = 0
		return nil
	})
}

// State returns a copy of the current hand state.
func (t *Table) State(ctx context.Context) (engine.GameState, error) {
	var st engine.GameState
	err := t.call(ctx, func() error {
		st = t.state.Clone()
		return nil
	})
	return st, err
}

func commandFor(seatID int, action engine.Action, amount int) (engine.Command, error) {
	switch action {
	case engine.ActionFold:
		return engine.Fold{Seat: seatID}, nil
	case engine.ActionCheck:
		return engine.Check{Seat: seatID}, nil
	case engine.ActionCall:
		return engine.Call{Seat: seatID}, nil
	case engine.ActionBet:
		return engine.Bet{Seat: seatID, Amount: amount}, nil
	case engine.ActionRaise:
		return engine.Raise{Seat: seatID, To: amount}, nil
	case engine.ActionAllIn:
		return engine.AllIn{Seat: seatID}, nil
	default:
		return nil, fmt.Errorf("%w: action %s cannot be submitted", engine.ErrCommandRejected, action)
	}
}

// run is the table goroutine.
func (t *Table) run() {
	defer t.wg.Done()
	for {
		select {
		case fn := <-t.mailbox:
			fn()
			t.publish()
		case <-t.ctx.Done():
			return
		}
	}
}

// call runs fn on the table goroutine and returns its error.
func (t *Table) call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	select {
	case t.mailbox <- func() {
		err := fn()
		t.publish()
		done <- err
	}:
	case <-t.ctx.Done():
		return ErrTableClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-t.ctx.Done():
		return ErrTableClosed
	}
}

// post queues fn for the table goroutine. It is used by timer callbacks and
// the pacer and drops fn once the table is closed.
func (t *Table) post(fn func()) {
	select {
	case t.mailbox <- fn:
	case <-t.ctx.Done():
	}
}

// after runs fn on the table goroutine once the kind's duration elapses.
func (t *Table) after(kind timer.Kind, fn func()) {
	d := t.timing.For(kind)
	if d <= 0 {
		go t.post(fn)
		return
	}
	t.scheduler.Schedule(kind, d, func() { t.post(fn) })
}

func (t *Table) find(playerID string) (int, *seat) {
	for i, s := range t.seats {
		if s != nil && s.removal != detached && s.playerID == playerID {
			return i, s
		}
	}
	return -1, nil
}

func (t *Table) publish() {
	info := Snapshot{
		ID:             t.id,
		SmallBlind:     t.opts.SmallBlind,
		BigBlind:       t.opts.BigBlind,
		FastFold:       t.opts.FastFold,
		Private:        t.opts.InviteCode != "",
		InviteCode:     t.opts.InviteCode,
		OpenSeats:      engine.MaxSeats,
		Phase:          t.phase,
		HandInProgress: t.phase == HandInProgress,
		HandID:         t.state.HandID,
		HandsPlayed:    t.hands,
	}
	for _, s := range t.seats {
		if s == nil {
			continue
		}
		info.OpenSeats--
		if s.removal != detached {
			info.Players++
			info.PlayerIDs = append(info.PlayerIDs, s.playerID)
		}
	}

	t.infoMu.Lock()
	t.info = info
	t.infoMu.Unlock()
}
