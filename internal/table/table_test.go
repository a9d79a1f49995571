package table

import (
	"context"
	"io"
	rand "math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtables/internal/bot"
	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/ids"
	"github.com/lox/holdemtables/internal/timer"
)

const actionTimeout = 10 * time.Second

func newTestTable(t *testing.T, opts Options) (*Table, *quartz.Mock) {
	t.Helper()
	mock := quartz.NewMock(t)
	opts.Clock = mock
	opts.Logger = log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	opts.Rand = rand.New(rand.NewPCG(1, 2))
	opts.IDs = ids.NewGenerator(rand.New(rand.NewPCG(3, 4)))
	if opts.SmallBlind == 0 {
		opts.SmallBlind, opts.BigBlind = 5, 10
	}
	if opts.Timing == (timer.Timing{}) {
		opts.Timing = timer.Timing{ActionTimeout: actionTimeout}
	}
	tbl := New(opts)
	t.Cleanup(tbl.Close)
	return tbl, mock
}

// await reads envelopes until one carries a T.
func await[T any](t *testing.T, tbl *Table) (T, Envelope) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env, ok := <-tbl.Out():
			require.True(t, ok, "outbound channel closed")
			if v, ok := any(env.Event).(T); ok {
				return v, env
			}
			if v, ok := any(env.Notice).(T); ok {
				return v, env
			}
		case <-deadline:
			var zero T
			require.FailNowf(t, "timed out", "no %T envelope", zero)
			return zero, Envelope{}
		}
	}
}

func awaitTurn(t *testing.T, tbl *Table, playerID string) ActionRequired {
	t.Helper()
	for {
		ar, _ := await[ActionRequired](t, tbl)
		if ar.PlayerID == playerID {
			return ar
		}
	}
}

func sitDown(t *testing.T, tbl *Table, players ...string) {
	t.Helper()
	for _, p := range players {
		_, err := tbl.Seat(context.Background(), p, 1000)
		require.NoError(t, err)
	}
}

type recordingHandler struct {
	mu        sync.Mutex
	removeAt  int
	timeouts  []int
	removed   map[string]int
	fastFolds map[string]int
	left      map[string]int
	hands     chan HandRecord
}

func newRecordingHandler(removeAt int) *recordingHandler {
	return &recordingHandler{
		removeAt:  removeAt,
		removed:   make(map[string]int),
		fastFolds: make(map[string]int),
		left:      make(map[string]int),
		hands:     make(chan HandRecord, 64),
	}
}

func (h *recordingHandler) OnPlayerTimedOut(_ string, consecutive int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timeouts = append(h.timeouts, consecutive)
	return h.removeAt > 0 && consecutive >= h.removeAt
}

func (h *recordingHandler) OnAFKRemoval(playerID string, chips int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removed[playerID] = chips
}

func (h *recordingHandler) OnFastFold(playerID string, chips int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fastFolds[playerID] = chips
}

func (h *recordingHandler) OnLeft(playerID string, chips int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.left[playerID] = chips
}

func (h *recordingHandler) OnHandComplete(r HandRecord) {
	select {
	case h.hands <- r:
	default:
	}
}

func (h *recordingHandler) snapshot() (timeouts []int, removed, fastFolds, left map[string]int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	copyMap := func(m map[string]int) map[string]int {
		out := make(map[string]int, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	return append([]int(nil), h.timeouts...), copyMap(h.removed), copyMap(h.fastFolds), copyMap(h.left)
}

func TestSeatRejectsDuplicatesAndFullTable(t *testing.T) {
	t.Parallel()
	rules := engine.DefaultOptions()
	rules.MinPlayersToStart = engine.MaxSeats + 1
	tbl, _ := newTestTable(t, Options{Rules: rules})

	sitDown(t, tbl, "p0", "p1", "p2", "p3", "p4", "p5")

	_, err := tbl.Seat(context.Background(), "p6", 1000)
	assert.ErrorIs(t, err, ErrSeatUnavailable)
	_, err = tbl.Seat(context.Background(), "p0", 1000)
	assert.ErrorIs(t, err, ErrSeatUnavailable)

	snap := tbl.Snapshot()
	assert.Equal(t, 6, snap.Players)
	assert.Zero(t, snap.OpenSeats)
	assert.Equal(t, Idle, snap.Phase)
	assert.False(t, snap.HandInProgress)
}

func TestSeatRejectsEmptyStack(t *testing.T) {
	t.Parallel()
	tbl, _ := newTestTable(t, Options{})
	_, err := tbl.Seat(context.Background(), "broke", 0)
	assert.ErrorIs(t, err, ErrSeatUnavailable)
}

func TestHandStartsWhenEnoughPlayersAreSeated(t *testing.T) {
	t.Parallel()
	tbl, _ := newTestTable(t, Options{})

	sitDown(t, tbl, "alice")
	assert.Equal(t, Idle, tbl.Snapshot().Phase)
	sitDown(t, tbl, "bob")

	started, _ := await[engine.HandStarted](t, tbl)
	assert.Equal(t, 0, started.DealerSeat)
	assert.Equal(t, 0, started.SmallBlindSeat, "heads-up dealer posts the small blind")

	for range 2 {
		dealt, env := await[engine.HoleCardsDealt](t, tbl)
		assert.Equal(t, dealt.PlayerID, env.Recipient)
		assert.True(t, env.VisibleTo(dealt.PlayerID))
		assert.False(t, env.VisibleTo("someone-else"))
	}

	ar := awaitTurn(t, tbl, "alice")
	assert.Equal(t, actionTimeout, ar.Timeout)
	assert.Equal(t, 5, ar.ToCall)
	assert.Equal(t, 15, ar.Pot)
	_, ok := engine.IsLegal(ar.Legal, engine.ActionRaise)
	assert.True(t, ok)
	_, ok = engine.IsLegal(ar.Legal, engine.ActionCheck)
	assert.False(t, ok)

	assert.True(t, tbl.Snapshot().HandInProgress)
}

func TestCommandsFollowTheEngine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tbl, _ := newTestTable(t, Options{})
	sitDown(t, tbl, "alice", "bob")
	awaitTurn(t, tbl, "alice")

	err := tbl.Command(ctx, "alice", engine.ActionCheck, 0)
	assert.ErrorIs(t, err, engine.ErrCommandRejected)
	err = tbl.Command(ctx, "bob", engine.ActionCall, 0)
	assert.ErrorIs(t, err, engine.ErrCommandRejected, "out of turn")
	err = tbl.Command(ctx, "carol", engine.ActionFold, 0)
	assert.ErrorIs(t, err, ErrNotSeated)
	err = tbl.Command(ctx, "alice", engine.ActionPostBigBlind, 10)
	assert.ErrorIs(t, err, engine.ErrCommandRejected)

	require.NoError(t, tbl.Command(ctx, "alice", engine.ActionCall, 0))
	awaitTurn(t, tbl, "bob")
	require.NoError(t, tbl.Command(ctx, "bob", engine.ActionCheck, 0))

	flop, _ := await[engine.StreetAdvanced](t, tbl)
	assert.Equal(t, engine.Flop, flop.Street)
	assert.Len(t, flop.Board, 3)

	ar := awaitTurn(t, tbl, "bob")
	assert.Zero(t, ar.ToCall)
	require.NoError(t, tbl.Command(ctx, "bob", engine.ActionBet, 20))

	state, err := tbl.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, state.CurrentBet)
}

func TestEnvelopesAreSequenced(t *testing.T) {
	t.Parallel()
	tbl, _ := newTestTable(t, Options{})
	sitDown(t, tbl, "alice", "bob")

	var last uint64
	deadline := time.After(2 * time.Second)
	for seen := 0; seen < 6; seen++ {
		select {
		case env := <-tbl.Out():
			assert.Greater(t, env.Seq, last)
			assert.Equal(t, tbl.ID(), env.TableID)
			assert.NotEmpty(t, env.Type())
			last = env.Seq
		case <-deadline:
			t.Fatal("timed out")
		}
	}
}

func TestActionTimeoutAutoActsAndRemovesAFKPlayer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newRecordingHandler(2)
	tbl, mock := newTestTable(t, Options{AFK: h, Leaves: h})
	sitDown(t, tbl, "alice", "bob")

	// Hand 1: alice lets her small blind time out and is folded.
	awaitTurn(t, tbl, "alice")
	require.Eventually(t, func() bool { return tbl.scheduler.Pending(timer.ActionTimeout) }, time.Second, time.Millisecond)
	mock.Advance(actionTimeout).MustWait(ctx)

	to, _ := await[PlayerTimedOut](t, tbl)
	assert.Equal(t, "alice", to.PlayerID)
	assert.Equal(t, 1, to.Consecutive)
	assert.Equal(t, engine.ActionFold, to.Action)
	assert.False(t, to.Removed)
	await[engine.HandCompleted](t, tbl)

	// Hand 2: bob is on the button and limps; alice times out again and is
	// removed, so she folds instead of checking her option.
	awaitTurn(t, tbl, "bob")
	require.NoError(t, tbl.Command(ctx, "bob", engine.ActionCall, 0))
	awaitTurn(t, tbl, "alice")
	require.Eventually(t, func() bool { return tbl.scheduler.Pending(timer.ActionTimeout) }, time.Second, time.Millisecond)
	mock.Advance(actionTimeout).MustWait(ctx)

	to, _ = await[PlayerTimedOut](t, tbl)
	assert.Equal(t, 2, to.Consecutive)
	assert.Equal(t, engine.ActionFold, to.Action)
	assert.True(t, to.Removed)

	left, _ := await[PlayerLeft](t, tbl)
	assert.Equal(t, "alice", left.PlayerID)
	assert.Equal(t, ReasonAFK, left.Reason)
	assert.Equal(t, 985, left.Chips)

	timeouts, removed, _, gone := h.snapshot()
	assert.Equal(t, []int{1, 2}, timeouts)
	assert.Equal(t, map[string]int{"alice": 985}, removed)
	assert.Empty(t, gone)

	require.Eventually(t, func() bool { return tbl.Snapshot().Phase == Idle }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"bob"}, tbl.Snapshot().PlayerIDs)
}

func TestVoluntaryActionResetsTimeoutCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newRecordingHandler(0)
	tbl, mock := newTestTable(t, Options{AFK: h})
	sitDown(t, tbl, "alice", "bob")

	awaitTurn(t, tbl, "alice")
	require.Eventually(t, func() bool { return tbl.scheduler.Pending(timer.ActionTimeout) }, time.Second, time.Millisecond)
	mock.Advance(actionTimeout).MustWait(ctx)
	await[engine.HandCompleted](t, tbl)

	// Hand 2: alice is big blind and acts herself after bob limps.
	awaitTurn(t, tbl, "bob")
	require.NoError(t, tbl.Command(ctx, "bob", engine.ActionCall, 0))
	awaitTurn(t, tbl, "alice")
	require.NoError(t, tbl.Command(ctx, "alice", engine.ActionCheck, 0))

	// Flop: alice acts first and times out with a free check.
	awaitTurn(t, tbl, "alice")
	require.Eventually(t, func() bool { return tbl.scheduler.Pending(timer.ActionTimeout) }, time.Second, time.Millisecond)
	mock.Advance(actionTimeout).MustWait(ctx)

	to, _ := await[PlayerTimedOut](t, tbl)
	assert.Equal(t, 1, to.Consecutive)
	assert.Equal(t, engine.ActionCheck, to.Action)
}

func TestFastFoldReleasesFolderAtOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newRecordingHandler(0)
	tbl, _ := newTestTable(t, Options{FastFold: true, FastFolds: h, Leaves: h})
	sitDown(t, tbl, "alice", "bob", "carol")

	awaitTurn(t, tbl, "alice")
	require.NoError(t, tbl.Command(ctx, "alice", engine.ActionFold, 0))

	_, _, folds, _ := h.snapshot()
	assert.Equal(t, map[string]int{"alice": 1000}, folds)

	snap := tbl.Snapshot()
	assert.Equal(t, 2, snap.Players)
	assert.Equal(t, engine.MaxSeats-3, snap.OpenSeats, "seat stays reserved until the hand ends")
	assert.ErrorIs(t, tbl.Command(ctx, "alice", engine.ActionFold, 0), ErrNotSeated)

	left, _ := await[PlayerLeft](t, tbl)
	assert.Equal(t, ReasonFastFold, left.Reason)

	awaitTurn(t, tbl, "bob")
	require.NoError(t, tbl.Command(ctx, "bob", engine.ActionFold, 0))
	await[engine.HandCompleted](t, tbl)

	_, _, folds, gone := h.snapshot()
	assert.Equal(t, map[string]int{"alice": 1000, "bob": 995}, folds)
	assert.Empty(t, gone)

	snap = tbl.Snapshot()
	assert.Equal(t, []string{"carol"}, snap.PlayerIDs)
	assert.Equal(t, engine.MaxSeats-1, snap.OpenSeats)
}

func TestLeaveMidHandFoldsAndCashesOut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newRecordingHandler(0)
	tbl, _ := newTestTable(t, Options{Leaves: h})
	sitDown(t, tbl, "alice", "bob", "carol")

	awaitTurn(t, tbl, "alice")
	require.NoError(t, tbl.Leave(ctx, "bob"))

	_, _, _, gone := h.snapshot()
	assert.Equal(t, map[string]int{"bob": 995}, gone)
	assert.ErrorIs(t, tbl.Leave(ctx, "bob"), ErrNotSeated)

	taken, _ := await[engine.ActionTaken](t, tbl)
	for taken.SeatID != 1 {
		taken, _ = await[engine.ActionTaken](t, tbl)
	}
	assert.Equal(t, engine.ActionFold, taken.Action)
	assert.True(t, taken.Forced)

	// The hand carries on between the others.
	require.NoError(t, tbl.Command(ctx, "alice", engine.ActionCall, 0))
	awaitTurn(t, tbl, "carol")
}

func TestLeaveBetweenHands(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newRecordingHandler(0)
	rules := engine.DefaultOptions()
	rules.MinPlayersToStart = 3
	tbl, _ := newTestTable(t, Options{Leaves: h, Rules: rules})
	sitDown(t, tbl, "alice", "bob")

	require.NoError(t, tbl.Leave(ctx, "alice"))
	_, _, _, gone := h.snapshot()
	assert.Equal(t, map[string]int{"alice": 1000}, gone)
	assert.Equal(t, []string{"bob"}, tbl.Snapshot().PlayerIDs)
}

func TestBotsPlayHandsAndConserveChips(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newRecordingHandler(0)
	tbl, _ := newTestTable(t, Options{Observer: h})

	go func() {
		for range tbl.Out() {
		}
	}()

	for i, p := range []bot.Personality{bot.Rock, bot.TightAggressive, bot.CallingStation} {
		_, err := tbl.SeatBot(ctx, p.Name, p, 5000)
		require.NoError(t, err, i)
	}

	for range 3 {
		select {
		case rec := <-h.hands:
			require.True(t, rec.Final.IsHandComplete)
			assert.Equal(t, tbl.ID(), rec.TableID)
			delta := rec.Final.Rake
			for _, p := range rec.Final.Players {
				delta += p.Chips - p.StartingChips
			}
			assert.Zero(t, delta, rec.Final.HandID)
			assert.NotEmpty(t, rec.Events)
		case <-time.After(5 * time.Second):
			t.Fatal("bots did not finish a hand")
		}
	}
}

func TestPacingDelaysStreetReveal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tbl, mock := newTestTable(t, Options{Timing: timer.Timing{
		ActionTimeout:    actionTimeout,
		StreetTransition: 800 * time.Millisecond,
	}})
	sitDown(t, tbl, "alice", "bob")

	awaitTurn(t, tbl, "alice")
	require.NoError(t, tbl.Command(ctx, "alice", engine.ActionCall, 0))
	awaitTurn(t, tbl, "bob")
	require.NoError(t, tbl.Command(ctx, "bob", engine.ActionCheck, 0))
	await[engine.ActionTaken](t, tbl)

	require.Eventually(t, func() bool { return tbl.scheduler.Pending(timer.StreetTransition) }, time.Second, time.Millisecond)
	select {
	case env := <-tbl.Out():
		t.Fatalf("unexpected %s before the street delay", env.Type())
	default:
	}

	mock.Advance(800 * time.Millisecond).MustWait(ctx)
	flop, _ := await[engine.StreetAdvanced](t, tbl)
	assert.Equal(t, engine.Flop, flop.Street)
}

func TestCloseStopsTable(t *testing.T) {
	t.Parallel()
	tbl, _ := newTestTable(t, Options{})
	sitDown(t, tbl, "alice", "bob")
	tbl.Close()

	_, err := tbl.Seat(context.Background(), "carol", 1000)
	assert.ErrorIs(t, err, ErrTableClosed)

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-tbl.Out():
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}
