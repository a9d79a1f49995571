package lobby

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/ids"
	"github.com/lox/holdemtables/internal/table"
	"github.com/lox/holdemtables/internal/timer"
)

const nextHand = time.Second

var (
	oneThree = Blinds{Small: 1, Big: 3}
	fastPool = Pool{Blinds: oneThree, FastFold: true}
	slowPool = Pool{Blinds: oneThree}
)

type cashOut struct {
	chips  int
	reason table.LeaveReason
}

type cashier struct {
	mu  sync.Mutex
	out map[string]cashOut
}

func (c *cashier) pay(playerID string, chips int, reason table.LeaveReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out[playerID] = cashOut{chips: chips, reason: reason}
}

func (c *cashier) get(playerID string) (cashOut, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	co, ok := c.out[playerID]
	return co, ok
}

func newTestManager(t *testing.T, opts Options) (*Manager, *quartz.Mock, *cashier) {
	t.Helper()
	mock := quartz.NewMock(t)
	c := &cashier{out: make(map[string]cashOut)}
	opts.Clock = mock
	opts.Logger = log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	opts.Seed = 42
	opts.CashOut = c.pay
	if opts.Timing == (timer.Timing{}) {
		opts.Timing = timer.Timing{ActionTimeout: 30 * time.Second, NextHand: nextHand}
	}
	m := NewManager(opts)
	t.Cleanup(m.Close)
	return m, mock, c
}

func join(t *testing.T, m *Manager, tableID string, players ...string) {
	t.Helper()
	for _, p := range players {
		_, err := m.Join(context.Background(), tableID, p, 300)
		require.NoError(t, err)
	}
}

func TestFindAvailableTablePrefersFullestFastFoldTable(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t, Options{})

	small, err := m.CreateTable(fastPool)
	require.NoError(t, err)
	big, err := m.CreateTable(fastPool)
	require.NoError(t, err)
	join(t, m, small, "a", "b")
	join(t, m, big, "c", "d", "e", "f")

	got, ok := m.FindAvailableTable(fastPool)
	require.True(t, ok)
	assert.Equal(t, big, got.ID)
	assert.Equal(t, 4, got.Players)
	assert.False(t, got.HandInProgress)
}

func TestFindAvailableTablePrefersEmptiestNormalTable(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t, Options{})

	big, err := m.CreateTable(slowPool)
	require.NoError(t, err)
	small, err := m.CreateTable(slowPool)
	require.NoError(t, err)
	join(t, m, big, "c", "d", "e", "f")
	join(t, m, small, "a", "b")

	got, ok := m.FindAvailableTable(slowPool)
	require.True(t, ok)
	assert.Equal(t, small, got.ID)
	assert.Equal(t, 2, got.Players)

	_, ok = m.FindAvailableTable(Pool{Blinds: Blinds{Small: 5, Big: 10}})
	assert.False(t, ok, "no table at other blinds")
	_, ok = m.FindAvailableTable(fastPool)
	assert.False(t, ok, "normal tables are not in the fast-fold pool")
}

func TestFindAvailableTableSkipsFastFoldHandsInProgress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, mock, _ := newTestManager(t, Options{})

	busy, err := m.CreateTable(fastPool)
	require.NoError(t, err)
	join(t, m, busy, "c", "d", "e", "f")
	mock.Advance(nextHand).MustWait(ctx)

	tbl, err := m.Get(busy)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return tbl.Snapshot().HandInProgress }, 2*time.Second, time.Millisecond)

	_, ok := m.FindAvailableTable(fastPool)
	assert.False(t, ok)

	waiting, err := m.CreateTable(fastPool)
	require.NoError(t, err)
	join(t, m, waiting, "a", "b")

	got, ok := m.FindAvailableTable(fastPool)
	require.True(t, ok)
	assert.Equal(t, waiting, got.ID)
}

func TestQuickSeatSpreadsNormalTables(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, _ := newTestManager(t, Options{})

	first, err := m.CreateTable(slowPool)
	require.NoError(t, err)
	second, err := m.CreateTable(slowPool)
	require.NoError(t, err)

	counts := map[string]int{}
	for _, p := range []string{"a", "b", "c", "d"} {
		id, _, err := m.QuickSeat(ctx, p, slowPool, 300)
		require.NoError(t, err)
		counts[id]++
	}
	assert.Equal(t, map[string]int{first: 2, second: 2}, counts)

	_, _, err = m.QuickSeat(ctx, "a", slowPool, 300)
	assert.ErrorIs(t, err, ErrAlreadySeated)
	_, _, err = m.QuickSeat(ctx, "z", slowPool, 0)
	assert.ErrorIs(t, err, table.ErrSeatUnavailable)
}

func TestQuickSeatOpensTableWhenFull(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, _ := newTestManager(t, Options{})

	seen := map[string]bool{}
	for _, p := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		id, _, err := m.QuickSeat(ctx, p, slowPool, 300)
		require.NoError(t, err)
		seen[id] = true
	}
	assert.Len(t, seen, 2)

	id, ok := m.TableFor("g")
	require.True(t, ok)
	tbl, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"g"}, tbl.Snapshot().PlayerIDs)
}

func TestPrivateTables(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, c := newTestManager(t, Options{})

	code, id, err := m.CreatePrivateTable(oneThree)
	require.NoError(t, err)
	assert.True(t, ids.ValidInviteCode(code))

	_, ok := m.FindAvailableTable(slowPool)
	assert.False(t, ok, "private tables are not matched")

	got, _, err := m.JoinByInviteCode(ctx, " "+strings.ToLower(code)+" ", "alice", 300)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, _, err = m.JoinByInviteCode(ctx, "ZZZZZZ", "bob", 300)
	assert.ErrorIs(t, err, ErrInviteCodeNotFound)

	listings := m.List()
	require.Len(t, listings, 1)
	assert.True(t, listings[0].Private)
	assert.Equal(t, 1, listings[0].Players)

	require.NoError(t, m.Leave(ctx, "alice"))
	assert.Equal(t, cashOut{chips: 300, reason: table.ReasonLeft}, mustCashOut(t, c, "alice"))

	_, err = m.Get(id)
	assert.ErrorIs(t, err, ErrTableNotFound, "empty private table is closed")
	_, _, err = m.JoinByInviteCode(ctx, code, "bob", 300)
	assert.ErrorIs(t, err, ErrInviteCodeNotFound)
}

func TestInviteCodesAreUnique(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t, Options{})

	codes := map[string]bool{}
	for range 50 {
		code, _, err := m.CreatePrivateTable(oneThree)
		require.NoError(t, err)
		assert.False(t, codes[code], code)
		codes[code] = true
	}
}

func TestCleanupKeepsOneTablePerPool(t *testing.T) {
	t.Parallel()
	m, mock, _ := newTestManager(t, Options{CleanupInterval: time.Minute})

	other := Pool{Blinds: Blinds{Small: 5, Big: 10}}
	emptyOld, _ := m.CreateTable(slowPool)
	occupied, _ := m.CreateTable(slowPool)
	emptyNew, _ := m.CreateTable(slowPool)
	keep, _ := m.CreateTable(other)
	drop, _ := m.CreateTable(other)
	join(t, m, occupied, "alice")
	_, privateID, err := m.CreatePrivateTable(oneThree)
	require.NoError(t, err)

	assert.Equal(t, 3, m.Cleanup())

	var left []string
	for _, l := range m.List() {
		left = append(left, l.ID)
	}
	assert.Equal(t, []string{occupied, keep, privateID}, left)
	for _, id := range []string{emptyOld, emptyNew, drop} {
		_, err := m.Get(id)
		assert.ErrorIs(t, err, ErrTableNotFound)
	}

	mock.Advance(time.Minute).MustWait(context.Background())
	assert.Equal(t, 1, m.Cleanup(), "unjoined private table expires")
	_, err = m.Get(privateID)
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestRunSweepsOnInterval(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	m, mock, _ := newTestManager(t, Options{CleanupInterval: time.Minute})

	for range 3 {
		_, err := m.CreateTable(slowPool)
		require.NoError(t, err)
	}

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		mock.Advance(time.Minute).MustWait(ctx)
		return len(m.List()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestAFKPlayerIsRemovedAndCashedOut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, mock, c := newTestManager(t, Options{
		MaxConsecutiveTimeouts: 1,
		Timing:                 timer.Timing{ActionTimeout: 10 * time.Second, NextHand: nextHand},
	})

	id, _, err := m.QuickSeat(ctx, "alice", slowPool, 300)
	require.NoError(t, err)
	_, _, err = m.QuickSeat(ctx, "bob", slowPool, 300)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mock.Advance(time.Second).MustWait(ctx)
		_, ok := c.get("alice")
		return ok
	}, 2*time.Second, time.Millisecond)

	// alice timed out on her small blind and was folded.
	assert.Equal(t, cashOut{chips: 299, reason: table.ReasonAFK}, mustCashOut(t, c, "alice"))
	_, ok := m.TableFor("alice")
	assert.False(t, ok)

	got, ok := m.TableFor("bob")
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestFastFoldReseatsAtAnotherTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, mock, _ := newTestManager(t, Options{})

	origin, err := m.CreateTable(fastPool)
	require.NoError(t, err)
	waiting, err := m.CreateTable(fastPool)
	require.NoError(t, err)
	join(t, m, origin, "alice", "bob", "carol")
	join(t, m, waiting, "dave")
	mock.Advance(nextHand).MustWait(ctx)

	// Three-handed, the button acts first preflop.
	require.Eventually(t, func() bool {
		return m.Act(ctx, "alice", engine.ActionFold, 0) == nil
	}, 2*time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		id, ok := m.TableFor("alice")
		return ok && id == waiting
	}, 2*time.Second, time.Millisecond)

	tbl, err := m.Get(waiting)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(tbl.Snapshot().PlayerIDs) == 2
	}, 2*time.Second, time.Millisecond)
	assert.ElementsMatch(t, []string{"dave", "alice"}, tbl.Snapshot().PlayerIDs)

	err = m.Act(ctx, "nobody", engine.ActionFold, 0)
	assert.ErrorIs(t, err, table.ErrNotSeated)
}

func TestCompletedHandsAreRecorded(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, mock, _ := newTestManager(t, Options{})

	id, err := m.CreateTable(slowPool)
	require.NoError(t, err)
	join(t, m, id, "alice", "bob")
	go func() { _ = m.Run(ctx) }()
	mock.Advance(nextHand).MustWait(ctx)

	// Heads-up, the button posts the small blind and acts first.
	require.Eventually(t, func() bool {
		return m.Act(ctx, "alice", engine.ActionFold, 0) == nil
	}, 2*time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		tot, ok := m.Stats().Player("bob")
		return ok && tot.Hands == 1
	}, 2*time.Second, time.Millisecond)

	bob, _ := m.Stats().Player("bob")
	alice, _ := m.Stats().Player("alice")
	assert.Equal(t, 1, bob.TotalProfit)
	assert.Equal(t, -1, alice.TotalProfit)
	assert.Zero(t, bob.RakePaid, "no flop, no drop")
}

func TestStakesOpenWithBots(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t, Options{
		Stakes: []Stake{
			{Pool: slowPool, Bots: 3},
			{Pool: fastPool},
		},
	})

	listings := m.List()
	require.Len(t, listings, 2)
	assert.Equal(t, 3, listings[0].Players)
	assert.Equal(t, oneThree, listings[0].Blinds)
	assert.Zero(t, listings[1].Players)
	assert.True(t, listings[1].FastFold)
}

func mustCashOut(t *testing.T, c *cashier, playerID string) cashOut {
	t.Helper()
	co, ok := c.get(playerID)
	require.True(t, ok, "no cash-out for %s", playerID)
	return co
}

func TestJoinUnknownTable(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t, Options{})

	_, err := m.Join(context.Background(), "not-a-table", "alice", 300)
	assert.ErrorIs(t, err, ErrTableNotFound)

	_, err = m.Join(context.Background(), ids.NewGenerator(nil).New("tbl"), "alice", 300)
	assert.ErrorIs(t, err, ErrTableNotFound)

	_, seated := m.TableFor("alice")
	assert.False(t, seated)
}
