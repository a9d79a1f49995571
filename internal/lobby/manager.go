// Package lobby owns every running table. It matches players to tables,
// issues invite codes for private tables, reseats fast-fold players and
// closes tables nobody needs.
package lobby

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdemtables/internal/bot"
	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/equity"
	"github.com/lox/holdemtables/internal/ids"
	"github.com/lox/holdemtables/internal/randutil"
	"github.com/lox/holdemtables/internal/stats"
	"github.com/lox/holdemtables/internal/table"
	"github.com/lox/holdemtables/internal/timer"
)

var (
	ErrTableNotFound      = errors.New("lobby: table not found")
	ErrInviteCodeNotFound = errors.New("lobby: invite code not found")
	ErrAlreadySeated      = errors.New("lobby: player already seated")
	ErrManagerClosed      = errors.New("lobby: manager closed")

	errNoChips = fmt.Errorf("%w: buy-in must be positive", table.ErrSeatUnavailable)
)

const (
	defaultMaxConsecutiveTimeouts = 3
	defaultCleanupInterval        = time.Minute
	seatAttempts                  = 4
)

// Blinds is a small/big blind pair.
type Blinds struct {
	Small int
	Big   int
}

func (b Blinds) String() string { return fmt.Sprintf("%d/%d", b.Small, b.Big) }

// Pool groups the public tables players can be matched across.
type Pool struct {
	Blinds   Blinds
	FastFold bool
}

func (p Pool) String() string {
	if p.FastFold {
		return p.Blinds.String() + " fast-fold"
	}
	return p.Blinds.String()
}

// Stake is a pool the lobby keeps open from startup, optionally with bots.
type Stake struct {
	Pool
	Bots     int
	BotChips int
	// Profiles names the bot personalities to seat in turn. Empty cycles
	// through every profile.
	Profiles []string
}

// Listing is the lobby view of one table.
type Listing struct {
	ID             string
	Blinds         Blinds
	FastFold       bool
	Private        bool
	Players        int
	OpenSeats      int
	HandInProgress bool
	HandsPlayed    int
}

// CashOutFunc receives the final stack of a player who no longer sits at
// any table.
type CashOutFunc func(playerID string, chips int, reason table.LeaveReason)

// Options configure a Manager.
type Options struct {
	Clock  quartz.Clock
	Logger *log.Logger
	// Seed drives every table's deck and bots.
	Seed int64
	IDs  *ids.Generator

	Rules  engine.Options
	Timing timer.Timing

	MaxConsecutiveTimeouts int
	CleanupInterval        time.Duration
	Stakes                 []Stake

	// CashOut is called when a player's chips leave the tables.
	CashOut CashOutFunc
	// Deliver receives every envelope from every table in emission order
	// per table. It must not block for long.
	Deliver func(table.Envelope)

	Recorder      *stats.Recorder
	EquitySamples int
}

func (o *Options) setDefaults() {
	if o.Clock == nil {
		o.Clock = quartz.NewReal()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Seed == 0 {
		o.Seed = randutil.RandomSeed()
	}
	if o.Rules == (engine.Options{}) {
		o.Rules = engine.DefaultOptions()
	}
	if o.Timing == (timer.Timing{}) {
		o.Timing = timer.DefaultTiming()
	}
	if o.MaxConsecutiveTimeouts <= 0 {
		o.MaxConsecutiveTimeouts = defaultMaxConsecutiveTimeouts
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = defaultCleanupInterval
	}
	if o.Recorder == nil {
		o.Recorder = stats.NewRecorder()
	}
	if o.EquitySamples <= 0 {
		o.EquitySamples = equity.DefaultSamples
	}
}

type entry struct {
	id      string
	tbl     *table.Table
	pool    Pool
	code    string
	order   uint64
	created time.Time
	pending int // seat requests in flight
}

func (e *entry) private() bool { return e.code != "" }

// Manager is the registry of running tables. Its indices are guarded by mu;
// tables are never called while mu is held.
type Manager struct {
	opts    Options
	logger  *log.Logger
	clock   quartz.Clock
	streams *randutil.Streams
	ids     *ids.Generator

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	hands  chan table.HandRecord

	mu      sync.Mutex
	closed  bool
	tables  map[string]*entry
	players map[string]string // player -> table
	invites map[string]string // invite code -> table
	order   uint64
}

// NewManager creates a manager and opens one table for every configured
// stake.
func NewManager(opts Options) *Manager {
	opts.setDefaults()
	streams := randutil.NewStreams(opts.Seed)
	if opts.IDs == nil {
		opts.IDs = ids.NewGenerator(streams.Next())
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		opts:    opts,
		logger:  opts.Logger.WithPrefix("lobby"),
		clock:   opts.Clock,
		streams: streams,
		ids:     opts.IDs,
		ctx:     ctx,
		cancel:  cancel,
		hands:   make(chan table.HandRecord, 256),
		tables:  make(map[string]*entry),
		players: make(map[string]string),
		invites: make(map[string]string),
	}
	for _, s := range opts.Stakes {
		m.openStake(s)
	}
	return m
}

// Stats returns the recorder completed hands are fed into.
func (m *Manager) Stats() *stats.Recorder { return m.opts.Recorder }

// CreateTable opens a public table in pool and returns its ID.
func (m *Manager) CreateTable(pool Pool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrManagerClosed
	}
	return m.createLocked(pool, "").id, nil
}

// CreatePrivateTable opens a private table and returns its invite code.
func (m *Manager) CreatePrivateTable(blinds Blinds) (code, tableID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", "", ErrManagerClosed
	}
	code, err = m.ids.InviteCode(func(c string) bool {
		_, taken := m.invites[c]
		return taken
	})
	if err != nil {
		return "", "", err
	}
	e := m.createLocked(Pool{Blinds: blinds}, code)
	m.invites[code] = e.id
	return code, e.id, nil
}

// QuickSeat seats playerID at the best table of the pool, opening a new
// table when none has room.
func (m *Manager) QuickSeat(ctx context.Context, playerID string, pool Pool, buyIn int) (tableID string, seatID int, err error) {
	return m.seatInPool(ctx, playerID, pool, buyIn, "")
}

// JoinByInviteCode seats playerID at the private table behind code. Codes
// are case-insensitive.
func (m *Manager) JoinByInviteCode(ctx context.Context, code, playerID string, buyIn int) (tableID string, seatID int, err error) {
	code = ids.NormalizeInviteCode(code)
	m.mu.Lock()
	id, ok := m.invites[code]
	m.mu.Unlock()
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrInviteCodeNotFound, code)
	}
	seatID, err = m.Join(ctx, id, playerID, buyIn)
	return id, seatID, err
}

// InviteTable returns the blinds of the private table behind code.
func (m *Manager) InviteTable(code string) (tableID string, blinds Blinds, ok bool) {
	code = ids.NormalizeInviteCode(code)
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.invites[code]
	if !ok {
		return "", Blinds{}, false
	}
	return id, m.tables[id].pool.Blinds, true
}

// Join seats playerID at a specific table.
func (m *Manager) Join(ctx context.Context, tableID, playerID string, buyIn int) (int, error) {
	if buyIn <= 0 {
		return 0, errNoChips
	}
	if err := ids.Validate("tbl", tableID); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTableNotFound, err)
	}
	m.mu.Lock()
	e, err := m.reserveLocked(playerID, tableID)
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return m.seat(ctx, e, playerID, buyIn)
}

// Leave removes playerID from their table. The stack is cashed out once it
// is final, which for an all-in player is the end of the hand.
func (m *Manager) Leave(ctx context.Context, playerID string) error {
	e, err := m.entryFor(playerID)
	if err != nil {
		return err
	}
	return e.tbl.Leave(ctx, playerID)
}

// Act submits a betting action for playerID at their table.
func (m *Manager) Act(ctx context.Context, playerID string, action engine.Action, amount int) error {
	e, err := m.entryFor(playerID)
	if err != nil {
		return err
	}
	return e.tbl.Command(ctx, playerID, action, amount)
}

// TableFor returns the table playerID is seated at.
func (m *Manager) TableFor(playerID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.players[playerID]
	return id, ok
}

// Get returns a running table.
func (m *Manager) Get(tableID string) (*table.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	return e.tbl, nil
}

// List returns every table in creation order.
func (m *Manager) List() []Listing {
	m.mu.Lock()
	entries := m.entriesLocked()
	m.mu.Unlock()

	out := make([]Listing, 0, len(entries))
	for _, e := range entries {
		out = append(out, listing(e, e.tbl.Snapshot()))
	}
	return out
}

// Close stops every table. Players still seated are not cashed out.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	entries := m.entriesLocked()
	m.tables = make(map[string]*entry)
	m.players = make(map[string]string)
	m.invites = make(map[string]string)
	m.mu.Unlock()

	m.cancel()
	for _, e := range entries {
		e.tbl.Close()
	}
	m.wg.Wait()
	m.logger.Info("Lobby closed", "tables", len(entries))
}

func (m *Manager) seatInPool(ctx context.Context, playerID string, pool Pool, buyIn int, fallback string) (string, int, error) {
	if buyIn <= 0 {
		return "", 0, errNoChips
	}
	tried := make(map[string]bool)
	for range seatAttempts {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return "", 0, ErrManagerClosed
		}
		if id, ok := m.players[playerID]; ok {
			m.mu.Unlock()
			return "", 0, fmt.Errorf("%w at %s", ErrAlreadySeated, id)
		}
		e := m.matchLocked(pool, tried, fallback)
		if e == nil {
			e = m.createLocked(pool, "")
		}
		m.players[playerID] = e.id
		e.pending++
		m.mu.Unlock()

		seatID, err := m.seat(ctx, e, playerID, buyIn)
		if err == nil {
			return e.id, seatID, nil
		}
		if !errors.Is(err, table.ErrSeatUnavailable) && !errors.Is(err, table.ErrTableClosed) {
			return "", 0, err
		}
		tried[e.id] = true
		m.logger.Debug("Seat taken, retrying", "player", playerID, "table", e.id, "error", err)
	}
	return "", 0, fmt.Errorf("%w: no seat in %s after %d attempts", table.ErrSeatUnavailable, pool, seatAttempts)
}

// reserveLocked indexes playerID at tableID ahead of seating.
func (m *Manager) reserveLocked(playerID, tableID string) (*entry, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}
	e, ok := m.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	if id, ok := m.players[playerID]; ok {
		return nil, fmt.Errorf("%w at %s", ErrAlreadySeated, id)
	}
	m.players[playerID] = e.id
	e.pending++
	return e, nil
}

// seat completes a reservation made under mu.
func (m *Manager) seat(ctx context.Context, e *entry, playerID string, buyIn int) (int, error) {
	seatID, err := e.tbl.Seat(ctx, playerID, buyIn)

	m.mu.Lock()
	e.pending--
	if err != nil && m.players[playerID] == e.id {
		delete(m.players, playerID)
	}
	m.mu.Unlock()

	if err != nil {
		return 0, err
	}
	m.logger.Info("Player seated", "player", playerID, "table", e.id, "seat", seatID, "chips", buyIn)
	return seatID, nil
}

func (m *Manager) entryFor(playerID string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.players[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", table.ErrNotSeated, playerID)
	}
	e, ok := m.tables[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	return e, nil
}

func (m *Manager) createLocked(pool Pool, code string) *entry {
	m.order++
	id := m.ids.New("tbl")
	e := &entry{
		id:      id,
		pool:    pool,
		code:    code,
		order:   m.order,
		created: m.clock.Now(),
	}
	e.tbl = table.New(table.Options{
		ID:         id,
		SmallBlind: pool.Blinds.Small,
		BigBlind:   pool.Blinds.Big,
		FastFold:   pool.FastFold,
		InviteCode: code,
		Rules:      m.opts.Rules,
		Timing:     m.opts.Timing,
		Clock:      m.clock,
		Rand:       m.streams.Next(),
		IDs:        m.ids,
		Logger:     m.opts.Logger,
		AFK:        hooks{m: m, entry: e},
		FastFolds:  hooks{m: m, entry: e},
		Leaves:     hooks{m: m, entry: e},
		Observer:   hooks{m: m, entry: e},
	})
	m.tables[id] = e

	m.wg.Add(1)
	go m.forward(e.tbl)

	m.logger.Debug("Table created", "table", id, "pool", pool, "private", code != "")
	return e
}

// openStake opens the first table of a configured stake and fills it with
// bots, cycling through the personality profiles.
func (m *Manager) openStake(s Stake) {
	m.mu.Lock()
	e := m.createLocked(s.Pool, "")
	m.mu.Unlock()

	chips := s.BotChips
	if chips <= 0 {
		chips = 100 * s.Blinds.Big
	}
	names := s.Profiles
	if len(names) == 0 {
		names = bot.ProfileNames()
	}
	for i := range min(s.Bots, engine.MaxSeats) {
		p, ok := bot.Profile(names[i%len(names)])
		if !ok {
			m.logger.Warn("Unknown bot profile", "profile", names[i%len(names)])
			continue
		}
		name := fmt.Sprintf("bot-%s-%d", p.Name, e.order*10+uint64(i))
		if _, err := e.tbl.SeatBot(m.ctx, name, p, chips); err != nil {
			m.logger.Warn("Failed to seat bot", "table", e.id, "bot", name, "error", err)
		}
	}
	m.logger.Info("Stake opened", "pool", s.Pool, "table", e.id, "bots", s.Bots)
}

func (m *Manager) forward(tbl *table.Table) {
	defer m.wg.Done()
	for env := range tbl.Out() {
		if m.opts.Deliver != nil {
			m.opts.Deliver(env)
		}
	}
}

// removeLocked drops a table from every index. The caller closes it once mu
// is released.
func (m *Manager) removeLocked(e *entry) {
	delete(m.tables, e.id)
	if e.code != "" {
		delete(m.invites, e.code)
	}
	for p, id := range m.players {
		if id == e.id {
			delete(m.players, p)
		}
	}
}

func (m *Manager) seatedLocked(tableID string) int {
	n := 0
	for _, id := range m.players {
		if id == tableID {
			n++
		}
	}
	return n
}

func (m *Manager) entriesLocked() []*entry {
	out := make([]*entry, 0, len(m.tables))
	for _, e := range m.tables {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *entry) int { return cmp.Compare(a.order, b.order) })
	return out
}

func (m *Manager) cashOut(playerID string, chips int, reason table.LeaveReason) {
	m.logger.Info("Cashing out", "player", playerID, "chips", chips, "reason", reason)
	if m.opts.CashOut != nil {
		m.opts.CashOut(playerID, chips, reason)
	}
}

func listing(e *entry, snap table.Snapshot) Listing {
	return Listing{
		ID:             e.id,
		Blinds:         e.pool.Blinds,
		FastFold:       e.pool.FastFold,
		Private:        e.private(),
		Players:        snap.Players,
		OpenSeats:      snap.OpenSeats,
		HandInProgress: snap.HandInProgress,
		HandsPlayed:    snap.HandsPlayed,
	}
}
