package table

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/ids"
	"github.com/lox/holdemtables/internal/randutil"
	"github.com/lox/holdemtables/internal/timer"
	"github.com/lox/holdemtables/poker"
)

// AFKHandler owns the timeout policy. OnPlayerTimedOut is told how many
// actions in a row the player has timed out on and decides whether they are
// removed. OnAFKRemoval receives the chips of a removed player once their
// seat is freed.
type AFKHandler interface {
	OnPlayerTimedOut(playerID string, consecutive int) bool
	OnAFKRemoval(playerID string, chips int)
}

// FastFoldHandler is told when a player folds at a fast-fold table. The
// player no longer belongs to the table and chips is their final stack.
type FastFoldHandler interface {
	OnFastFold(playerID string, chips int)
}

// LeaveHandler receives the stack of a player who left or busted, once that
// stack can no longer change.
type LeaveHandler interface {
	OnLeft(playerID string, chips int)
}

// HandObserver sees every completed hand.
type HandObserver interface {
	OnHandComplete(record HandRecord)
}

// HandRecord is a completed hand with every event it produced.
type HandRecord struct {
	TableID string
	Final   engine.GameState
	Events  []engine.Event
}

// Options configure a table. Handlers are called from the table's goroutine
// and must not call back into the same table synchronously. A nil handler
// is replaced with one that ignores the hook and never removes anyone.
type Options struct {
	ID         string
	SmallBlind int
	BigBlind   int
	FastFold   bool
	// InviteCode marks the table private when set.
	InviteCode string

	Rules  engine.Options
	Timing timer.Timing

	Clock  quartz.Clock
	Rand   *rand.Rand
	IDs    *ids.Generator
	Logger *log.Logger

	// Deck returns the deal order for the next hand. Nil shuffles a fresh
	// deck with Rand.
	Deck func() []poker.Card
	// OutBuffer sizes the outbound channel.
	OutBuffer int

	AFK       AFKHandler
	FastFolds FastFoldHandler
	Leaves    LeaveHandler
	Observer  HandObserver
}

const defaultOutBuffer = 1024

type nopHandler struct{}

func (nopHandler) OnPlayerTimedOut(string, int) bool { return false }
func (nopHandler) OnAFKRemoval(string, int)          {}
func (nopHandler) OnFastFold(string, int)            {}
func (nopHandler) OnLeft(string, int)                {}
func (nopHandler) OnHandComplete(HandRecord)         {}

func (o *Options) setDefaults() {
	if o.Clock == nil {
		o.Clock = quartz.NewReal()
	}
	if o.Rand == nil {
		o.Rand = randutil.New(randutil.RandomSeed())
	}
	if o.IDs == nil {
		o.IDs = ids.NewGenerator(nil)
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.ID == "" {
		o.ID = o.IDs.New("tbl")
	}
	if o.Rules == (engine.Options{}) {
		o.Rules = engine.DefaultOptions()
	}
	if o.Timing == (timer.Timing{}) {
		o.Timing = timer.DefaultTiming()
	}
	if o.OutBuffer <= 0 {
		o.OutBuffer = defaultOutBuffer
	}
	if o.AFK == nil {
		o.AFK = nopHandler{}
	}
	if o.FastFolds == nil {
		o.FastFolds = nopHandler{}
	}
	if o.Leaves == nil {
		o.Leaves = nopHandler{}
	}
	if o.Observer == nil {
		o.Observer = nopHandler{}
	}
}
