package table

import (
	"time"

	"github.com/lox/holdemtables/internal/engine"
)

// Envelope carries one engine event or table notice to observers, in the
// order the table emitted them.
type Envelope struct {
	TableID string
	Seq     uint64
	// Recipient limits delivery to one player. Empty means everyone.
	Recipient string
	Event     engine.Event
	Notice    Notice
}

// Type names the payload.
func (e Envelope) Type() string {
	if e.Event != nil {
		return e.Event.EventType().String()
	}
	if e.Notice != nil {
		return string(e.Notice.NoticeType())
	}
	return ""
}

// VisibleTo reports whether playerID may see the envelope.
func (e Envelope) VisibleTo(playerID string) bool {
	return e.Recipient == "" || e.Recipient == playerID
}

// NoticeType names a table notice.
type NoticeType string

const (
	NoticeActionRequired NoticeType = "action_required"
	NoticeCountdown      NoticeType = "next_hand_countdown"
	NoticePlayerSeated   NoticeType = "player_seated"
	NoticePlayerLeft     NoticeType = "player_left"
	NoticePlayerTimedOut NoticeType = "player_timed_out"
)

// Notice is a table-level message that is not part of the hand's event log.
type Notice interface {
	NoticeType() NoticeType
}

// ActionRequired tells observers whose turn it is and what they may do.
type ActionRequired struct {
	HandID   string
	SeatID   int
	PlayerID string
	Legal    []engine.LegalAction
	ToCall   int
	Pot      int
	Timeout  time.Duration
}

// Countdown announces the next hand.
type Countdown struct {
	StartsIn time.Duration
}

type PlayerSeated struct {
	SeatID   int
	PlayerID string
	Chips    int
	Bot      bool
}

// LeaveReason says why a seat was vacated.
type LeaveReason string

const (
	ReasonLeft     LeaveReason = "left"
	ReasonAFK      LeaveReason = "afk"
	ReasonFastFold LeaveReason = "fast_fold"
	ReasonBusted   LeaveReason = "busted"
)

type PlayerLeft struct {
	SeatID   int
	PlayerID string
	Chips    int
	Reason   LeaveReason
}

// PlayerTimedOut reports an automatic action taken for a player.
type PlayerTimedOut struct {
	HandID      string
	SeatID      int
	PlayerID    string
	Consecutive int
	Action      engine.Action
	Removed     bool
}

func (ActionRequired) NoticeType() NoticeType { return NoticeActionRequired }
func (Countdown) NoticeType() NoticeType      { return NoticeCountdown }
func (PlayerSeated) NoticeType() NoticeType   { return NoticePlayerSeated }
func (PlayerLeft) NoticeType() NoticeType     { return NoticePlayerLeft }
func (PlayerTimedOut) NoticeType() NoticeType { return NoticePlayerTimedOut }
