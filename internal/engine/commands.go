package engine

import "github.com/lox/holdemtables/poker"

// CommandType names a command variant.
type CommandType string

const (
	CommandStartHand CommandType = "start_hand"
	CommandFold      CommandType = "fold"
	CommandCheck     CommandType = "check"
	CommandCall      CommandType = "call"
	CommandBet       CommandType = "bet"
	CommandRaise     CommandType = "raise"
	CommandAllIn     CommandType = "allin"
	CommandForceFold CommandType = "force_fold"
)

// Command is the closed set of inputs to ProcessCommand. Every variant
// carries the seat it acts for; StartHand reports -1.
type Command interface {
	CommandType() CommandType
	ActingSeat() int
}

// SeatSpec describes a seat taking part in a new hand.
type SeatSpec struct {
	SeatID     int
	PlayerID   string
	Chips      int
	SittingOut bool
}

// StartHand begins a hand. Deck must hold the shuffled deal order.
type StartHand struct {
	HandID     string
	Seats      []SeatSpec // table seat order
	DealerSeat int
	SmallBlind int
	BigBlind   int
	Deck       []poker.Card
}

type Fold struct{ Seat int }

type Check struct{ Seat int }

type Call struct{ Seat int }

// Bet opens the betting on a street. Amount is the bet size.
type Bet struct {
	Seat   int
	Amount int
}

// Raise raises the street bet To a new total for the seat.
type Raise struct {
	Seat int
	To   int
}

type AllIn struct{ Seat int }

// ForceFold folds a seat regardless of turn, for players leaving the table.
type ForceFold struct{ Seat int }

func (StartHand) CommandType() CommandType { return CommandStartHand }
func (Fold) CommandType() CommandType      { return CommandFold }
func (Check) CommandType() CommandType     { return CommandCheck }
func (Call) CommandType() CommandType      { return CommandCall }
func (Bet) CommandType() CommandType       { return CommandBet }
func (Raise) CommandType() CommandType     { return CommandRaise }
func (AllIn) CommandType() CommandType     { return CommandAllIn }
func (ForceFold) CommandType() CommandType { return CommandForceFold }

func (StartHand) ActingSeat() int   { return -1 }
func (c Fold) ActingSeat() int      { return c.Seat }
func (c Check) ActingSeat() int     { return c.Seat }
func (c Call) ActingSeat() int      { return c.Seat }
func (c Bet) ActingSeat() int       { return c.Seat }
func (c Raise) ActingSeat() int     { return c.Seat }
func (c AllIn) ActingSeat() int     { return c.Seat }
func (c ForceFold) ActingSeat() int { return c.Seat }
