package engine

import "github.com/lox/holdemtables/poker"

// EventType represents a game event type with type safety
type EventType string

const (
	EventHandStarted         EventType = "hand_started"
	EventBlindPosted         EventType = "blind_posted"
	EventHoleCardsDealt      EventType = "hole_cards_dealt"
	EventActionTaken         EventType = "action_taken"
	EventStreetAdvanced      EventType = "street_advanced"
	EventUncalledBetReturned EventType = "uncalled_bet_returned"
	EventSidePotsFormed      EventType = "side_pots_formed"
	EventShowdownRevealed    EventType = "showdown_revealed"
	EventPotAwarded          EventType = "pot_awarded"
	EventHandCompleted       EventType = "hand_completed"
)

func (et EventType) String() string {
	return string(et)
}

// Event is the closed set of observable changes produced by ProcessCommand.
type Event interface {
	EventType() EventType
}

// HandStarted opens a hand.
type HandStarted struct {
	HandID         string
	DealerSeat     int
	SmallBlindSeat int
	BigBlindSeat   int
	SmallBlind     int
	BigBlind       int
	Seats          []SeatSpec
}

type BlindPosted struct {
	SeatID int
	Action Action // ActionPostSmallBlind or ActionPostBigBlind
	Amount int
	AllIn  bool
}

// HoleCardsDealt is private to the seat's player.
type HoleCardsDealt struct {
	SeatID   int
	PlayerID string
	Cards    []poker.Card
}

type ActionTaken struct {
	SeatID     int
	PlayerID   string
	Street     Street
	Action     Action
	Amount     int // chips added
	To         int // street total for the seat
	Chips      int // stack after the action
	AllIn      bool
	Forced     bool
	PotAfter   int
	CurrentBet int
}

// StreetAdvanced reveals new board cards. Runout is set when no further
// betting is possible and the remaining streets are dealt automatically.
type StreetAdvanced struct {
	Street   Street
	NewCards []poker.Card
	Board    []poker.Card
	Runout   bool
}

type UncalledBetReturned struct {
	SeatID int
	Amount int
}

type SidePotsFormed struct {
	Pots []SidePot
}

// RevealedHand is one hand shown at showdown.
type RevealedHand struct {
	SeatID      int
	PlayerID    string
	Cards       []poker.Card
	Value       poker.HandValue
	Description string
}

type ShowdownRevealed struct {
	Hands []RevealedHand
}

// PotAwarded settles one pot tier. Shares maps seat to chips won.
type PotAwarded struct {
	PotIndex int
	Amount   int // after rake
	Rake     int
	Shares   map[int]int
}

type HandCompleted struct {
	HandID   string
	Winners  []WinnerInfo
	Rake     int
	Board    []poker.Card
	Showdown bool
}

func (HandStarted) EventType() EventType         { return EventHandStarted }
func (BlindPosted) EventType() EventType         { return EventBlindPosted }
func (HoleCardsDealt) EventType() EventType      { return EventHoleCardsDealt }
func (ActionTaken) EventType() EventType         { return EventActionTaken }
func (StreetAdvanced) EventType() EventType      { return EventStreetAdvanced }
func (UncalledBetReturned) EventType() EventType { return EventUncalledBetReturned }
func (SidePotsFormed) EventType() EventType      { return EventSidePotsFormed }
func (ShowdownRevealed) EventType() EventType    { return EventShowdownRevealed }
func (PotAwarded) EventType() EventType          { return EventPotAwarded }
func (HandCompleted) EventType() EventType       { return EventHandCompleted }
