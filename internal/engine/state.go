package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lox/holdemtables/poker"
)

// Street is the phase of a hand. It only moves forward.
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
	Complete
)

func (s Street) String() string {
	switch s {
	case Preflop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case Showdown:
		return "showdown"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

func (s Street) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Action identifies a betting action in history and legal action lists.
type Action int

const (
	ActionFold Action = iota
	ActionCheck
	ActionCall
	ActionBet
	ActionRaise
	ActionAllIn
	ActionPostSmallBlind
	ActionPostBigBlind
)

var actionNames = [...]string{"fold", "check", "call", "bet", "raise", "allin", "post_sb", "post_bb"}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// ParseAction reads an action name. It accepts "all-in" and "all_in" for
// ActionAllIn and ignores case.
func ParseAction(s string) (Action, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "all-in", "all_in":
		return ActionAllIn, nil
	}
	for i, n := range actionNames {
		if n == name {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Action) UnmarshalText(text []byte) error {
	v, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Player is one seat dealt into the hand.
type Player struct {
	SeatID        int
	PlayerID      string
	Chips         int
	StartingChips int
	HoleCards     []poker.Card
	CurrentBet    int // this street
	TotalBet      int // this hand, net of refunds
	Folded        bool
	AllIn         bool
	HasActed      bool
	SittingOut    bool
}

// live reports whether the seat still contests the pot.
func (p *Player) live() bool {
	return !p.Folded && !p.SittingOut
}

// canAct reports whether the seat may still take betting actions.
func (p *Player) canAct() bool {
	return p.live() && !p.AllIn && p.Chips > 0
}

// SidePot is one pot tier. Index 0 is the main pot.
type SidePot struct {
	Amount        int
	EligibleSeats []int
}

// ActionRecord is one entry of the append-only hand history.
type ActionRecord struct {
	Street Street
	SeatID int
	Action Action
	Amount int // chips added by this action
	To     int // seat's street total after the action
	Forced bool
}

// WinnerInfo summarises one seat's winnings.
type WinnerInfo struct {
	SeatID            int
	PlayerID          string
	AmountWon         int
	HandDescription   string
	HoleCardsRevealed bool
}

// GameState is the complete state of one hand.
type GameState struct {
	HandID             string
	Players            []Player
	Board              []poker.Card
	Pot                int // chips collected from finished streets
	SidePots           []SidePot
	Street             Street
	DealerIndex        int
	CurrentPlayerIndex int // -1 when nobody is to act
	CurrentBet         int
	MinRaise           int
	SmallBlind         int
	BigBlind           int
	LastRaiserIndex    int
	LastFullRaiseBet   int
	History            []ActionRecord
	IsHandComplete     bool
	Winners            []WinnerInfo
	Rake               int
	Deck               []poker.Card
}

// InProgress reports whether a hand has started and not yet completed.
func (s *GameState) InProgress() bool {
	return len(s.Players) > 0 && !s.IsHandComplete
}

// CurrentPlayer returns the seat to act, if any.
func (s *GameState) CurrentPlayer() (Player, bool) {
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return Player{}, false
	}
	return s.Players[s.CurrentPlayerIndex], true
}

// PlayerBySeat returns the index of the player in seatID, or -1.
func (s *GameState) PlayerBySeat(seatID int) int {
	for i := range s.Players {
		if s.Players[i].SeatID == seatID {
			return i
		}
	}
	return -1
}

// PotTotal returns every chip committed to the hand, including bets on the
// current street.
func (s *GameState) PotTotal() int {
	total := s.Pot
	for _, p := range s.Players {
		total += p.CurrentBet
	}
	return total
}

// Clone returns a deep copy.
func (s GameState) Clone() GameState {
	out := s
	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		p.HoleCards = slices.Clone(p.HoleCards)
		out.Players[i] = p
	}
	out.Board = slices.Clone(s.Board)
	out.SidePots = clonePots(s.SidePots)
	out.History = slices.Clone(s.History)
	out.Winners = slices.Clone(s.Winners)
	out.Deck = slices.Clone(s.Deck)
	return out
}

func clonePots(pots []SidePot) []SidePot {
	if pots == nil {
		return nil
	}
	out := make([]SidePot, len(pots))
	for i, p := range pots {
		out[i] = SidePot{Amount: p.Amount, EligibleSeats: slices.Clone(p.EligibleSeats)}
	}
	return out
}

// next returns the index after i, wrapping.
func (s *GameState) next(i int) int {
	return (i + 1) % len(s.Players)
}

// nextInHand returns the first index after i whose seat is dealt in.
func (s *GameState) nextInHand(i int) int {
	for range len(s.Players) {
		i = s.next(i)
		if !s.Players[i].SittingOut {
			return i
		}
	}
	return -1
}

func (s *GameState) liveCount() int {
	n := 0
	for i := range s.Players {
		if s.Players[i].live() {
			n++
		}
	}
	return n
}

func (s *GameState) actorCount() int {
	n := 0
	for i := range s.Players {
		if s.Players[i].canAct() {
			n++
		}
	}
	return n
}

// dealCards removes n cards from the top of the remaining deck.
func (s *GameState) dealCards(n int) []poker.Card {
	cards := slices.Clone(s.Deck[:n])
	s.Deck = s.Deck[n:]
	return cards
}
