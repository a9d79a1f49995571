package engine

import (
	"slices"

	"github.com/lox/holdemtables/poker"
)

// MaxSeats is the table size.
const MaxSeats = 6

// ProcessCommand applies cmd to state. It returns the new state and the
// events describing the change; on error the original state is returned
// unchanged with no events.
func ProcessCommand(state GameState, cmd Command, opts Options) (GameState, []Event, error) {
	next := state.Clone()

	var (
		events []Event
		err    error
	)
	switch c := cmd.(type) {
	case StartHand:
		events, err = next.startHand(c, opts)
	case ForceFold:
		events, err = next.forceFold(c, opts)
	case Fold, Check, Call, Bet, Raise, AllIn:
		events, err = next.act(cmd, opts)
	default:
		err = reject(cmd, "unknown command")
	}
	if err != nil {
		return state, nil, err
	}
	return next, events, nil
}

func (s *GameState) startHand(c StartHand, opts Options) ([]Event, error) {
	if s.InProgress() {
		return nil, reject(c, "hand %s already in progress", s.HandID)
	}
	if c.SmallBlind <= 0 || c.BigBlind < c.SmallBlind {
		return nil, reject(c, "invalid blinds %d/%d", c.SmallBlind, c.BigBlind)
	}
	if len(c.Seats) > MaxSeats {
		return nil, reject(c, "%d seats exceeds table size %d", len(c.Seats), MaxSeats)
	}

	seats := slices.Clone(c.Seats)
	slices.SortFunc(seats, func(a, b SeatSpec) int { return a.SeatID - b.SeatID })
	playing := 0
	for i, seat := range seats {
		if i > 0 && seats[i-1].SeatID == seat.SeatID {
			return nil, reject(c, "duplicate seat %d", seat.SeatID)
		}
		if seat.Chips < 0 {
			return nil, reject(c, "negative stack for seat %d", seat.SeatID)
		}
		if seat.Chips > 0 && !seat.SittingOut {
			playing++
		}
	}
	if playing < opts.minPlayers() {
		return nil, rejectWith(c, ErrInsufficientSeats)
	}

	need := 2*playing + 8 // hole cards, three burns and the board
	if len(c.Deck) < need {
		return nil, reject(c, "deck holds %d cards, need %d", len(c.Deck), need)
	}
	var seen poker.Hand
	for _, card := range c.Deck {
		if !card.Valid() || seen.HasCard(card) {
			return nil, reject(c, "deck contains invalid or duplicate card %s", card)
		}
		seen.AddCard(card)
	}

	*s = GameState{
		HandID:             c.HandID,
		Players:            make([]Player, len(seats)),
		Street:             Preflop,
		CurrentPlayerIndex: -1,
		LastRaiserIndex:    -1,
		SmallBlind:         c.SmallBlind,
		BigBlind:           c.BigBlind,
		Deck:               slices.Clone(c.Deck),
	}
	for i, seat := range seats {
		s.Players[i] = Player{
			SeatID:        seat.SeatID,
			PlayerID:      seat.PlayerID,
			Chips:         seat.Chips,
			StartingChips: seat.Chips,
			SittingOut:    seat.SittingOut || seat.Chips == 0,
		}
	}
	s.DealerIndex = s.dealerFor(c.DealerSeat)

	// Heads-up the dealer posts the small blind.
	sb := s.nextInHand(s.DealerIndex)
	if playing == 2 {
		sb = s.DealerIndex
	}
	bb := s.nextInHand(sb)

	events := []Event{HandStarted{
		HandID:         s.HandID,
		DealerSeat:     s.Players[s.DealerIndex].SeatID,
		SmallBlindSeat: s.Players[sb].SeatID,
		BigBlindSeat:   s.Players[bb].SeatID,
		SmallBlind:     s.SmallBlind,
		BigBlind:       s.BigBlind,
		Seats:          seats,
	}}
	events = append(events, s.postBlind(sb, s.SmallBlind, ActionPostSmallBlind))
	events = append(events, s.postBlind(bb, s.BigBlind, ActionPostBigBlind))
	s.CurrentBet = s.BigBlind
	s.MinRaise = s.BigBlind
	s.LastFullRaiseBet = s.BigBlind
	s.LastRaiserIndex = bb

	events = append(events, s.dealHoleCards()...)
	events = append(events, s.progress(s.next(bb), opts)...)
	return events, nil
}

// dealerFor returns the first dealt-in index at or after seatID, wrapping.
func (s *GameState) dealerFor(seatID int) int {
	first := -1
	for i, p := range s.Players {
		if p.SittingOut {
			continue
		}
		if first < 0 {
			first = i
		}
		if p.SeatID >= seatID {
			return i
		}
	}
	return first
}

func (s *GameState) postBlind(i, amount int, action Action) Event {
	p := &s.Players[i]
	posted := min(amount, p.Chips)
	p.Chips -= posted
	p.CurrentBet += posted
	p.TotalBet += posted
	p.AllIn = p.Chips == 0
	s.History = append(s.History, ActionRecord{
		Street: Preflop,
		SeatID: p.SeatID,
		Action: action,
		Amount: posted,
		To:     p.CurrentBet,
		Forced: true,
	})
	return BlindPosted{SeatID: p.SeatID, Action: action, Amount: posted, AllIn: p.AllIn}
}

// dealHoleCards deals one card at a time starting left of the dealer.
func (s *GameState) dealHoleCards() []Event {
	order := s.dealOrder()
	for range 2 {
		for _, i := range order {
			s.Players[i].HoleCards = append(s.Players[i].HoleCards, s.dealCards(1)...)
		}
	}
	events := make([]Event, 0, len(order))
	for _, i := range order {
		p := s.Players[i]
		events = append(events, HoleCardsDealt{SeatID: p.SeatID, PlayerID: p.PlayerID, Cards: slices.Clone(p.HoleCards)})
	}
	return events
}

func (s *GameState) dealOrder() []int {
	order := make([]int, 0, len(s.Players))
	i := s.DealerIndex
	for range len(s.Players) {
		i = s.next(i)
		if !s.Players[i].SittingOut {
			order = append(order, i)
		}
	}
	return order
}

func (s *GameState) act(cmd Command, opts Options) ([]Event, error) {
	m, err := s.validate(cmd)
	if err != nil {
		return nil, err
	}
	i := s.CurrentPlayerIndex
	events := []Event{s.apply(i, m, false)}
	return append(events, s.progress(s.next(i), opts)...), nil
}

func (s *GameState) forceFold(c ForceFold, opts Options) ([]Event, error) {
	if !s.InProgress() {
		return nil, reject(c, "no hand in progress")
	}
	i := s.PlayerBySeat(c.Seat)
	if i < 0 || !s.Players[i].live() {
		return nil, reject(c, "seat %d is not in the hand", c.Seat)
	}
	if s.Players[i].AllIn {
		return nil, reject(c, "seat %d is all-in", c.Seat)
	}

	events := []Event{s.apply(i, move{action: ActionFold}, true)}
	start := s.CurrentPlayerIndex
	if i == start || start < 0 {
		start = s.next(i)
	}
	return append(events, s.progress(start, opts)...), nil
}

// progress moves the turn to the next seat that owes an action, ends the
// street when nobody does and settles the hand when one seat remains.
func (s *GameState) progress(start int, opts Options) []Event {
	if s.liveCount() == 1 {
		return s.finishUncontested(opts)
	}
	if i := s.nextToAct(start); i >= 0 {
		s.CurrentPlayerIndex = i
		return nil
	}
	s.CurrentPlayerIndex = -1
	return s.endStreet(opts)
}

func (s *GameState) nextToAct(start int) int {
	i := start
	for range len(s.Players) {
		if s.needsAction(i) {
			return i
		}
		i = s.next(i)
	}
	return -1
}

func (s *GameState) needsAction(i int) bool {
	p := &s.Players[i]
	if !p.canAct() {
		return false
	}
	if p.HasActed && p.CurrentBet >= s.CurrentBet {
		return false
	}
	// A lone seat that has already matched everyone else has nobody to bet
	// against.
	if s.actorCount() == 1 && p.CurrentBet >= s.maxOtherBet(i) {
		return false
	}
	return true
}

func (s *GameState) maxOtherBet(i int) int {
	highest := 0
	for j := range s.Players {
		if j != i && s.Players[j].CurrentBet > highest {
			highest = s.Players[j].CurrentBet
		}
	}
	return highest
}

func (s *GameState) endStreet(opts Options) []Event {
	events := s.returnUncalled()
	events = append(events, s.collectBets()...)

	if s.Street == River {
		return append(events, s.showdown(opts)...)
	}
	if s.actorCount() <= 1 {
		for s.Street < River {
			events = append(events, s.dealStreet(true))
		}
		return append(events, s.showdown(opts)...)
	}

	events = append(events, s.dealStreet(false))
	if i := s.nextToAct(s.next(s.DealerIndex)); i >= 0 {
		s.CurrentPlayerIndex = i
		return events
	}
	return append(events, s.endStreet(opts)...)
}

func (s *GameState) dealStreet(runout bool) Event {
	s.dealCards(1) // burn
	n := 1
	if s.Street == Preflop {
		n = 3
	}
	cards := s.dealCards(n)
	s.Board = append(s.Board, cards...)
	s.Street++

	s.CurrentBet = 0
	s.MinRaise = s.BigBlind
	s.LastFullRaiseBet = 0
	s.LastRaiserIndex = -1
	for i := range s.Players {
		s.Players[i].HasActed = false
	}
	return StreetAdvanced{Street: s.Street, NewCards: cards, Board: slices.Clone(s.Board), Runout: runout}
}
