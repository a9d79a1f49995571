package engine

import (
	"slices"

	"github.com/lox/holdemtables/poker"
)

// finishUncontested awards everything to the last live seat without a reveal.
func (s *GameState) finishUncontested(opts Options) []Event {
	s.CurrentPlayerIndex = -1
	events := s.returnUncalled()
	for i := range s.Players {
		s.Pot += s.Players[i].CurrentBet
		s.Players[i].CurrentBet = 0
	}
	return append(events, s.award(opts, nil)...)
}

// showdown reveals every live hand starting left of the dealer and settles
// the pots.
func (s *GameState) showdown(opts Options) []Event {
	s.Street = Showdown
	s.CurrentPlayerIndex = -1

	board := poker.NewHand(s.Board...)
	values := make(map[int]poker.HandValue)
	reveal := ShowdownRevealed{}
	for _, i := range s.dealOrder() {
		p := s.Players[i]
		if !p.live() {
			continue
		}
		v := poker.Evaluate(board | poker.NewHand(p.HoleCards...))
		values[i] = v
		reveal.Hands = append(reveal.Hands, RevealedHand{
			SeatID:      p.SeatID,
			PlayerID:    p.PlayerID,
			Cards:       slices.Clone(p.HoleCards),
			Value:       v,
			Description: v.Describe(),
		})
	}
	return append([]Event{reveal}, s.award(opts, values)...)
}

// award settles every pot tier from the highest down. values is nil for an
// uncontested hand.
func (s *GameState) award(opts Options, values map[int]poker.HandValue) []Event {
	pots := s.buildPots()
	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	s.Rake = s.rakeFor(total, opts)
	rakes := splitRake(pots, s.Rake)

	won := make(map[int]int)
	var events []Event
	for t := len(pots) - 1; t >= 0; t-- {
		amount := pots[t].Amount - rakes[t]
		winners := s.potWinners(pots[t], values)
		shares := make(map[int]int, len(winners))
		if len(winners) > 0 {
			each, odd := amount/len(winners), amount%len(winners)
			for k, i := range winners {
				share := each
				if k < odd {
					share++
				}
				s.Players[i].Chips += share
				won[i] += share
				shares[s.Players[i].SeatID] = share
			}
		}
		events = append(events, PotAwarded{PotIndex: t, Amount: amount, Rake: rakes[t], Shares: shares})
	}

	showdown := values != nil
	s.Winners = nil
	for _, i := range s.dealOrder() {
		if won[i] == 0 {
			continue
		}
		p := s.Players[i]
		info := WinnerInfo{SeatID: p.SeatID, PlayerID: p.PlayerID, AmountWon: won[i], HoleCardsRevealed: showdown}
		if showdown {
			info.HandDescription = values[i].Describe()
		}
		s.Winners = append(s.Winners, info)
	}

	s.SidePots = pots
	s.Pot = 0
	s.Street = Complete
	s.IsHandComplete = true
	s.CurrentPlayerIndex = -1
	return append(events, HandCompleted{
		HandID:   s.HandID,
		Winners:  slices.Clone(s.Winners),
		Rake:     s.Rake,
		Board:    slices.Clone(s.Board),
		Showdown: showdown,
	})
}

// potWinners returns the indices of the best eligible hands ordered from the
// seat left of the dealer, which is the order odd chips are handed out.
func (s *GameState) potWinners(pot SidePot, values map[int]poker.HandValue) []int {
	var winners []int
	var best poker.HandValue
	for _, i := range s.dealOrder() {
		p := s.Players[i]
		if !p.live() || !slices.Contains(pot.EligibleSeats, p.SeatID) {
			continue
		}
		if values == nil {
			winners = append(winners, i)
			continue
		}
		switch v := values[i]; {
		case v > best:
			best = v
			winners = []int{i}
		case v == best:
			winners = append(winners, i)
		}
	}
	return winners
}
