package engine

import (
	"slices"
)

// returnUncalled refunds the part of the largest street bet nobody matched,
// then any folded chips above what the live all-in seats can contest.
func (s *GameState) returnUncalled() []Event {
	var events []Event
	if ev, ok := s.returnUnmatched(); ok {
		events = append(events, ev)
	}
	return append(events, s.returnUncontestable()...)
}

func (s *GameState) returnUnmatched() (Event, bool) {
	top, topBet := -1, 0
	for i, p := range s.Players {
		if p.CurrentBet > topBet {
			top, topBet = i, p.CurrentBet
		}
	}
	// A folded seat's chips are dead money.
	if top < 0 || !s.Players[top].live() {
		return nil, false
	}
	excess := topBet - s.maxOtherBet(top)
	if excess <= 0 {
		return nil, false
	}

	p := &s.Players[top]
	p.Chips += excess
	p.CurrentBet -= excess
	p.TotalBet -= excess
	p.AllIn = false
	if s.CurrentBet > p.CurrentBet {
		s.CurrentBet = p.CurrentBet
	}
	return UncalledBetReturned{SeatID: p.SeatID, Amount: excess}, true
}

// returnUncontestable refunds folded chips above the largest live
// contribution when a live seat is all-in, since no live seat is eligible for
// that tier. Without a live all-in, dead money stays in the main pot.
func (s *GameState) returnUncontestable() []Event {
	liveMax, allIn := 0, false
	for _, p := range s.Players {
		if p.live() {
			liveMax = max(liveMax, p.TotalBet)
			allIn = allIn || p.AllIn
		}
	}
	if !allIn {
		return nil
	}

	var events []Event
	for i := range s.Players {
		p := &s.Players[i]
		excess := p.TotalBet - liveMax
		if p.live() || excess <= 0 {
			continue
		}
		fromStreet := min(excess, p.CurrentBet)
		p.CurrentBet -= fromStreet
		s.Pot -= excess - fromStreet
		p.TotalBet -= excess
		p.Chips += excess
		events = append(events, UncalledBetReturned{SeatID: p.SeatID, Amount: excess})
	}
	return events
}

// collectBets moves street bets into the pot and rebuilds the pot tiers.
func (s *GameState) collectBets() []Event {
	for i := range s.Players {
		s.Pot += s.Players[i].CurrentBet
		s.Players[i].CurrentBet = 0
	}

	pots := s.buildPots()
	changed := !potsEqual(pots, s.SidePots)
	s.SidePots = pots
	if changed && len(pots) > 1 {
		return []Event{SidePotsFormed{Pots: clonePots(pots)}}
	}
	return nil
}

// buildPots partitions every contribution into tiers capped at each distinct
// all-in level. A seat is eligible for a tier when it is still live and
// contributed beyond the tier below; every live seat shares the main pot.
func (s *GameState) buildPots() []SidePot {
	var levels []int
	highest := 0
	for _, p := range s.Players {
		if p.live() && p.AllIn && p.TotalBet > 0 {
			levels = append(levels, p.TotalBet)
		}
		highest = max(highest, p.TotalBet)
	}
	levels = append(levels, highest)
	slices.Sort(levels)
	levels = slices.Compact(levels)

	var pots []SidePot
	prev := 0
	for _, level := range levels {
		pot := SidePot{}
		for _, p := range s.Players {
			pot.Amount += min(p.TotalBet, level) - min(p.TotalBet, prev)
			if p.live() && (p.TotalBet > prev || prev == 0) {
				pot.EligibleSeats = append(pot.EligibleSeats, p.SeatID)
			}
		}
		prev = level

		switch {
		case pot.Amount == 0:
		case len(pots) > 0 && (len(pot.EligibleSeats) == 0 || slices.Equal(pot.EligibleSeats, pots[len(pots)-1].EligibleSeats)):
			pots[len(pots)-1].Amount += pot.Amount
		default:
			pots = append(pots, pot)
		}
	}
	return pots
}

func potsEqual(a, b []SidePot) bool {
	return slices.EqualFunc(a, b, func(x, y SidePot) bool {
		return x.Amount == y.Amount && slices.Equal(x.EligibleSeats, y.EligibleSeats)
	})
}

// rakeFor computes min(pot * rate, cap * big blind).
func (s *GameState) rakeFor(pot int, opts Options) int {
	if opts.RakeBasisPoints <= 0 || pot <= 0 {
		return 0
	}
	if opts.NoFlopNoDrop && len(s.Board) == 0 {
		return 0
	}
	rake := pot * opts.RakeBasisPoints / 10000
	if opts.RakeCapBB > 0 {
		rake = min(rake, opts.RakeCapBB*s.BigBlind)
	}
	return rake
}

// splitRake takes the rake from the main pot first, spilling into higher
// tiers when the main pot is smaller.
func splitRake(pots []SidePot, rake int) []int {
	out := make([]int, len(pots))
	for i := range pots {
		take := min(rake, pots[i].Amount)
		out[i] = take
		rake -= take
		if rake == 0 {
			break
		}
	}
	return out
}
