package stats

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"slices"

	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/equity"
	"github.com/lox/holdemtables/poker"
)

// ResultsFromHand derives every dealt-in player's result from a completed
// hand and the events it produced. When the board was run out with players
// all-in, their profit is also computed against pot equity at the moment
// the betting closed.
func ResultsFromHand(ctx context.Context, final engine.GameState, events []engine.Event, samples int, rng *rand.Rand) ([]PlayerHandResult, error) {
	if !final.IsHandComplete {
		return nil, fmt.Errorf("hand %s is not complete", final.HandID)
	}

	shown := make(map[int][]poker.Card)
	won := make(map[int]int)
	rake := make(map[int]int)
	var awards []engine.PotAwarded
	var runoutBoard []poker.Card
	runout := false
	for _, ev := range events {
		switch e := ev.(type) {
		case engine.ShowdownRevealed:
			for _, h := range e.Hands {
				shown[h.SeatID] = h.Cards
			}
		case engine.StreetAdvanced:
			if e.Runout && !runout {
				runout = true
				runoutBoard = e.Board[:len(e.Board)-len(e.NewCards)]
			}
		case engine.PotAwarded:
			awards = append(awards, e)
			for seat, share := range e.Shares {
				won[seat] += share
			}
			for seat, r := range rakeShares(e) {
				rake[seat] += r
			}
		}
	}

	var ev map[int]float64
	if runout && len(shown) > 1 {
		var err error
		ev, err = allInEquity(ctx, final, awards, shown, runoutBoard, samples, rng)
		if err != nil {
			return nil, fmt.Errorf("all-in equity for hand %s: %w", final.HandID, err)
		}
	}

	vpip, pfr := preflopActions(final.History)

	var results []PlayerHandResult
	for _, p := range final.Players {
		if p.SittingOut {
			continue
		}
		_, showed := shown[p.SeatID]
		res := PlayerHandResult{
			PlayerID:       p.PlayerID,
			HandID:         final.HandID,
			BigBlind:       final.BigBlind,
			Profit:         p.Chips - p.StartingChips,
			VPIP:           vpip[p.SeatID],
			PFR:            pfr[p.SeatID],
			WentToShowdown: showed,
			WonAtShowdown:  showed && won[p.SeatID] > 0,
			RakePaid:       rake[p.SeatID],
		}
		if v, ok := ev[p.SeatID]; ok {
			profit := v - float64(p.TotalBet)
			res.AllInEVProfit = &profit
		}
		results = append(results, res)
	}
	return results, nil
}

// allInEquity returns each shown seat's expected winnings from the pots as
// they were finally awarded, net of rake.
func allInEquity(ctx context.Context, final engine.GameState, awards []engine.PotAwarded, shown map[int][]poker.Card, board []poker.Card, samples int, rng *rand.Rand) (map[int]float64, error) {
	pots := make([]equity.Pot, 0, len(final.SidePots))
	for t, sp := range final.SidePots {
		amount := sp.Amount
		for _, a := range awards {
			if a.PotIndex == t {
				amount = a.Amount
			}
		}
		pots = append(pots, equity.Pot{Amount: amount, Seats: sp.EligibleSeats})
	}
	return equity.ExpectedWinnings(ctx, pots, shown, board, samples, rng)
}

// rakeShares attributes a pot's rake to its winners in proportion to what
// each won. The remainder goes to the lowest seat.
func rakeShares(a engine.PotAwarded) map[int]int {
	out := make(map[int]int)
	if a.Rake == 0 || a.Amount == 0 || len(a.Shares) == 0 {
		return out
	}
	seats := make([]int, 0, len(a.Shares))
	for seat := range a.Shares {
		seats = append(seats, seat)
	}
	slices.Sort(seats)

	given := 0
	for _, seat := range seats {
		r := a.Rake * a.Shares[seat] / a.Amount
		out[seat] = r
		given += r
	}
	out[seats[0]] += a.Rake - given
	return out
}

// preflopActions reports which seats voluntarily put chips in before the
// flop and which raised.
func preflopActions(history []engine.ActionRecord) (vpip, pfr map[int]bool) {
	vpip = make(map[int]bool)
	pfr = make(map[int]bool)
	bet := 0
	for _, rec := range history {
		if rec.Street != engine.Preflop {
			break
		}
		if !rec.Forced {
			switch rec.Action {
			case engine.ActionCall, engine.ActionBet, engine.ActionRaise:
				vpip[rec.SeatID] = true
			case engine.ActionAllIn:
				if rec.Amount > 0 {
					vpip[rec.SeatID] = true
				}
			}
			if rec.Action == engine.ActionRaise || (rec.Action == engine.ActionAllIn && rec.To > bet) {
				pfr[rec.SeatID] = true
			}
		}
		bet = max(bet, rec.To)
	}
	return vpip, pfr
}
