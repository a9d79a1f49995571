// Package stats accumulates per-player results across completed hands.
package stats

import "math"

// PlayerHandResult is one player's outcome of a single hand.
type PlayerHandResult struct {
	PlayerID string
	HandID   string
	BigBlind int
	// Profit is the realized chip delta for the hand.
	Profit int
	// AllInEVProfit is the equity-adjusted profit when the hand was run out
	// with the player all-in. Nil when no adjustment applies.
	AllInEVProfit  *float64
	VPIP           bool
	PFR            bool
	WentToShowdown bool
	WonAtShowdown  bool
	RakePaid       int
}

// Increment is what one hand adds to a player's totals.
type Increment struct {
	Hands              int
	TotalProfit        int
	TotalAllInEVProfit float64
	VPIPHands          int
	PFRHands           int
	ShowdownHands      int
	ShowdownWins       int
	RakePaid           int
}

// ComputeIncrementForPlayer converts a hand result into totals. Without an
// EV adjustment the EV profit equals the realized profit.
func ComputeIncrementForPlayer(r PlayerHandResult) Increment {
	inc := Increment{
		Hands:              1,
		TotalProfit:        r.Profit,
		TotalAllInEVProfit: float64(r.Profit),
		RakePaid:           r.RakePaid,
	}
	if r.AllInEVProfit != nil {
		inc.TotalAllInEVProfit = *r.AllInEVProfit
	}
	if r.VPIP {
		inc.VPIPHands = 1
	}
	if r.PFR {
		inc.PFRHands = 1
	}
	if r.WentToShowdown {
		inc.ShowdownHands = 1
		if r.WonAtShowdown {
			inc.ShowdownWins = 1
		}
	}
	return inc
}

// Totals are a player's accumulated increments plus the running sums needed
// for the win rate and its variance.
type Totals struct {
	Increment
	SumBB  float64
	SumBB2 float64 // sum of squares for variance
}

// Add folds one hand's increment into the totals.
func (t *Totals) Add(inc Increment, bigBlind int) {
	t.Hands += inc.Hands
	t.TotalProfit += inc.TotalProfit
	t.TotalAllInEVProfit += inc.TotalAllInEVProfit
	t.VPIPHands += inc.VPIPHands
	t.PFRHands += inc.PFRHands
	t.ShowdownHands += inc.ShowdownHands
	t.ShowdownWins += inc.ShowdownWins
	t.RakePaid += inc.RakePaid

	if bigBlind > 0 {
		bb := float64(inc.TotalProfit) / float64(bigBlind)
		t.SumBB += bb
		t.SumBB2 += bb * bb
	}
}

// Mean returns big blinds won per hand.
func (t Totals) Mean() float64 {
	if t.Hands == 0 {
		return 0
	}
	return t.SumBB / float64(t.Hands)
}

// BB100 returns big blinds won per 100 hands.
func (t Totals) BB100() float64 {
	return t.Mean() * 100
}

// StdDev returns the sample standard deviation in big blinds per hand.
func (t Totals) StdDev() float64 {
	if t.Hands < 2 {
		return 0
	}
	mean := t.Mean()
	return math.Sqrt((t.SumBB2 - float64(t.Hands)*mean*mean) / float64(t.Hands-1))
}

// VPIP returns the fraction of hands the player voluntarily put chips in.
func (t Totals) VPIP() float64 {
	return ratio(t.VPIPHands, t.Hands)
}

// PFR returns the fraction of hands the player raised preflop.
func (t Totals) PFR() float64 {
	return ratio(t.PFRHands, t.Hands)
}

// ShowdownWinRate returns the fraction of showdowns the player won.
func (t Totals) ShowdownWinRate() float64 {
	return ratio(t.ShowdownWins, t.ShowdownHands)
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
