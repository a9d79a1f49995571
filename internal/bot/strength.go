package bot

import (
	"math/bits"

	"github.com/lox/holdemtables/internal/nuts"
	"github.com/lox/holdemtables/internal/texture"
	"github.com/lox/holdemtables/poker"
)

// HandStrength represents the relative strength of a hand
type HandStrength int

const (
	VeryWeak HandStrength = iota
	Weak
	Medium
	Strong
	VeryStrong
)

// String returns the string representation of hand strength
func (hs HandStrength) String() string {
	switch hs {
	case VeryWeak:
		return "very weak"
	case Weak:
		return "weak"
	case Medium:
		return "medium"
	case Strong:
		return "strong"
	case VeryStrong:
		return "very strong"
	default:
		return "unknown"
	}
}

// classify buckets a [0,1] strength score.
func classify(score float64) HandStrength {
	switch {
	case score >= 0.85:
		return VeryStrong
	case score >= 0.65:
		return Strong
	case score >= 0.40:
		return Medium
	case score >= 0.20:
		return Weak
	default:
		return VeryWeak
	}
}

// preflopStrength scores hole cards by the share of starting hands they beat.
func preflopStrength(hole []poker.Card) float64 {
	if len(hole) != 2 {
		return 0
	}
	return 1 - poker.PreflopPercentile(hole[0], hole[1])
}

var categoryStrength = map[poker.Category]float64{
	poker.HighCard:      0.08,
	poker.TwoPair:       0.72,
	poker.ThreeOfAKind:  0.80,
	poker.Straight:      0.86,
	poker.Flush:         0.90,
	poker.FullHouse:     0.95,
	poker.FourOfAKind:   0.98,
	poker.StraightFlush: 1.00,
}

// madeStrength scores a postflop holding from its made hand, adjusted for the
// board's texture and, on the river, for how many hands beat it.
func madeStrength(hole, board []poker.Card, tex texture.Texture, na nuts.Analysis) float64 {
	if len(hole) != 2 || len(board) < 3 {
		return preflopStrength(hole)
	}
	boardHand := poker.NewHand(board...)
	v := poker.Evaluate(boardHand | poker.NewHand(hole...))
	cat := v.Category()

	score := categoryStrength[cat]
	switch cat {
	case poker.Pair:
		score = pairStrength(hole, board, v.Ranks()[0])
	case poker.ThreeOfAKind:
		if hole[0].Rank() == hole[1].Rank() {
			score = 0.85 // a set
		}
	case poker.TwoPair:
		if tex.Paired {
			score = 0.60
		}
	}

	// Playing the board is worth little whatever its category.
	if len(board) == 5 && poker.Evaluate(boardHand) == v {
		score = 0.10
	}

	if cat <= poker.TwoPair {
		switch tex.Wetness {
		case texture.Wet:
			score -= 0.06
		case texture.VeryWet:
			score -= 0.10
		}
		if tex.FlushPossible {
			score -= 0.05
		}
	}

	if len(board) == 5 {
		if na.IsNuts() {
			score = max(score, 0.97)
		} else {
			score -= min(0.30, 0.03*float64(na.NutRank-1))
		}
	}
	return min(max(score, 0), 1)
}

// pairStrength separates overpairs and top pair from weaker pairs and pairs
// made entirely by the board.
func pairStrength(hole, board []poker.Card, pairRank uint8) float64 {
	onBoard := 0
	var boardHigh uint8
	for _, c := range board {
		if c.Rank() == pairRank {
			onBoard++
		}
		boardHigh = max(boardHigh, c.Rank())
	}
	pocket := hole[0].Rank() == hole[1].Rank()
	switch {
	case onBoard >= 2:
		return 0.15
	case pocket && pairRank > boardHigh:
		return 0.68
	case pairRank == boardHigh:
		kicker := hole[0].Rank()
		if kicker == pairRank {
			kicker = hole[1].Rank()
		}
		return 0.55 + 0.01*float64(kicker)
	default:
		return 0.35
	}
}

// drawEquity estimates the chance of improving to a flush or straight from
// the outs the hole cards contribute, using the rule of two per card to come.
func drawEquity(hole, board []poker.Card) float64 {
	if len(hole) != 2 || len(board) < 3 || len(board) >= 5 {
		return 0
	}
	holeHand := poker.NewHand(hole...)
	all := holeHand | poker.NewHand(board...)
	if poker.Evaluate(all).Category() >= poker.Straight {
		return 0
	}

	outs := 0
	for suit := range uint8(4) {
		if bits.OnesCount16(all.GetSuitMask(suit)) == 4 && holeHand.GetSuitMask(suit) != 0 {
			outs += 9
		}
	}
	outs += straightOuts(holeHand.GetRankMask(), all.GetRankMask())

	toCome := 5 - len(board)
	return min(float64(outs*2*toCome)/100, 0.45)
}

// straightOuts counts four cards per rank that would complete a straight
// using at least one hole card: eight for an open-ender, four for a gutshot.
func straightOuts(holeRanks, allRanks uint16) int {
	withAceLow := func(m uint16) uint16 {
		m <<= 1
		if m&(1<<13) != 0 {
			m |= 1
		}
		return m
	}
	hole, all := withAceLow(holeRanks), withAceLow(allRanks)

	var missing uint16
	for low := 0; low <= 9; low++ {
		window := uint16(0x1f) << low
		if bits.OnesCount16(all&window) == 4 && hole&window != 0 {
			missing |= window &^ all
		}
	}
	// Ace low and ace high are the same rank.
	if missing&1 != 0 {
		missing = missing&^1 | 1<<13
	}
	return 4 * bits.OnesCount16(missing)
}
