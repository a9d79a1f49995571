package poker

import "math"

// HoleCardCategory represents the strength category of hole cards
type HoleCardCategory string

const (
	CategoryPremium HoleCardCategory = "Premium"
	CategoryStrong  HoleCardCategory = "Strong"
	CategoryMedium  HoleCardCategory = "Medium"
	CategoryWeak    HoleCardCategory = "Weak"
	CategoryTrash   HoleCardCategory = "Trash"
	CategoryUnknown HoleCardCategory = "Unknown"
)

// CategorizeHoleCards provides a simple preflop hand categorization.
// Categories: Premium (JJ+, AK), Strong (TT, AQ/AJ), Medium (77+, suited broadway),
// Weak (small pairs, suited connectors), Trash (everything else).
func CategorizeHoleCards(card1, card2 Card) HoleCardCategory {
	r1, r2 := card1.Rank(), card2.Rank()
	if r1 > Ace || r2 > Ace || card1 == card2 {
		return CategoryUnknown
	}
	small, big := rankValue(r1), rankValue(r2)
	if small > big {
		small, big = big, small
	}
	suited := card1.Suit() == card2.Suit()
	pair := small == big

	switch {
	case pair && small >= 11, small == 13 && big == 14:
		return CategoryPremium
	case pair && small == 10, big == 14 && (small == 12 || small == 11):
		return CategoryStrong
	case pair && small >= 7, suited && small >= 10:
		return CategoryMedium
	case pair, suited && big-small <= 2:
		return CategoryWeak
	default:
		return CategoryTrash
	}
}

// rankValue converts the 0-12 rank system to 2-14.
func rankValue(rank uint8) int {
	return int(rank) + 2
}

// ChenScore scores two hole cards with the Chen formula. Scores run from -1
// (72o) to 20 (AA).
func ChenScore(card1, card2 Card) float64 {
	r1, r2 := card1.Rank(), card2.Rank()
	if r1 < r2 {
		r1, r2 = r2, r1
	}

	score := chenHighCard(r1)
	if r1 == r2 {
		return math.Max(score*2, 5)
	}
	if card1.Suit() == card2.Suit() {
		score += 2
	}

	gap := int(r1) - int(r2) - 1
	switch {
	case gap == 1:
		score--
	case gap == 2:
		score -= 2
	case gap == 3:
		score -= 4
	case gap >= 4:
		score -= 5
	}
	if gap <= 1 && r1 < Queen {
		score++
	}
	return math.Ceil(score)
}

func chenHighCard(rank uint8) float64 {
	switch rank {
	case Ace:
		return 10
	case King:
		return 8
	case Queen:
		return 7
	case Jack:
		return 6
	default:
		return float64(rankValue(rank)) / 2
	}
}

// chenPercentiles[score+1] holds the fraction of all 1326 starting combos whose
// Chen score is at least score.
var chenPercentiles = func() [22]float64 {
	var counts [22]int
	all := AllCards.Cards()
	total := 0
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			s := int(ChenScore(all[i], all[j]))
			counts[s+1]++
			total++
		}
	}
	var out [22]float64
	cum := 0
	for s := len(counts) - 1; s >= 0; s-- {
		cum += counts[s]
		out[s] = float64(cum) / float64(total)
	}
	return out
}()

// PreflopPercentile returns the share of starting hands at least as strong as
// the given cards: 0.005 for aces, 1.0 for the weakest holdings. A bot with a
// VPIP of 0.25 plays hands whose percentile is at most 0.25.
func PreflopPercentile(card1, card2 Card) float64 {
	s := int(ChenScore(card1, card2))
	if s < -1 {
		s = -1
	}
	if s > 20 {
		s = 20
	}
	return chenPercentiles[s+1]
}
