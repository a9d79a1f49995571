// Package nuts measures how close a river holding is to the best possible hand
// by enumerating every unseen two-card combination that beats it.
package nuts

import (
	"github.com/lox/holdemtables/poker"
)

// BetterHand tags one combination that beats the analysed holding. Only
// straights and stronger are tagged.
type BetterHand string

const (
	Straight      BetterHand = "straight"
	Flush         BetterHand = "flush"
	FullHouse     BetterHand = "full_house"
	Quads         BetterHand = "quads"
	StraightFlush BetterHand = "straight_flush"

	BetterStraight BetterHand = "better_straight"
	BetterFlush    BetterHand = "better_flush"
)

var categoryTags = map[poker.Category]BetterHand{
	poker.Straight:      Straight,
	poker.Flush:         Flush,
	poker.FullHouse:     FullHouse,
	poker.FourOfAKind:   Quads,
	poker.StraightFlush: StraightFlush,
}

// Tag returns the label for a beating hand of category beater when the hero
// holds category held. A straight beating a straight, or a flush beating a
// flush, is prefixed with "better_". Beaters below a straight have no tag.
func Tag(beater, held poker.Category) (BetterHand, bool) {
	tag, ok := categoryTags[beater]
	if !ok {
		return "", false
	}
	if beater == held && (beater == poker.Straight || beater == poker.Flush) {
		return "better_" + tag, true
	}
	return tag, true
}

// Analysis is the result of AnalyzeRiverNuts.
type Analysis struct {
	// NutRank is 1 when nothing beats the holding and grows with the number
	// of distinct hand values that do.
	NutRank int
	// PossibleBetterHands holds one tag per unseen combination that wins
	// with a straight or better. Weaker winners only count towards NutRank,
	// so a low holding can have NutRank above one and an empty list.
	PossibleBetterHands []BetterHand
	// AbsoluteNutType is the best category any holding can make on this board.
	AbsoluteNutType poker.Category
}

// IsNuts reports whether no combination beats the holding.
func (a Analysis) IsNuts() bool {
	return a.NutRank == 1
}

// Count returns how many beating combinations carry the given tag.
func (a Analysis) Count(tag BetterHand) int {
	n := 0
	for _, t := range a.PossibleBetterHands {
		if t == tag {
			n++
		}
	}
	return n
}

// Default is reported before the river.
func Default() Analysis {
	return Analysis{NutRank: 1, PossibleBetterHands: []BetterHand{}}
}

// AnalyzeRiverNuts compares the holding against every two-card combination
// of the 45 unseen cards. Only the first two hole cards are used. made and
// value describe the hero's evaluated hand; a zero value is evaluated here.
// Boards with fewer than five cards yield Default.
func AnalyzeRiverNuts(hole, board []poker.Card, made poker.Category, value poker.HandValue) Analysis {
	if len(board) < 5 || len(hole) < 2 {
		return Default()
	}
	hole = hole[:2]
	board = board[:5]

	boardHand := poker.NewHand(board...)
	heroHand := poker.NewHand(hole...)
	if value == 0 {
		value = poker.Evaluate(boardHand | heroHand)
	}
	if made == 0 {
		made = value.Category()
	}

	result := Default()
	beating := make(map[poker.HandValue]struct{})
	unseen := (poker.AllCards &^ boardHand).Cards()

	for i := 0; i < len(unseen); i++ {
		for j := i + 1; j < len(unseen); j++ {
			combo := poker.NewHand(unseen[i], unseen[j])
			v := poker.Evaluate(boardHand | combo)
			if c := v.Category(); c > result.AbsoluteNutType {
				result.AbsoluteNutType = c
			}
			if combo&heroHand != 0 || v <= value {
				continue
			}
			beating[v] = struct{}{}
			if tag, ok := Tag(v.Category(), made); ok {
				result.PossibleBetterHands = append(result.PossibleBetterHands, tag)
			}
		}
	}

	result.NutRank = 1 + len(beating)
	return result
}
