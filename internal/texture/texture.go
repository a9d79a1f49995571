// Package texture characterises community boards: pairing, suit distribution,
// straight connectivity and how much the board can still change on later
// streets.
package texture

import (
	"math/bits"

	"github.com/lox/holdemtables/poker"
)

// Wetness is a coarse dry-to-very-wet label used for bet sizing.
type Wetness int

const (
	Dry Wetness = iota
	SemiWet
	Wet
	VeryWet
)

func (w Wetness) String() string {
	switch w {
	case Dry:
		return "dry"
	case SemiWet:
		return "semi-wet"
	case Wet:
		return "wet"
	case VeryWet:
		return "very wet"
	default:
		return "unknown"
	}
}

// Texture is the result of AnalyzeBoard.
type Texture struct {
	Cards int

	Paired    bool
	TwoPaired bool
	Trips     bool

	SuitCounts    [4]int
	MaxSuitCount  int
	FlushDraw     bool // exactly two of a suit with cards still to come
	FlushPossible bool // three or more of a suit
	Monotone      bool
	TwoTone       bool
	Rainbow       bool

	// ConnectedCards is the longest run of consecutive ranks, counting the
	// ace low when it helps.
	ConnectedCards   int
	Connected        bool
	StraightPossible bool

	HighCards int

	Wet      bool
	Dynamism float64
	Wetness  Wetness
}

// Dynamism weights.
const (
	weightFlushDraw     = 0.25
	weightNearFlush     = 0.20
	weightConnected     = 0.25
	weightOneGapper     = 0.10
	weightUnpaired      = 0.15
	weightLowBoard      = 0.15
	lowAverageRankLimit = 9.0
)

// AnalyzeBoard analyses three to five community cards. Boards with fewer than
// three cards return a zero Texture apart from the card count.
func AnalyzeBoard(board []poker.Card) Texture {
	h := poker.NewHand(board...)
	t := Texture{Cards: h.CountCards()}
	if t.Cards < 3 {
		return t
	}

	t.analyzeRanks(h)
	t.analyzeSuits(h)
	t.analyzeStraights(h.GetRankMask())

	t.Wet = t.FlushDraw || t.FlushPossible || t.StraightPossible
	t.Dynamism = t.dynamism(h)
	t.Wetness = t.wetness()
	return t
}

func (t *Texture) analyzeRanks(h poker.Hand) {
	var counts [13]int
	for _, c := range h.Cards() {
		counts[c.Rank()]++
	}
	pairs := 0
	for rank, n := range counts {
		switch {
		case n >= 3:
			t.Trips = true
		case n == 2:
			pairs++
		}
		if n > 0 && uint8(rank) >= poker.Ten {
			t.HighCards++
		}
	}
	t.Paired = pairs > 0 || t.Trips
	t.TwoPaired = pairs >= 2
}

func (t *Texture) analyzeSuits(h poker.Hand) {
	suits, twos := 0, 0
	for suit := uint8(0); suit < 4; suit++ {
		n := bits.OnesCount16(h.GetSuitMask(suit))
		t.SuitCounts[suit] = n
		if n > 0 {
			suits++
		}
		if n == 2 {
			twos++
		}
		if n > t.MaxSuitCount {
			t.MaxSuitCount = n
		}
	}
	t.FlushDraw = twos > 0 && t.Cards < 5
	t.FlushPossible = t.MaxSuitCount >= 3
	t.Monotone = suits == 1
	t.TwoTone = twos == 1 && t.MaxSuitCount < 3
	t.Rainbow = t.MaxSuitCount <= 1
}

// analyzeStraights marks the board connected when three distinct ranks fit in
// a five-rank window, which leaves room for a straight with two hole cards.
func (t *Texture) analyzeStraights(rankMask uint16) {
	extended := extendAceLow(rankMask)

	best := 0
	for low := 0; low <= 9; low++ {
		window := (extended >> low) & 0x1F
		if n := bits.OnesCount16(window); n > best {
			best = n
		}
	}
	t.Connected = best >= 3
	t.StraightPossible = t.Connected

	// A lone low card next to an ace does not make a run.
	runs := extended
	if bits.OnesCount16(rankMask&0xF) < 2 {
		runs &^= 1
	}
	run, longest := 0, 0
	for i := 0; i < 14; i++ {
		if runs&(1<<i) != 0 {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	t.ConnectedCards = longest
}

// extendAceLow maps the 13-bit rank mask onto 14 bits where bit 0 is the ace
// played low and bit 13 the ace played high.
func extendAceLow(rankMask uint16) uint16 {
	extended := rankMask << 1
	if rankMask&(1<<poker.Ace) != 0 {
		extended |= 1
	}
	return extended
}

// hasOneGapper reports two distinct ranks at most two apart.
func hasOneGapper(rankMask uint16) bool {
	extended := extendAceLow(rankMask)
	return extended&(extended>>1) != 0 || extended&(extended>>2) != 0
}

func (t *Texture) dynamism(h poker.Hand) float64 {
	if t.Cards >= 5 {
		return 0
	}

	score := 0.0
	if t.FlushDraw {
		score += weightFlushDraw
	}
	if t.FlushPossible {
		score += weightNearFlush
	}
	switch {
	case t.Connected:
		score += weightConnected
	case hasOneGapper(h.GetRankMask()):
		score += weightOneGapper
	}
	if !t.Paired {
		score += weightUnpaired
	}

	sum := 0
	for _, c := range h.Cards() {
		sum += int(c.Rank()) + 2
	}
	if float64(sum)/float64(t.Cards) <= lowAverageRankLimit {
		score += weightLowBoard
	}
	return min(score, 1)
}

func (t *Texture) wetness() Wetness {
	score := 0
	switch {
	case t.Monotone, t.MaxSuitCount >= 4:
		score += 4
	case t.MaxSuitCount == 3:
		score += 3
	case t.MaxSuitCount == 2:
		score++
	}
	switch {
	case t.ConnectedCards >= 4:
		score += 4
	case t.ConnectedCards == 3:
		score += 3
	case t.ConnectedCards == 2:
		score++
	}
	if t.Paired {
		score++
	}
	if t.HighCards >= 3 {
		score++
	}

	switch {
	case score <= 0:
		return Dry
	case score <= 3:
		return SemiWet
	case score <= 5:
		return Wet
	default:
		return VeryWet
	}
}
