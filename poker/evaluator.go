package poker

import (
	"fmt"
	"math/bits"
	"strings"
)

// Category enumerates hand classes ordered from weakest to strongest. Values
// start at 1 so that HighCard is distinguishable from an unevaluated hand.
type Category uint8

const (
	HighCard Category = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// String returns a human-readable category name.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandValue is a totally ordered hand strength. Higher values always win and
// equal values split. Layout: category in bits 20-23 followed by up to five
// significant ranks, four bits each, most significant first.
type HandValue uint32

// Category returns the hand class encoded in the value.
func (v HandValue) Category() Category {
	return Category(v >> 20)
}

// Ranks returns the significant ranks in tie-break order: the made ranks first
// (quad, trip, pair ranks or straight high card) followed by kickers.
func (v HandValue) Ranks() []uint8 {
	n := significantRanks(v.Category())
	out := make([]uint8, n)
	for i := range n {
		out[i] = uint8(v>>(16-4*i)) & 0xF
	}
	return out
}

// Kickers returns only the tie-breaking side cards.
func (v HandValue) Kickers() []uint8 {
	ranks := v.Ranks()
	switch v.Category() {
	case Pair:
		return ranks[1:]
	case TwoPair:
		return ranks[2:]
	case ThreeOfAKind, FourOfAKind:
		return ranks[1:]
	case HighCard, Flush:
		return ranks
	default:
		return nil
	}
}

func significantRanks(c Category) int {
	switch c {
	case Straight, StraightFlush:
		return 1
	case FullHouse:
		return 2
	case FourOfAKind:
		return 2
	case TwoPair, ThreeOfAKind:
		return 3
	case Pair:
		return 4
	case HighCard, Flush:
		return 5
	default:
		return 0
	}
}

// Describe returns a readable description such as "Full House, Kings full of Sevens".
func (v HandValue) Describe() string {
	r := v.Ranks()
	switch v.Category() {
	case StraightFlush:
		if r[0] == Ace {
			return "Royal Flush"
		}
		return fmt.Sprintf("Straight Flush, %s high", rankWord(r[0]))
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind, %s", rankPlural(r[0]))
	case FullHouse:
		return fmt.Sprintf("Full House, %s full of %s", rankPlural(r[0]), rankPlural(r[1]))
	case Flush:
		return fmt.Sprintf("Flush, %s high", rankWord(r[0]))
	case Straight:
		return fmt.Sprintf("Straight, %s high", rankWord(r[0]))
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind, %s", rankPlural(r[0]))
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", rankPlural(r[0]), rankPlural(r[1]))
	case Pair:
		return fmt.Sprintf("Pair of %s", rankPlural(r[0]))
	case HighCard:
		return fmt.Sprintf("High Card, %s", rankWord(r[0]))
	default:
		return "Unknown"
	}
}

var rankWords = [...]string{"Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine", "Ten", "Jack", "Queen", "King", "Ace"}

func rankWord(r uint8) string {
	if int(r) >= len(rankWords) {
		return "?"
	}
	return rankWords[r]
}

func rankPlural(r uint8) string {
	w := rankWord(r)
	if r == Six {
		return w + "es"
	}
	return w + "s"
}

// String implements fmt.Stringer.
func (v HandValue) String() string {
	var b strings.Builder
	b.WriteString(v.Category().String())
	b.WriteString(" [")
	for i, r := range v.Ranks() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(RankName(r))
	}
	b.WriteByte(']')
	return b.String()
}

func pack(c Category, ranks ...uint8) HandValue {
	v := HandValue(c) << 20
	for i, r := range ranks {
		if i == 5 {
			break
		}
		v |= HandValue(r&0xF) << (16 - 4*i)
	}
	return v
}

// Evaluate returns the value of the best five-card hand within h. It accepts
// five to seven cards; any other count yields zero.
func Evaluate(h Hand) HandValue {
	n := h.CountCards()
	if n < 5 || n > 7 {
		return 0
	}
	return evaluateUnchecked(h)
}

// EvaluateCards evaluates a slice of five to seven distinct cards.
func EvaluateCards(cards ...Card) (HandValue, error) {
	h := NewHand(cards...)
	if h.CountCards() != len(cards) {
		return 0, fmt.Errorf("duplicate cards in %v", cards)
	}
	if len(cards) < 5 || len(cards) > 7 {
		return 0, fmt.Errorf("need 5-7 cards, got %d", len(cards))
	}
	return evaluateUnchecked(h), nil
}

func evaluateUnchecked(h Hand) HandValue {
	var suitMasks [4]uint16
	var rankMask uint16
	for suit := uint8(0); suit < 4; suit++ {
		suitMasks[suit] = h.GetSuitMask(suit)
		rankMask |= suitMasks[suit]
	}

	// With at most seven cards only one suit can hold five or more.
	for _, suitMask := range suitMasks {
		if bits.OnesCount16(suitMask) < 5 {
			continue
		}
		if high, ok := straightHigh(suitMask); ok {
			return pack(StraightFlush, high)
		}
		return pack(Flush, topRanks(suitMask, 5)...)
	}

	s0, s1, s2, s3 := suitMasks[0], suitMasks[1], suitMasks[2], suitMasks[3]
	quadsMask := s0 & s1 & s2 & s3
	tripCandidates := (s0 & s1 & s2) | (s0 & s1 & s3) | (s0 & s2 & s3) | (s1 & s2 & s3)
	tripsMask := tripCandidates &^ quadsMask
	pairsMask := ((s0 & s1) | (s0 & s2) | (s0 & s3) | (s1 & s2) | (s1 & s3) | (s2 & s3)) &^ tripCandidates

	if quad := highestRank(quadsMask); quad >= 0 {
		q := uint8(quad)
		return pack(FourOfAKind, append([]uint8{q}, topRanks(rankMask&^(1<<q), 1)...)...)
	}

	if trip := highestRank(tripsMask); trip >= 0 {
		t := uint8(trip)
		if pair := highestRank(pairsMask | (tripsMask &^ (1 << t))); pair >= 0 {
			return pack(FullHouse, t, uint8(pair))
		}
	}

	if high, ok := straightHigh(rankMask); ok {
		return pack(Straight, high)
	}

	if trip := highestRank(tripsMask); trip >= 0 {
		t := uint8(trip)
		return pack(ThreeOfAKind, append([]uint8{t}, topRanks(rankMask&^(1<<t), 2)...)...)
	}

	if hi := highestRank(pairsMask); hi >= 0 {
		high := uint8(hi)
		if lo := highestRank(pairsMask &^ (1 << high)); lo >= 0 {
			low := uint8(lo)
			kicker := topRanks(rankMask&^(1<<high|1<<low), 1)
			return pack(TwoPair, append([]uint8{high, low}, kicker...)...)
		}
		return pack(Pair, append([]uint8{high}, topRanks(rankMask&^(1<<high), 3)...)...)
	}

	return pack(HighCard, topRanks(rankMask, 5)...)
}

// highestRank returns the highest rank present in the bitmask (or -1 when empty).
func highestRank(mask uint16) int {
	if mask == 0 {
		return -1
	}
	return bits.Len16(mask) - 1
}

// topRanks returns up to n ranks from mask in descending order.
func topRanks(mask uint16, n int) []uint8 {
	out := make([]uint8, 0, n)
	for len(out) < n && mask != 0 {
		top := uint8(bits.Len16(mask) - 1)
		out = append(out, top)
		mask &^= 1 << top
	}
	return out
}

// straightHigh returns the high card of the best straight in the rank mask.
// The wheel (A-2-3-4-5) reports Five.
func straightHigh(mask uint16) (uint8, bool) {
	const wheelMask = 0x100F // Ace + 2-3-4-5
	mask &= 0x1FFF

	seq := mask & (mask >> 1) & (mask >> 2) & (mask >> 3) & (mask >> 4)
	if seq != 0 {
		return uint8(bits.Len16(seq)-1) + 4, true
	}
	if mask&wheelMask == wheelMask {
		return Five, true
	}
	return 0, false
}

// StraightHigh exposes straight detection over a rank mask for board analysis.
func StraightHigh(rankMask uint16) (uint8, bool) {
	return straightHigh(rankMask)
}

// Compare returns 1 if a wins, -1 if b wins and 0 for a split.
func Compare(a, b HandValue) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}
