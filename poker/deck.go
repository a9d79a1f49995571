package poker

import (
	rand "math/rand/v2"
)

// Deck represents a standard 52-card deck.
type Deck struct {
	cards [52]Card
	next  int
	rng   *rand.Rand
}

// NewDeck creates a new shuffled deck with explicit RNG.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	i := 0
	for suit := range uint8(4) {
		for rank := range uint8(13) {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}
	d.Shuffle()
	return d
}

// NewDeckFromOrder creates a deck that deals the given cards first, followed by
// the remaining cards in a fixed order. Used to replay hands and in tests.
func NewDeckFromOrder(top []Card) *Deck {
	d := &Deck{}
	var used Hand
	i := 0
	for _, c := range top {
		if !c.Valid() || used.HasCard(c) || i == len(d.cards) {
			continue
		}
		used.AddCard(c)
		d.cards[i] = c
		i++
	}
	for _, c := range (AllCards &^ used).Cards() {
		d.cards[i] = c
		i++
	}
	return d
}

// Shuffle shuffles the whole deck using Fisher-Yates and resets the deal cursor.
func (d *Deck) Shuffle() {
	d.next = 0
	if d.rng == nil {
		return
	}
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal deals n cards from the deck.
func (d *Deck) Deal(n int) []Card {
	if d.next+n > len(d.cards) {
		return nil
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards
}

// Reset resets and reshuffles the deck.
func (d *Deck) Reset() {
	d.Shuffle()
}

// Remaining returns a copy of the undealt cards in deal order.
func (d *Deck) Remaining() []Card {
	out := make([]Card, len(d.cards)-d.next)
	copy(out, d.cards[d.next:])
	return out
}

// CardsRemaining returns the number of cards left in the deck.
func (d *Deck) CardsRemaining() int {
	return len(d.cards) - d.next
}
