// Package bot chooses actions for computer-controlled seats. Decisions are
// stateless: everything a bot knows comes from the game state, the board
// texture, the river nuts analysis and its personality.
package bot

import (
	"errors"
	rand "math/rand/v2"

	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/nuts"
	"github.com/lox/holdemtables/internal/texture"
)

// ErrNotToAct is returned when asked to decide for a seat that is not due to
// act.
var ErrNotToAct = errors.New("seat is not due to act")

type intent int

const (
	intentFold intent = iota // checks instead when checking is free
	intentPassive            // check or call
	intentAggressive         // bet or raise to the given size
	intentShove
)

// Decide picks one command for seat, which must be the seat to act. The
// command is always drawn from engine.LegalActions, so the engine accepts it.
func Decide(state engine.GameState, seat int, tex texture.Texture, na nuts.Analysis, p Personality, rng *rand.Rand) (engine.Command, error) {
	cmd, _, err := decide(state, seat, tex, na, p, rng)
	return cmd, err
}

func decide(state engine.GameState, seat int, tex texture.Texture, na nuts.Analysis, p Personality, rng *rand.Rand) (engine.Command, *spot, error) {
	cur, ok := state.CurrentPlayer()
	if !ok || cur.SeatID != seat {
		return nil, nil, ErrNotToAct
	}
	s := newSpot(state, cur, tex, na)

	var (
		it   intent
		size int
	)
	if state.Street == engine.Preflop {
		it, size = s.preflop(p, rng)
	} else {
		it, size = s.postflop(p, rng)
	}
	return s.command(it, size), s, nil
}

// spot is the decision context for one seat.
type spot struct {
	state    engine.GameState
	player   engine.Player
	tex      texture.Texture
	legal    []engine.LegalAction
	toCall   int
	pot      int
	strength float64
	draw     float64
}

func newSpot(state engine.GameState, p engine.Player, tex texture.Texture, na nuts.Analysis) *spot {
	s := &spot{
		state:  state,
		player: p,
		tex:    tex,
		legal:  engine.LegalActions(state),
		toCall: max(state.CurrentBet-p.CurrentBet, 0),
		pot:    state.PotTotal(),
	}
	if state.Street == engine.Preflop {
		s.strength = preflopStrength(p.HoleCards)
	} else {
		s.strength = madeStrength(p.HoleCards, state.Board, tex, na)
		s.draw = drawEquity(p.HoleCards, state.Board)
	}
	return s
}

// potOdds is the share of the final pot the seat must contribute to call.
func (s *spot) potOdds() float64 {
	if s.toCall == 0 {
		return 0
	}
	call := min(s.toCall, s.player.Chips)
	return float64(call) / float64(s.pot+call)
}

func (s *spot) preflop(p Personality, rng *rand.Rand) (intent, int) {
	bb := s.state.BigBlind
	raises, ours := s.raises(engine.Preflop)
	stackBB := float64(s.player.Chips+s.player.CurrentBet) / float64(bb)

	if s.strength >= 0.985 && stackBB <= 15 {
		return intentShove, 0
	}

	if raises == 0 {
		if s.strength >= 1-p.PFR || (s.strength >= 1-p.VPIP && rng.Float64() < p.Aggression*0.3) {
			return intentAggressive, 3*bb + s.limpers()*bb
		}
		if s.strength >= 1-p.VPIP {
			return intentPassive, 0
		}
		return intentFold, 0
	}

	// Facing a re-raise of our own raise.
	if ours > 0 && s.strength < 0.97 && rng.Float64() < p.FoldTo3Bet {
		return intentFold, 0
	}
	if s.strength >= 1-p.ThreeBetFreq || (s.strength >= 1-p.VPIP && rng.Float64() < p.BluffFreq*p.ThreeBetFreq) {
		return intentAggressive, 3 * s.state.CurrentBet
	}
	if s.strength >= 1-p.VPIP*0.6 || (s.strength >= 1-p.VPIP && s.potOdds() < 0.2) {
		return intentPassive, 0
	}
	return intentFold, 0
}

func (s *spot) postflop(p Personality, rng *rand.Rand) (intent, int) {
	bet := s.betSize(rng)

	if s.toCall == 0 {
		switch {
		case s.strength >= 0.9 && rng.Float64() < p.SlowplayFreq:
			return intentPassive, 0
		case s.strength >= 0.65 && rng.Float64() < p.Aggression:
			return intentAggressive, bet
		case s.state.Street == engine.Flop && s.aggressor() == s.player.SeatID &&
			rng.Float64() < p.CBetFreq*(1-s.tex.Dynamism/2):
			return intentAggressive, bet
		case s.draw >= 0.3 && rng.Float64() < p.Aggression:
			return intentAggressive, bet
		case rng.Float64() < p.BluffFreq*(1-s.tex.Dynamism/2):
			return intentAggressive, bet
		}
		return intentPassive, 0
	}

	// Loose personalities overrate their hands when facing a bet.
	equity := max(s.strength, s.draw) + (p.VPIP-0.25)*0.3
	raiseTo := s.state.CurrentBet*2 + s.pot/2

	switch {
	case s.strength >= 0.85 && rng.Float64() < p.Aggression:
		return intentAggressive, raiseTo
	case s.facingCBet() && s.strength < 0.6 && s.draw < 0.3 && rng.Float64() < p.FoldToCBet:
		return intentFold, 0
	case s.state.Street == engine.River && s.strength < 0.75 && rng.Float64() < p.FoldToRiverBet:
		return intentFold, 0
	case equity >= s.potOdds():
		return intentPassive, 0
	case rng.Float64() < p.BluffFreq*0.25:
		return intentAggressive, raiseTo
	}
	return intentFold, 0
}

// betSize sizes a bet as a share of the pot that grows with board wetness.
func (s *spot) betSize(rng *rand.Rand) int {
	var fraction float64
	switch s.tex.Wetness {
	case texture.Dry:
		fraction = 0.5
	case texture.SemiWet:
		fraction = 0.6
	case texture.Wet:
		fraction = 0.7
	default:
		fraction = 0.85
	}
	fraction += rng.Float64() * 0.1
	return int(float64(s.pot) * fraction)
}

// raises counts the voluntary raises on a street and how many were ours.
func (s *spot) raises(street engine.Street) (total, ours int) {
	bet := 0
	for _, rec := range s.state.History {
		if rec.Street != street {
			continue
		}
		if !rec.Forced && rec.To > bet && bet > 0 && rec.Action != engine.ActionCall {
			total++
			if rec.SeatID == s.player.SeatID {
				ours++
			}
		}
		bet = max(bet, rec.To)
	}
	return total, ours
}

// limpers counts seats that called the big blind preflop.
func (s *spot) limpers() int {
	n := 0
	for _, rec := range s.state.History {
		if rec.Street == engine.Preflop && rec.Action == engine.ActionCall {
			n++
		}
	}
	return n
}

// aggressor returns the seat that made the last preflop raise, or -1.
func (s *spot) aggressor() int {
	seat, bet := -1, 0
	for _, rec := range s.state.History {
		if rec.Street != engine.Preflop {
			break
		}
		if !rec.Forced && rec.To > bet && bet > 0 && rec.Action != engine.ActionCall {
			seat = rec.SeatID
		}
		bet = max(bet, rec.To)
	}
	return seat
}

// facingCBet reports a flop bet made by the preflop aggressor.
func (s *spot) facingCBet() bool {
	if s.state.Street != engine.Flop {
		return false
	}
	agg := s.aggressor()
	if agg < 0 || agg == s.player.SeatID {
		return false
	}
	for _, rec := range s.state.History {
		if rec.Street == engine.Flop && rec.SeatID == agg && (rec.Action == engine.ActionBet || rec.Action == engine.ActionAllIn) {
			return true
		}
	}
	return false
}

// command maps an intent onto the legal action set, degrading from
// aggressive to passive to folding when an action is unavailable.
func (s *spot) command(it intent, size int) engine.Command {
	seat := s.player.SeatID
	_, allInOK := engine.IsLegal(s.legal, engine.ActionAllIn)

	if it == intentShove {
		if allInOK {
			return engine.AllIn{Seat: seat}
		}
		it, size = intentAggressive, s.player.CurrentBet+s.player.Chips
	}

	if it == intentAggressive {
		if la, ok := engine.IsLegal(s.legal, engine.ActionBet); ok {
			amount := min(max(size, la.Min), la.Max)
			if amount >= la.Max && allInOK {
				return engine.AllIn{Seat: seat}
			}
			return engine.Bet{Seat: seat, Amount: amount}
		}
		if la, ok := engine.IsLegal(s.legal, engine.ActionRaise); ok {
			to := min(max(size, la.Min), la.Max)
			if to >= la.Max && allInOK {
				return engine.AllIn{Seat: seat}
			}
			return engine.Raise{Seat: seat, To: to}
		}
		it = intentPassive
	}

	if _, ok := engine.IsLegal(s.legal, engine.ActionCheck); ok {
		return engine.Check{Seat: seat}
	}
	if it == intentPassive {
		if _, ok := engine.IsLegal(s.legal, engine.ActionCall); ok {
			return engine.Call{Seat: seat}
		}
	}
	return engine.Fold{Seat: seat}
}
