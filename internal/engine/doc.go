// Package engine implements the Texas Hold'em rules as a pure state
// transition function.
//
// ProcessCommand takes a GameState and a Command and returns the next state
// together with the events describing what changed. It performs no I/O, never
// blocks and never consults a clock or random source: the shuffled deck
// arrives inside the StartHand command.
//
// # Basic Usage
//
//	state, events, err := engine.ProcessCommand(engine.GameState{}, engine.StartHand{
//	    HandID:     "hand-1",
//	    Seats:      []engine.SeatSpec{{SeatID: 0, PlayerID: "alice", Chips: 1000}, {SeatID: 1, PlayerID: "bob", Chips: 1000}},
//	    DealerSeat: 0,
//	    SmallBlind: 5,
//	    BigBlind:   10,
//	    Deck:       poker.NewDeck(rng).Remaining(),
//	}, engine.DefaultOptions())
//	state, events, err = engine.ProcessCommand(state, engine.Call{Seat: 0}, engine.DefaultOptions())
//
// A rejected command returns the original state, no events and an error that
// matches ErrCommandRejected.
//
// # Architecture
//
// Processing clones the state, validates the command against the clone and
// only then mutates it, so a rejected command never leaves partial changes:
//   - betting.go: legality checks and LegalActions
//   - pots.go: uncalled bet refunds, side pot tiers and rake
//   - showdown.go: hand evaluation and pot awards
package engine
