package bot

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/nuts"
	"github.com/lox/holdemtables/internal/texture"
	"github.com/lox/holdemtables/poker"
)

// Bot plays one seat with a fixed personality. It is not safe for concurrent
// use; a table drives its bots from its own goroutine.
type Bot struct {
	Name        string
	Personality Personality
	rng         *rand.Rand
	logger      *log.Logger
}

// New creates a bot.
func New(name string, p Personality, rng *rand.Rand, logger *log.Logger) *Bot {
	return &Bot{
		Name:        name,
		Personality: p,
		rng:         rng,
		logger:      logger.WithPrefix("bot").With("bot", name, "personality", p.Name),
	}
}

// Act analyses the board for seat and decides its command.
func (b *Bot) Act(state engine.GameState, seat int) (engine.Command, error) {
	i := state.PlayerBySeat(seat)
	if i < 0 {
		return nil, ErrNotToAct
	}
	hole := state.Players[i].HoleCards

	tex := texture.AnalyzeBoard(state.Board)
	na := nuts.Default()
	if len(state.Board) == 5 && len(hole) == 2 {
		v := poker.Evaluate(poker.NewHand(hole...) | poker.NewHand(state.Board...))
		na = nuts.AnalyzeRiverNuts(hole, state.Board, v.Category(), v)
	}

	cmd, s, err := decide(state, seat, tex, na, b.Personality, b.rng)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("Bot decision",
		"hand", state.HandID,
		"street", state.Street,
		"holeCards", poker.NewHand(hole...),
		"board", poker.NewHand(state.Board...),
		"strength", classify(s.strength),
		"texture", tex.Wetness,
		"nutRank", na.NutRank,
		"command", cmd.CommandType())
	return cmd, nil
}
