package bot

import (
	"io"
	rand "math/rand/v2"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/nuts"
	"github.com/lox/holdemtables/internal/texture"
	"github.com/lox/holdemtables/poker"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// threeHanded starts a hand with seat 0 on the button and first to act,
// holding the given cards.
func threeHanded(t *testing.T, hole string) engine.GameState {
	t.Helper()
	h := poker.MustParseCards(hole)
	top := poker.MustParseCards("2c 3d")
	top = append(top, h[0])
	top = append(top, poker.MustParseCards("7h 8s")...)
	top = append(top, h[1])

	specs := []engine.SeatSpec{
		{SeatID: 0, PlayerID: "hero", Chips: 1000},
		{SeatID: 1, PlayerID: "sb", Chips: 1000},
		{SeatID: 2, PlayerID: "bb", Chips: 1000},
	}
	state, _, err := engine.ProcessCommand(engine.GameState{}, engine.StartHand{
		HandID:     "h1",
		Seats:      specs,
		DealerSeat: 0,
		SmallBlind: 5,
		BigBlind:   10,
		Deck:       poker.NewDeckFromOrder(top).Remaining(),
	}, engine.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, h, state.Players[0].HoleCards)
	return state
}

func TestPremiumHandOpensPreflop(t *testing.T) {
	t.Parallel()
	state := threeHanded(t, "As Ah")
	cmd, err := Decide(state, 0, texture.Texture{}, nuts.Default(), Rock, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	assert.Equal(t, engine.Raise{Seat: 0, To: 30}, cmd)
}

func TestTrashFoldsPreflop(t *testing.T) {
	t.Parallel()
	state := threeHanded(t, "7c 2d")
	for _, p := range []Personality{TightAggressive, Rock, Maniac, CallingStation} {
		cmd, err := Decide(state, 0, texture.Texture{}, nuts.Default(), p, rand.New(rand.NewPCG(1, 1)))
		require.NoError(t, err)
		assert.Equal(t, engine.Fold{Seat: 0}, cmd, p.Name)
	}
}

func TestDecideRequiresSeatToAct(t *testing.T) {
	t.Parallel()
	state := threeHanded(t, "As Ah")
	_, err := Decide(state, 1, texture.Texture{}, nuts.Default(), Rock, rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, ErrNotToAct)
}

func TestBotsOnlyMakeLegalMoves(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(5, 5))
	names := ProfileNames()
	opts := engine.DefaultOptions()

	for hand := range 200 {
		n := 2 + rng.IntN(5)
		specs := make([]engine.SeatSpec, n)
		bots := make(map[int]*Bot, n)
		for i := range specs {
			p, _ := Profile(names[rng.IntN(len(names))])
			specs[i] = engine.SeatSpec{SeatID: i, PlayerID: p.Name, Chips: 50 + rng.IntN(1500)}
			bots[i] = New(p.Name, p, rand.New(rand.NewPCG(uint64(hand), uint64(i))), quietLogger())
		}
		state, _, err := engine.ProcessCommand(engine.GameState{}, engine.StartHand{
			HandID:     "r",
			Seats:      specs,
			DealerSeat: hand % n,
			SmallBlind: 5,
			BigBlind:   10,
			Deck:       poker.NewDeck(rng).Remaining(),
		}, opts)
		require.NoError(t, err)

		for steps := 0; !state.IsHandComplete; steps++ {
			require.Less(t, steps, 200, "hand did not terminate")
			cur, ok := state.CurrentPlayer()
			require.True(t, ok)

			cmd, err := bots[cur.SeatID].Act(state, cur.SeatID)
			require.NoError(t, err)
			state, _, err = engine.ProcessCommand(state, cmd, opts)
			require.NoError(t, err, "hand %d: %T %+v", hand, cmd, cmd)
		}

		delta := state.Rake
		for _, p := range state.Players {
			delta += p.Chips - p.StartingChips
		}
		assert.Zero(t, delta)
	}
}

func TestStraightOuts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		hole  string
		board string
		want  int
	}{
		{"open-ender", "8c 9d", "7h Ts 2c", 8},
		{"gutshot", "8c 9d", "Jh Qs 2c", 4},
		{"wheel gutshot", "Ac 2d", "3h 4s 9c", 4},
		{"nothing", "Ac Kd", "2h 7s 9c", 0},
		{"draw on the board only", "Ac Kd", "5h 6s 7c 8d", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			hole := poker.NewHand(poker.MustParseCards(tt.hole)...)
			all := hole | poker.NewHand(poker.MustParseCards(tt.board)...)
			assert.Equal(t, tt.want, straightOuts(hole.GetRankMask(), all.GetRankMask()))
		})
	}
}

func TestDrawEquity(t *testing.T) {
	t.Parallel()
	flushDraw := drawEquity(poker.MustParseCards("Ah Kh"), poker.MustParseCards("2h 7h 9c"))
	assert.InDelta(t, 0.36, flushDraw, 1e-9)

	turn := drawEquity(poker.MustParseCards("Ah Kh"), poker.MustParseCards("2h 7h 9c Jd"))
	assert.InDelta(t, 0.18, turn, 1e-9)

	river := drawEquity(poker.MustParseCards("Ah Kh"), poker.MustParseCards("2h 7h 9c Jd 3s"))
	assert.Zero(t, river)
}

func TestMadeStrengthOrdering(t *testing.T) {
	t.Parallel()
	board := poker.MustParseCards("Qs 8d 3c")
	tex := texture.AnalyzeBoard(board)
	score := func(hole string) float64 {
		return madeStrength(poker.MustParseCards(hole), board, tex, nuts.Default())
	}

	overpair := score("Ac Ad")
	topPair := score("Qh Jh")
	weakPair := score("8h 7h")
	nothing := score("5h 4h")
	set := score("3h 3s")

	assert.Greater(t, set, overpair)
	assert.Greater(t, overpair, topPair)
	assert.Greater(t, topPair, weakPair)
	assert.Greater(t, weakPair, nothing)
}

func TestMadeStrengthUsesRiverNutRank(t *testing.T) {
	t.Parallel()
	hole := poker.MustParseCards("Ac 7d")
	board := poker.MustParseCards("As Kd 9h 4c 2s")
	tex := texture.AnalyzeBoard(board)

	unbeatable := madeStrength(hole, board, tex, nuts.Analysis{NutRank: 1})
	beaten := madeStrength(hole, board, tex, nuts.Analysis{NutRank: 40})
	assert.GreaterOrEqual(t, unbeatable, 0.97)
	assert.Less(t, beaten, unbeatable)
}

func TestPlayingTheBoardIsWeak(t *testing.T) {
	t.Parallel()
	board := poker.MustParseCards("Ts Jd Qh Kc Ac")
	got := madeStrength(poker.MustParseCards("2c 3d"), board, texture.AnalyzeBoard(board), nuts.Analysis{NutRank: 1})
	// The nuts floor still applies: every hand splits a broadway board.
	assert.GreaterOrEqual(t, got, 0.97)

	beaten := madeStrength(poker.MustParseCards("2c 3d"), board, texture.AnalyzeBoard(board), nuts.Analysis{NutRank: 3})
	assert.Less(t, beaten, 0.2)
}

func TestProfiles(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"calling-station", "loose-aggressive", "maniac", "rock", "tight-aggressive"}, ProfileNames())
	p, ok := Profile("maniac")
	require.True(t, ok)
	assert.Equal(t, Maniac, p)
	_, ok = Profile("shark")
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	t.Parallel()
	assert.Equal(t, VeryStrong, classify(0.99))
	assert.Equal(t, Medium, classify(0.5))
	assert.Equal(t, VeryWeak, classify(0))
}
