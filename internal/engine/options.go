package engine

// Options are the table rules the engine applies.
type Options struct {
	// RakeBasisPoints is the rake as hundredths of a percent (500 = 5%).
	RakeBasisPoints int
	// RakeCapBB caps the rake in big blinds.
	RakeCapBB int
	// NoFlopNoDrop skips the rake for hands that end before the flop.
	NoFlopNoDrop bool
	// MinPlayersToStart is the number of seats with chips a hand needs.
	MinPlayersToStart int
}

// DefaultOptions returns 5% rake capped at 3 big blinds, no rake without a
// flop and a two player minimum.
func DefaultOptions() Options {
	return Options{
		RakeBasisPoints:   500,
		RakeCapBB:         3,
		NoFlopNoDrop:      true,
		MinPlayersToStart: 2,
	}
}

func (o Options) minPlayers() int {
	return max(o.MinPlayersToStart, 2)
}
