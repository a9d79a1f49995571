package bot

import (
	"maps"
	"slices"
)

// Personality holds the frequencies that shape a bot's play. Every field is
// a probability in [0,1].
type Personality struct {
	Name           string
	VPIP           float64 // share of hands played voluntarily
	PFR            float64 // share of hands raised preflop
	ThreeBetFreq   float64
	CBetFreq       float64
	Aggression     float64 // chance to bet or raise a strong hand rather than call
	BluffFreq      float64
	SlowplayFreq   float64
	FoldTo3Bet     float64
	FoldToCBet     float64
	FoldToRiverBet float64
}

// Built-in profiles.
var (
	TightAggressive = Personality{
		Name: "tight-aggressive", VPIP: 0.22, PFR: 0.18, ThreeBetFreq: 0.08, CBetFreq: 0.70,
		Aggression: 0.70, BluffFreq: 0.10, SlowplayFreq: 0.10,
		FoldTo3Bet: 0.55, FoldToCBet: 0.45, FoldToRiverBet: 0.50,
	}
	LooseAggressive = Personality{
		Name: "loose-aggressive", VPIP: 0.35, PFR: 0.28, ThreeBetFreq: 0.14, CBetFreq: 0.75,
		Aggression: 0.80, BluffFreq: 0.20, SlowplayFreq: 0.10,
		FoldTo3Bet: 0.45, FoldToCBet: 0.35, FoldToRiverBet: 0.40,
	}
	CallingStation = Personality{
		Name: "calling-station", VPIP: 0.55, PFR: 0.06, ThreeBetFreq: 0.02, CBetFreq: 0.30,
		Aggression: 0.20, BluffFreq: 0.03, SlowplayFreq: 0.05,
		FoldTo3Bet: 0.20, FoldToCBet: 0.15, FoldToRiverBet: 0.15,
	}
	Rock = Personality{
		Name: "rock", VPIP: 0.14, PFR: 0.10, ThreeBetFreq: 0.04, CBetFreq: 0.55,
		Aggression: 0.45, BluffFreq: 0.03, SlowplayFreq: 0.20,
		FoldTo3Bet: 0.70, FoldToCBet: 0.60, FoldToRiverBet: 0.65,
	}
	Maniac = Personality{
		Name: "maniac", VPIP: 0.70, PFR: 0.50, ThreeBetFreq: 0.30, CBetFreq: 0.90,
		Aggression: 0.95, BluffFreq: 0.45, SlowplayFreq: 0.02,
		FoldTo3Bet: 0.15, FoldToCBet: 0.15, FoldToRiverBet: 0.15,
	}
)

var profiles = map[string]Personality{
	TightAggressive.Name: TightAggressive,
	LooseAggressive.Name: LooseAggressive,
	CallingStation.Name:  CallingStation,
	Rock.Name:            Rock,
	Maniac.Name:          Maniac,
}

// Profile looks up a built-in personality by name.
func Profile(name string) (Personality, bool) {
	p, ok := profiles[name]
	return p, ok
}

// ProfileNames lists the built-in personalities, sorted.
func ProfileNames() []string {
	return slices.Sorted(maps.Keys(profiles))
}
