package timer

import "time"

// Timing holds the duration of every timer kind.
type Timing struct {
	ActionTimeout    time.Duration
	ActionAnimation  time.Duration
	StreetTransition time.Duration
	AllInRunout      time.Duration
	ShowdownReveal   time.Duration
	HandComplete     time.Duration
	NextHand         time.Duration
	BotThink         time.Duration
}

// DefaultTiming returns the standard table pacing.
func DefaultTiming() Timing {
	return Timing{
		ActionTimeout:    30 * time.Second,
		ActionAnimation:  600 * time.Millisecond,
		StreetTransition: 800 * time.Millisecond,
		AllInRunout:      1500 * time.Millisecond,
		ShowdownReveal:   2 * time.Second,
		HandComplete:     3 * time.Second,
		NextHand:         2 * time.Second,
		BotThink:         time.Second,
	}
}

// For returns the duration configured for kind.
func (t Timing) For(kind Kind) time.Duration {
	switch kind {
	case ActionTimeout:
		return t.ActionTimeout
	case ActionAnimation:
		return t.ActionAnimation
	case StreetTransition:
		return t.StreetTransition
	case AllInRunout:
		return t.AllInRunout
	case ShowdownReveal:
		return t.ShowdownReveal
	case HandComplete:
		return t.HandComplete
	case NextHand:
		return t.NextHand
	case BotThink:
		return t.BotThink
	default:
		return 0
	}
}
