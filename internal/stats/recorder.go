package stats

import (
	"maps"
	"slices"
	"sync"
)

// Recorder keeps running totals per player. It is safe for concurrent use.
type Recorder struct {
	mu     sync.RWMutex
	totals map[string]*Totals
}

func NewRecorder() *Recorder {
	return &Recorder{totals: make(map[string]*Totals)}
}

// Record adds each result to its player's totals.
func (r *Recorder) Record(results ...PlayerHandResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, res := range results {
		t, ok := r.totals[res.PlayerID]
		if !ok {
			t = &Totals{}
			r.totals[res.PlayerID] = t
		}
		t.Add(ComputeIncrementForPlayer(res), res.BigBlind)
	}
}

// Player returns a copy of one player's totals.
func (r *Recorder) Player(playerID string) (Totals, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.totals[playerID]
	if !ok {
		return Totals{}, false
	}
	return *t, true
}

// Players returns the IDs with recorded hands, sorted.
func (r *Recorder) Players() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.totals))
}

// Reset clears all totals.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totals = make(map[string]*Totals)
}
