package lobby

import (
	"github.com/thoas/go-funk"

	"github.com/lox/holdemtables/internal/table"
)

type candidate struct {
	e    *entry
	snap table.Snapshot
}

// players counts seated players plus seats promised to requests in flight.
func (c candidate) players() int { return c.snap.Players + c.e.pending }

func (c candidate) hasRoom() bool { return c.snap.OpenSeats-c.e.pending > 0 }

// FindAvailableTable picks the public table of pool a new player should
// join. Fast-fold pools fill the fullest table that is between hands;
// normal pools spread players onto the emptiest table. Ties go to the
// oldest table.
func (m *Manager) FindAvailableTable(pool Pool) (Listing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.matchLocked(pool, nil, "")
	if e == nil {
		return Listing{}, false
	}
	return listing(e, e.tbl.Snapshot()), true
}

func (m *Manager) matchLocked(pool Pool, skip map[string]bool, fallback string) *entry {
	all := make([]candidate, 0, len(m.tables))
	for _, e := range m.entriesLocked() {
		all = append(all, candidate{e: e, snap: e.tbl.Snapshot()})
	}

	eligible := funk.Filter(all, func(c candidate) bool {
		return c.e.pool == pool && !c.e.private() && !skip[c.e.id] && c.hasRoom()
	}).([]candidate)

	if !pool.FastFold {
		var best *candidate
		for i := range eligible {
			if best == nil || eligible[i].players() < best.players() {
				best = &eligible[i]
			}
		}
		if best == nil {
			return nil
		}
		return best.e
	}

	idle := funk.Filter(eligible, func(c candidate) bool {
		return !c.snap.HandInProgress
	}).([]candidate)
	var best *candidate
	for i := range idle {
		if best == nil || idle[i].players() > best.players() {
			best = &idle[i]
		}
	}
	if best != nil {
		return best.e
	}

	// A player leaving a hand in progress goes back to the table they came
	// from rather than waiting alone at a new one.
	for _, c := range eligible {
		if c.e.id == fallback {
			return c.e
		}
	}
	return nil
}
