package lobby

import (
	"context"
	rand "math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/stats"
	"github.com/lox/holdemtables/internal/table"
)

// Run sweeps idle tables every CleanupInterval and feeds completed hands
// into the stats recorder until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.sweepLoop(ctx) })
	g.Go(func() error { return m.recordLoop(ctx) })
	return g.Wait()
}

func (m *Manager) sweepLoop(ctx context.Context) error {
	ticker := m.clock.NewTicker(m.opts.CleanupInterval, "lobby", "cleanup")
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-ctx.Done():
			return nil
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Manager) recordLoop(ctx context.Context) error {
	rng := m.streams.Next()
	for {
		select {
		case rec := <-m.hands:
			m.record(ctx, rec, rng)
		case <-ctx.Done():
			return nil
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Manager) record(ctx context.Context, rec table.HandRecord, rng *rand.Rand) {
	results, err := stats.ResultsFromHand(ctx, rec.Final, rec.Events, m.opts.EquitySamples, rng)
	if err != nil {
		m.logger.Error("Failed to compute hand results", "table", rec.TableID, "hand", rec.Final.HandID, "error", err)
		return
	}
	m.opts.Recorder.Record(results...)
}

// Cleanup closes empty public tables, keeping the oldest table of every
// pool so each stake stays joinable. Private tables that were never joined
// are closed once they are older than CleanupInterval. It returns the
// number of tables closed.
func (m *Manager) Cleanup() int {
	now := m.clock.Now()

	m.mu.Lock()
	entries := m.entriesLocked()
	empty := make(map[string]bool, len(entries))
	kept := make(map[Pool]bool)
	for _, e := range entries {
		empty[e.id] = m.emptyLocked(e)
		if !e.private() && !empty[e.id] {
			kept[e.pool] = true
		}
	}

	var doomed []*entry
	for _, e := range entries {
		switch {
		case !empty[e.id]:
		case e.private():
			if now.Sub(e.created) >= m.opts.CleanupInterval {
				doomed = append(doomed, e)
			}
		case !kept[e.pool]:
			kept[e.pool] = true
		default:
			doomed = append(doomed, e)
		}
	}
	for _, e := range doomed {
		m.removeLocked(e)
	}
	remaining := len(m.tables)
	m.mu.Unlock()

	for _, e := range doomed {
		e.tbl.Close()
	}
	if len(doomed) > 0 {
		m.logger.Info("Closed empty tables", "closed", len(doomed), "remaining", remaining)
	}
	return len(doomed)
}

// emptyLocked reports a table with no seat taken, none reserved and no hand
// running.
func (m *Manager) emptyLocked(e *entry) bool {
	snap := e.tbl.Snapshot()
	return snap.OpenSeats == engine.MaxSeats && !snap.HandInProgress &&
		e.pending == 0 && m.seatedLocked(e.id) == 0
}
