package lobby

import (
	"github.com/lox/holdemtables/internal/table"
)

// hooks receives one table's callbacks. They run on that table's
// goroutine, so they only touch the manager's indices and hand anything
// that calls back into a table to another goroutine.
type hooks struct {
	m     *Manager
	entry *entry
}

func (h hooks) OnPlayerTimedOut(playerID string, consecutive int) bool {
	remove := consecutive >= h.m.opts.MaxConsecutiveTimeouts
	h.m.logger.Warn("Player timed out",
		"player", playerID,
		"table", h.entry.id,
		"consecutive", consecutive,
		"remove", remove)
	return remove
}

func (h hooks) OnAFKRemoval(playerID string, chips int) {
	h.release(playerID)
	h.m.cashOut(playerID, chips, table.ReasonAFK)
	h.closeIfAbandoned()
}

func (h hooks) OnLeft(playerID string, chips int) {
	h.release(playerID)
	reason := table.ReasonLeft
	if chips == 0 {
		reason = table.ReasonBusted
	}
	h.m.cashOut(playerID, chips, reason)
	h.closeIfAbandoned()
}

// OnFastFold moves the folder to another table of the same pool with the
// stack they had left.
func (h hooks) OnFastFold(playerID string, chips int) {
	h.release(playerID)

	m := h.m
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		tableID, _, err := m.seatInPool(m.ctx, playerID, h.entry.pool, chips, h.entry.id)
		if err != nil {
			m.logger.Warn("Fast-fold reseat failed", "player", playerID, "error", err)
			m.cashOut(playerID, chips, table.ReasonFastFold)
			return
		}
		m.logger.Debug("Fast-fold reseat", "player", playerID, "from", h.entry.id, "to", tableID)
	}()
}

func (h hooks) OnHandComplete(record table.HandRecord) {
	select {
	case h.m.hands <- record:
	default:
		h.m.logger.Warn("Stats queue full, dropping hand", "table", record.TableID, "hand", record.Final.HandID)
	}
}

func (h hooks) release(playerID string) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	if h.m.players[playerID] == h.entry.id {
		delete(h.m.players, playerID)
	}
}

// closeIfAbandoned removes a private table once nobody is left at it.
func (h hooks) closeIfAbandoned() {
	if !h.entry.private() {
		return
	}
	m := h.m
	m.mu.Lock()
	_, live := m.tables[h.entry.id]
	if !live || m.seatedLocked(h.entry.id) > 0 || h.entry.pending > 0 {
		m.mu.Unlock()
		return
	}
	m.removeLocked(h.entry)
	m.mu.Unlock()

	m.logger.Info("Private table empty, closing", "table", h.entry.id)
	go h.entry.tbl.Close()
}
