package table

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/sanity-io/litter"

	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/timer"
	"github.com/lox/holdemtables/poker"
)

var dump = litter.Options{Compact: true, StripPackageNames: true, HidePrivateFields: true}

func (t *Table) minPlayers() int {
	return max(t.rules.MinPlayersToStart, 2)
}

// sit places s in the first free seat.
func (t *Table) sit(s *seat) (int, error) {
	if s.chips <= 0 {
		return -1, fmt.Errorf("%w: buy-in must be positive", ErrSeatUnavailable)
	}
	if _, dup := t.find(s.playerID); dup != nil {
		return -1, fmt.Errorf("%w: %s is already seated", ErrSeatUnavailable, s.playerID)
	}
	seatID := -1
	for i, cur := range t.seats {
		if cur == nil {
			seatID = i
			break
		}
	}
	if seatID < 0 {
		return -1, fmt.Errorf("%w: table is full", ErrSeatUnavailable)
	}

	t.seats[seatID] = s
	t.setHurry(false)
	t.notify("", PlayerSeated{SeatID: seatID, PlayerID: s.playerID, Chips: s.chips, Bot: s.bot != nil})
	t.logger.Info("Player seated", "player", s.playerID, "seat", seatID, "chips", s.chips, "bot", s.bot != nil)

	if t.phase == Idle {
		t.scheduleNextHand()
	}
	return seatID, nil
}

func (t *Table) leave(playerID string) error {
	seatID, s := t.find(playerID)
	if s == nil {
		return ErrNotSeated
	}

	if t.phase == HandInProgress {
		if i := t.state.PlayerBySeat(seatID); i >= 0 && t.state.Players[i].PlayerID == playerID {
			p := t.state.Players[i]
			switch {
			case p.AllIn:
				s.removal = leaveAtHandEnd
				t.logger.Info("Player leaving after hand", "player", playerID, "seat", seatID)
				return nil
			case !p.Folded && !p.SittingOut:
				s.removal = leaveAtHandEnd
				if err := t.apply(engine.ForceFold{Seat: seatID}); err != nil {
					s.removal = stays
					return err
				}
				// The fold may have ended the hand and freed the seat.
				if t.seats[seatID] == s && t.phase == HandInProgress {
					t.detach(seatID, s, ReasonLeft)
				}
				return nil
			default:
				t.detach(seatID, s, ReasonLeft)
				return nil
			}
		}
	}

	t.opts.Leaves.OnLeft(playerID, s.chips)
	t.vacate(seatID, ReasonLeft)
	return nil
}

// apply runs cmd through the engine and schedules its events.
func (t *Table) apply(cmd engine.Command) error {
	next, events, err := engine.ProcessCommand(t.state, cmd, t.rules)
	if err != nil {
		return err
	}
	t.scheduler.Cancel(timer.ActionTimeout)
	t.scheduler.Cancel(timer.BotThink)
	t.turn++
	t.state = next

	t.logger.Debug("Command applied", "hand", next.HandID, "command", cmd.CommandType(), "seat", cmd.ActingSeat(), "events", len(events))
	t.schedule(events)

	if f, ok := cmd.(engine.Fold); ok {
		t.folded(f.Seat)
	}
	if next.IsHandComplete {
		t.completeHand()
	}
	return nil
}

// folded releases a human who folded at a fast-fold table so they can be
// dealt into another hand at once.
func (t *Table) folded(seatID int) {
	s := t.seats[seatID]
	if !t.opts.FastFold || s == nil || s.bot != nil || s.removal != stays {
		return
	}
	t.detach(seatID, s, ReasonFastFold)
}

// detach cashes out a player whose stack can no longer change and keeps their
// seat reserved until the hand ends.
func (t *Table) detach(seatID int, s *seat, reason LeaveReason) {
	if i := t.state.PlayerBySeat(seatID); i >= 0 {
		s.chips = t.state.Players[i].Chips
	}
	s.removal = detached
	switch reason {
	case ReasonFastFold:
		t.opts.FastFolds.OnFastFold(s.playerID, s.chips)
	default:
		t.opts.Leaves.OnLeft(s.playerID, s.chips)
	}
	t.notify("", PlayerLeft{SeatID: seatID, PlayerID: s.playerID, Chips: s.chips, Reason: reason})
	t.logger.Info("Player released", "player", s.playerID, "seat", seatID, "chips", s.chips, "reason", reason)
}

// vacate frees a seat and announces it.
func (t *Table) vacate(seatID int, reason LeaveReason) {
	s := t.seats[seatID]
	if s == nil {
		return
	}
	t.seats[seatID] = nil
	if s.removal != detached {
		t.notify("", PlayerLeft{SeatID: seatID, PlayerID: s.playerID, Chips: s.chips, Reason: reason})
		t.logger.Info("Player left", "player", s.playerID, "seat", seatID, "chips", s.chips, "reason", reason)
	}
	if t.occupied() == 0 {
		t.setHurry(true)
	}
}

func (t *Table) occupied() int {
	n := 0
	for _, s := range t.seats {
		if s != nil {
			n++
		}
	}
	return n
}

// ready lists the seats that can be dealt into the next hand.
func (t *Table) ready() []engine.SeatSpec {
	var specs []engine.SeatSpec
	for i, s := range t.seats {
		if s != nil && s.removal == stays && s.chips > 0 {
			specs = append(specs, engine.SeatSpec{SeatID: i, PlayerID: s.playerID, Chips: s.chips})
		}
	}
	return specs
}

// setHurry skips pacing while nobody is seated to watch it.
func (t *Table) setHurry(on bool) {
	if t.hurry.Swap(on) == on || !on {
		return
	}
	for _, k := range []timer.Kind{timer.ActionAnimation, timer.StreetTransition, timer.AllInRunout, timer.ShowdownReveal, timer.HandComplete} {
		t.scheduler.Cancel(k)
	}
}

// scheduleNextHand announces and arms the next hand, or idles the table when
// too few players remain.
func (t *Table) scheduleNextHand() {
	if len(t.ready()) < t.minPlayers() {
		t.phase = Idle
		return
	}
	t.phase = BetweenHands
	t.round++
	round := t.round
	t.notify("", Countdown{StartsIn: t.timing.NextHand})
	t.after(timer.NextHand, func() { t.startNext(round) })
}

func (t *Table) startNext(round uint64) {
	if round != t.round || t.phase != BetweenHands {
		return
	}
	if err := t.startHand(); err != nil {
		t.logger.Warn("Next hand not started", "error", err)
	}
}

func (t *Table) startHand() error {
	specs := t.ready()
	if len(specs) < t.minPlayers() {
		t.phase = Idle
		return engine.ErrInsufficientSeats
	}

	var deck []poker.Card
	if t.opts.Deck != nil {
		deck = t.opts.Deck()
	} else {
		t.deck.Shuffle()
		deck = t.deck.Remaining()
	}

	next, events, err := engine.ProcessCommand(engine.GameState{}, engine.StartHand{
		HandID:     t.ids.New("hand"),
		Seats:      specs,
		DealerSeat: (t.button + 1) % engine.MaxSeats,
		SmallBlind: t.opts.SmallBlind,
		BigBlind:   t.opts.BigBlind,
		Deck:       deck,
	}, t.rules)
	if err != nil {
		t.phase = Idle
		return err
	}

	t.phase = HandInProgress
	t.state = next
	t.handEvents = nil
	t.turn++
	t.button = next.Players[next.DealerIndex].SeatID
	t.logger.Info("Hand started", "hand", next.HandID, "players", len(specs), "button", t.button)

	t.schedule(events)
	if next.IsHandComplete {
		t.completeHand()
	}
	return nil
}

// schedule splits events into paced beats and, while the hand continues,
// ends with the action request for the seat to act.
func (t *Table) schedule(events []engine.Event) {
	t.handEvents = append(t.handEvents, events...)

	var b beat
	animate := false
	for _, ev := range events {
		kind, paced := pacingFor(ev)
		if !paced && animate {
			kind, paced = timer.ActionAnimation, true
		}
		if paced {
			t.push(b)
			b = beat{paced: true, delay: kind}
			animate = false
		}
		b.envelopes = append(b.envelopes, t.envelope(ev))
		if _, ok := ev.(engine.ActionTaken); ok {
			animate = true
		}
	}

	if cur, ok := t.state.CurrentPlayer(); ok && !t.state.IsHandComplete {
		if animate {
			t.push(b)
			b = beat{paced: true, delay: timer.ActionAnimation}
		}
		seq := t.turn
		b.envelopes = append(b.envelopes, t.envelopeFor("", ActionRequired{
			HandID:   t.state.HandID,
			SeatID:   cur.SeatID,
			PlayerID: cur.PlayerID,
			Legal:    engine.LegalActions(t.state),
			ToCall:   max(t.state.CurrentBet-cur.CurrentBet, 0),
			Pot:      t.state.PotTotal(),
			Timeout:  t.timing.ActionTimeout,
		}))
		b.after = func() { t.turnStarted(seq) }
	}
	t.push(b)
}

// completeHand settles the seats once the engine reports the hand over.
func (t *Table) completeHand() {
	final := t.state
	events := t.handEvents
	t.handEvents = nil
	t.phase = BetweenHands
	t.hands++

	for _, p := range final.Players {
		if s := t.seats[p.SeatID]; s != nil && s.playerID == p.PlayerID && s.removal != detached {
			s.chips = p.Chips
		}
	}
	for i, s := range t.seats {
		if s == nil {
			continue
		}
		switch {
		case s.removal == detached:
			t.vacate(i, ReasonLeft)
		case s.removal == leaveAtHandEnd:
			t.opts.Leaves.OnLeft(s.playerID, s.chips)
			t.vacate(i, ReasonLeft)
		case s.removal == afkAtHandEnd:
			t.opts.AFK.OnAFKRemoval(s.playerID, s.chips)
			t.vacate(i, ReasonAFK)
		case s.chips == 0:
			if s.bot == nil {
				t.opts.Leaves.OnLeft(s.playerID, 0)
			}
			t.vacate(i, ReasonBusted)
		}
	}

	t.logger.Info("Hand complete", "hand", final.HandID, "rake", final.Rake, "pot", final.Pot)
	if t.logger.GetLevel() <= log.DebugLevel {
		t.logger.Debug("Hand result", "winners", dump.Sdump(final.Winners), "board", final.Board)
	}
	t.opts.Observer.OnHandComplete(HandRecord{TableID: t.id, Final: final, Events: events})

	t.push(beat{paced: true, delay: timer.HandComplete, after: t.afterHand})
}

func (t *Table) afterHand() {
	if t.phase != BetweenHands {
		return
	}
	t.scheduleNextHand()
}

// turnStarted arms the bot or timeout timer once the action request for
// turn seq has been delivered.
func (t *Table) turnStarted(seq uint64) {
	if seq != t.turn {
		return
	}
	cur, ok := t.state.CurrentPlayer()
	if !ok {
		return
	}
	s := t.seats[cur.SeatID]
	if s == nil {
		return
	}
	if s.bot != nil {
		t.after(timer.BotThink, func() { t.botTurn(seq) })
		return
	}
	t.after(timer.ActionTimeout, func() { t.actionTimedOut(seq) })
}

func (t *Table) botTurn(seq uint64) {
	if seq != t.turn {
		return
	}
	cur, ok := t.state.CurrentPlayer()
	if !ok {
		return
	}
	s := t.seats[cur.SeatID]
	if s == nil || s.bot == nil {
		return
	}
	cmd, err := s.bot.Act(t.state, cur.SeatID)
	if err == nil {
		err = t.apply(cmd)
	}
	if err != nil {
		t.logger.Error("Bot command failed", "bot", s.playerID, "error", err)
		t.autoAct(cur.SeatID, true)
	}
}

// actionTimedOut acts for a player who let the action timer run out.
func (t *Table) actionTimedOut(seq uint64) {
	if seq != t.turn {
		return
	}
	cur, ok := t.state.CurrentPlayer()
	if !ok {
		return
	}
	s := t.seats[cur.SeatID]
	if s == nil || s.bot != nil {
		return
	}

	s.timeouts++
	remove := t.opts.AFK.OnPlayerTimedOut(s.playerID, s.timeouts)
	if remove {
		s.removal = afkAtHandEnd
	}
	action := t.autoAction(!remove)
	t.logger.Warn("Action timed out", "player", s.playerID, "seat", cur.SeatID, "consecutive", s.timeouts, "action", action, "removed", remove)
	t.notify("", PlayerTimedOut{
		HandID:      t.state.HandID,
		SeatID:      cur.SeatID,
		PlayerID:    s.playerID,
		Consecutive: s.timeouts,
		Action:      action,
		Removed:     remove,
	})
	t.autoAct(cur.SeatID, !remove)
}

// autoAction is check when allowed and free, otherwise fold.
func (t *Table) autoAction(mayCheck bool) engine.Action {
	if mayCheck {
		if _, ok := engine.IsLegal(engine.LegalActions(t.state), engine.ActionCheck); ok {
			return engine.ActionCheck
		}
	}
	return engine.ActionFold
}

func (t *Table) autoAct(seatID int, mayCheck bool) {
	var cmd engine.Command = engine.Fold{Seat: seatID}
	if t.autoAction(mayCheck) == engine.ActionCheck {
		cmd = engine.Check{Seat: seatID}
	}
	if err := t.apply(cmd); err != nil {
		t.logger.Error("Automatic action rejected", "seat", seatID, "error", err)
	}
}

func (t *Table) push(b beat) {
	if !b.empty() {
		t.beats.push(b)
	}
}

// notify queues a notice as its own beat.
func (t *Table) notify(recipient string, n Notice) {
	t.push(beat{envelopes: []Envelope{t.envelopeFor(recipient, n)}})
}

func (t *Table) envelope(ev engine.Event) Envelope {
	t.seq++
	env := Envelope{TableID: t.id, Seq: t.seq, Event: ev}
	if hc, ok := ev.(engine.HoleCardsDealt); ok {
		env.Recipient = hc.PlayerID
	}
	return env
}

func (t *Table) envelopeFor(recipient string, n Notice) Envelope {
	t.seq++
	return Envelope{TableID: t.id, Seq: t.seq, Recipient: recipient, Notice: n}
}
