package engine

// move is a validated betting action ready to apply.
type move struct {
	action Action
	add    int // chips moved from stack to the street bet
}

// validate checks cmd against the seat to act without mutating state.
func (s *GameState) validate(cmd Command) (move, error) {
	if !s.InProgress() {
		return move{}, reject(cmd, "no hand in progress")
	}
	p, ok := s.CurrentPlayer()
	if !ok {
		return move{}, reject(cmd, "no seat is due to act")
	}
	if cmd.ActingSeat() != p.SeatID {
		return move{}, reject(cmd, "not your turn, seat %d to act", p.SeatID)
	}

	toCall := s.CurrentBet - p.CurrentBet
	switch c := cmd.(type) {
	case Fold:
		return move{action: ActionFold}, nil

	case Check:
		if toCall > 0 {
			return move{}, reject(cmd, "cannot check facing %d", toCall)
		}
		return move{action: ActionCheck}, nil

	case Call:
		if toCall <= 0 {
			return move{}, reject(cmd, "nothing to call")
		}
		return move{action: ActionCall, add: min(toCall, p.Chips)}, nil

	case Bet:
		if s.CurrentBet > 0 {
			return move{}, reject(cmd, "cannot bet into %d, raise instead", s.CurrentBet)
		}
		if c.Amount <= 0 {
			return move{}, reject(cmd, "bet must be positive")
		}
		if c.Amount > p.Chips {
			return move{}, reject(cmd, "bet %d exceeds stack %d", c.Amount, p.Chips)
		}
		if c.Amount < s.BigBlind && c.Amount < p.Chips {
			return move{}, reject(cmd, "bet %d below minimum %d", c.Amount, s.BigBlind)
		}
		return move{action: ActionBet, add: c.Amount}, nil

	case Raise:
		if s.CurrentBet == 0 {
			return move{}, reject(cmd, "nothing to raise, bet instead")
		}
		if p.HasActed {
			return move{}, reject(cmd, "betting was not reopened")
		}
		add := c.To - p.CurrentBet
		if c.To <= s.CurrentBet {
			return move{}, reject(cmd, "raise to %d does not exceed current bet %d", c.To, s.CurrentBet)
		}
		if add > p.Chips {
			return move{}, reject(cmd, "raise to %d exceeds stack %d", c.To, p.Chips+p.CurrentBet)
		}
		if minTo := s.CurrentBet + s.MinRaise; c.To < minTo && add < p.Chips {
			return move{}, reject(cmd, "raise to %d below minimum %d", c.To, minTo)
		}
		return move{action: ActionRaise, add: add}, nil

	case AllIn:
		if p.Chips == 0 {
			return move{}, reject(cmd, "no chips behind")
		}
		if p.CurrentBet+p.Chips > s.CurrentBet && p.HasActed {
			return move{}, reject(cmd, "betting was not reopened")
		}
		return move{action: ActionAllIn, add: p.Chips}, nil
	}
	return move{}, reject(cmd, "not a betting action")
}

// apply executes a validated move for the player at index i.
func (s *GameState) apply(i int, m move, forced bool) Event {
	p := &s.Players[i]
	p.Chips -= m.add
	p.CurrentBet += m.add
	p.TotalBet += m.add
	if m.add > 0 && p.Chips == 0 {
		p.AllIn = true
	}
	if m.action == ActionFold {
		p.Folded = true
	}

	if p.CurrentBet > s.CurrentBet {
		// Only a full raise, or the first bet of a street, reopens the betting.
		raise := p.CurrentBet - s.CurrentBet
		full := raise >= s.MinRaise
		if full {
			s.MinRaise = raise
			s.LastFullRaiseBet = p.CurrentBet
			s.LastRaiserIndex = i
		}
		if full || s.CurrentBet == 0 {
			for j := range s.Players {
				if j != i && s.Players[j].canAct() {
					s.Players[j].HasActed = false
				}
			}
		}
		s.CurrentBet = p.CurrentBet
	}
	p.HasActed = true

	s.History = append(s.History, ActionRecord{
		Street: s.Street,
		SeatID: p.SeatID,
		Action: m.action,
		Amount: m.add,
		To:     p.CurrentBet,
		Forced: forced,
	})
	return ActionTaken{
		SeatID:     p.SeatID,
		PlayerID:   p.PlayerID,
		Street:     s.Street,
		Action:     m.action,
		Amount:     m.add,
		To:         p.CurrentBet,
		Chips:      p.Chips,
		AllIn:      p.AllIn,
		Forced:     forced,
		PotAfter:   s.PotTotal(),
		CurrentBet: s.CurrentBet,
	}
}

// LegalAction is one permitted action with its amount bounds. For bets and
// raises the bounds are street totals; for calls and all-ins they are the
// chips the seat would add.
type LegalAction struct {
	Action Action
	Min    int
	Max    int
}

// LegalActions lists what the seat to act may do. It returns nil when no
// seat is due to act.
func LegalActions(s GameState) []LegalAction {
	if !s.InProgress() {
		return nil
	}
	p, ok := s.CurrentPlayer()
	if !ok {
		return nil
	}

	toCall := s.CurrentBet - p.CurrentBet
	stackTo := p.CurrentBet + p.Chips
	actions := []LegalAction{{Action: ActionFold}}

	if toCall <= 0 {
		actions = append(actions, LegalAction{Action: ActionCheck})
	} else {
		call := min(toCall, p.Chips)
		actions = append(actions, LegalAction{Action: ActionCall, Min: call, Max: call})
	}

	canRaise := !p.HasActed && p.Chips > toCall
	switch {
	case s.CurrentBet == 0 && p.Chips > 0:
		actions = append(actions, LegalAction{Action: ActionBet, Min: min(s.BigBlind, p.Chips), Max: p.Chips})
	case s.CurrentBet > 0 && canRaise:
		actions = append(actions, LegalAction{Action: ActionRaise, Min: min(s.CurrentBet+s.MinRaise, stackTo), Max: stackTo})
	}

	if p.Chips > 0 && (stackTo <= s.CurrentBet || !p.HasActed) {
		actions = append(actions, LegalAction{Action: ActionAllIn, Min: p.Chips, Max: p.Chips})
	}
	return actions
}

// IsLegal reports whether the action appears in the legal set.
func IsLegal(actions []LegalAction, a Action) (LegalAction, bool) {
	for _, la := range actions {
		if la.Action == a {
			return la, true
		}
	}
	return LegalAction{}, false
}
