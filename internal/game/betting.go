package game

import (
	"fmt"
)

// Transition describes the effect of one applied action.
type Transition struct {
	// ParticipantID acted; Action is the action as applied, after an
	// oversized raise was converted to an all-in or a short all-in to a call.
	ParticipantID string
	Action        Action
	// Paid is what moved from the participant's stack into the pot.
	Paid int
	// Message narrates the action for the table.
	Message string
	// Dealt lists the streets whose cards were revealed as a result.
	Dealt []Street
	// Over is set when the action ended the hand; see Match.Result.
	Over bool
}

// Apply performs an action for the participant whose turn it is. On error the
// match is unchanged.
func (m *Match) Apply(participantID string, a Action) (*Transition, error) {
	if m.IsOver() {
		return nil, ErrMatchOver
	}
	i := m.indexOf(participantID)
	if i < 0 {
		return nil, &ValidationError{Field: "participant", Reason: fmt.Sprintf("unknown participant %q", participantID)}
	}
	if a.Amount < 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	p := m.Participants[i]
	if i != m.turn {
		return nil, illegal(p, a.Kind, "not your turn")
	}

	tr := &Transition{ParticipantID: p.ID}
	var err error
	switch a.Kind {
	case ActionFold:
		err = m.fold(p, tr)
	case ActionCheck:
		err = m.check(p, tr)
	case ActionCall:
		err = m.call(p, tr)
	case ActionRaise:
		err = m.raise(p, a.Amount, tr)
	case ActionAllIn:
		err = m.raise(p, p.Bet+p.Stack, tr)
	default:
		return nil, &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", a.Kind)}
	}
	if err != nil {
		return nil, err
	}
	p.acted = true

	before := m.Street
	m.progress(i)
	last := m.Street
	switch last {
	case FoldedOut:
		last = before
	case Showdown:
		last = River
	}
	for s := before + 1; s <= last; s++ {
		tr.Dealt = append(tr.Dealt, s)
	}
	tr.Over = m.IsOver()
	return tr, nil
}

func (m *Match) fold(p *Participant, tr *Transition) error {
	p.IsFolded = true
	p.LastAction = LastFold
	tr.Action = Fold()
	tr.Message = fmt.Sprintf("%s folded", p.Name)
	return nil
}

func (m *Match) check(p *Participant, tr *Transition) error {
	if m.CallAmount != 0 && p.Bet < m.CallAmount {
		return illegal(p, ActionCheck, "%d to call", m.CallAmount-p.Bet)
	}
	p.IsChecked = true
	p.LastAction = LastCheck
	tr.Action = Check()
	tr.Message = fmt.Sprintf("%s checked", p.Name)
	return nil
}

func (m *Match) call(p *Participant, tr *Transition) error {
	owed := m.CallAmount - p.Bet
	if owed <= 0 {
		return illegal(p, ActionCall, "nothing to call, check instead")
	}
	tr.Paid = p.commit(owed)
	p.LastAction = LastCall
	tr.Action = Call()
	if p.IsAllIn {
		tr.Message = fmt.Sprintf("%s called %d and is all-in", p.Name, tr.Paid)
	} else {
		tr.Message = fmt.Sprintf("%s called %d", p.Name, tr.Paid)
	}
	return nil
}

// raise takes the new street total. A total beyond the stack becomes an
// all-in for the stack; an all-in that does not exceed the call amount is a call.
func (m *Match) raise(p *Participant, amount int, tr *Transition) error {
	allInTotal := p.Bet + p.Stack
	amount = min(amount, allInTotal)
	allIn := amount == allInTotal

	if amount <= m.CallAmount {
		if allIn && p.Stack > 0 && p.Bet < m.CallAmount {
			return m.call(p, tr)
		}
		return illegal(p, ActionRaise, "raise to %d does not exceed the call amount of %d", amount, m.CallAmount)
	}
	if amount < m.MinRaise && !allIn {
		return illegal(p, ActionRaise, "minimum raise is to %d", m.MinRaise)
	}
	if p.acted {
		// betting was only reopened by an incomplete all-in
		return illegal(p, ActionRaise, "betting has not been reopened")
	}

	opening := m.CallAmount == 0
	full := amount >= m.MinRaise || opening

	switch {
	case allIn:
		p.LastAction = LastAllIn
	case opening:
		p.LastAction = LastBet
	default:
		p.LastAction = LastRaise
	}
	tr.Paid = p.commit(amount - p.Bet)

	if full {
		m.lastRaiseSize = max(m.lastRaiseSize, amount-m.CallAmount)
		for _, o := range m.Participants {
			if o != p {
				o.acted = false
			}
		}
	}
	m.CallAmount = amount
	m.MinRaise = m.CallAmount + m.lastRaiseSize

	tr.Action = Raise(amount)
	switch p.LastAction {
	case LastAllIn:
		tr.Action = AllIn()
		tr.Action.Amount = amount
		tr.Message = fmt.Sprintf("%s is all-in for %d", p.Name, amount)
	case LastBet:
		tr.Message = fmt.Sprintf("%s bet %d", p.Name, amount)
	default:
		tr.Message = fmt.Sprintf("%s raised to %d", p.Name, amount)
	}
	return nil
}

// progress decides what happens after the participant at index from acted:
// the hand ends, the board runs out, the street advances, or the turn passes.
func (m *Match) progress(from int) {
	m.turn = -1
	for {
		var live, canAct []*Participant
		for _, p := range m.Participants {
			if p.IsFolded {
				continue
			}
			live = append(live, p)
			if p.CanAct() {
				canAct = append(canAct, p)
			}
		}

		if len(live) == 1 {
			m.settleFoldedOut(live[0])
			return
		}

		if len(canAct) == 0 || (len(canAct) == 1 && canAct[0].Bet >= m.CallAmount) {
			m.collect()
			m.Street = Showdown
			m.settleShowdown()
			return
		}

		if m.roundClosed() {
			m.collect()
			if m.Street == River {
				m.Street = Showdown
				m.settleShowdown()
				return
			}
			m.Street = m.Street.Next()
			m.CallAmount = 0
			m.lastRaiseSize = m.BigBlind
			m.MinRaise = m.BigBlind
			from = m.indexOf(m.ButtonID)
			continue
		}

		m.turn = m.nextToAct(from)
		return
	}
}

// roundClosed is true when every participant who can still act has acted since
// the last full raise and matched the call amount.
func (m *Match) roundClosed() bool {
	for _, p := range m.Participants {
		if p.CanAct() && (!p.acted || p.Bet < m.CallAmount) {
			return false
		}
	}
	return true
}

func (m *Match) nextToAct(from int) int {
	n := len(m.Participants)
	for k := 1; k <= n; k++ {
		i := (from + k) % n
		p := m.Participants[i]
		if p.CanAct() && (!p.acted || p.Bet < m.CallAmount) {
			return i
		}
	}
	return -1
}

// collect closes the betting round: street bets stay in TotalBet, the pots are
// recomputed and per-street flags are reset.
func (m *Match) collect() {
	m.pots = CalculatePots(m.Participants)
	for _, p := range m.Participants {
		p.Bet = 0
		p.IsChecked = false
		p.acted = false
		if !p.IsFolded && !p.IsAllIn {
			p.LastAction = LastNone
		}
	}
}

// Legal returns the actions open to the participant. It is empty unless it is
// their turn.
func (m *Match) Legal(participantID string) Legal {
	i := m.indexOf(participantID)
	if m.IsOver() || i < 0 || i != m.turn {
		return Legal{}
	}
	p := m.Participants[i]
	l := Legal{Actions: []ActionKind{ActionFold}}

	owed := m.CallAmount - p.Bet
	if owed <= 0 {
		l.Actions = append(l.Actions, ActionCheck)
	} else {
		l.Actions = append(l.Actions, ActionCall)
		l.ToCall = min(owed, p.Stack)
	}

	allInTotal := p.Bet + p.Stack
	switch {
	case allInTotal > m.CallAmount && !p.acted:
		l.Actions = append(l.Actions, ActionRaise, ActionAllIn)
		l.MinRaise = min(m.MinRaise, allInTotal)
		l.MaxRaise = allInTotal
	case allInTotal <= m.CallAmount:
		// shoving is only a call for less
		l.Actions = append(l.Actions, ActionAllIn)
	}
	return l
}
