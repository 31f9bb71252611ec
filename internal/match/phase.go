package match

import "time"

type PhaseChange struct {
	From     Phase          `json:"from"`
	To       Phase          `json:"phase"`
	WinnerID *ParticipantID `json:"winner_id"`
	Reason   string         `json:"reason,omitempty"`
	// SimRunning tells participants whether the simulation clock runs.
	SimRunning bool  `json:"sim_running"`
	AtTS       int64 `json:"at_ts"`
}

// PhaseController is the only writer of phase and winner. Transitions move
// forward only: Waiting -> Playing -> Ended.
type PhaseController struct {
	state   SessionState
	out     Publisher
	subs    map[int]func(PhaseChange)
	nextSub int
}

func newPhaseController(out Publisher) *PhaseController {
	return &PhaseController{
		state: SessionState{Phase: PhaseWaiting},
		out:   out,
		subs:  map[int]func(PhaseChange){},
	}
}

func (p *PhaseController) Phase() Phase {
	return p.state.Phase
}

func (p *PhaseController) State() SessionState {
	st := p.state
	if st.WinnerID != nil {
		w := *st.WinnerID
		st.WinnerID = &w
	}
	return st
}

// Start moves Waiting to Playing. It is a no-op in any other phase.
func (p *PhaseController) Start(now time.Time) bool {
	if p.state.Phase != PhaseWaiting {
		return false
	}
	p.state.StartedAt = now
	p.transition(PhasePlaying, nil, now, "started")
	return true
}

// DeclareWinner ends a Playing session with the given winner. Only the first
// call has any effect.
func (p *PhaseController) DeclareWinner(id ParticipantID, now time.Time, reason string) bool {
	if p.state.Phase != PhasePlaying || id == "" {
		return false
	}
	w := id
	p.state.WinnerID = &w
	p.state.EndedAt = now
	p.state.EndReason = reason
	p.transition(PhaseEnded, &w, now, reason)
	return true
}

// Abandon ends a Playing session that has nobody left to win it.
func (p *PhaseController) Abandon(now time.Time, reason string) bool {
	if p.state.Phase != PhasePlaying {
		return false
	}
	p.state.EndedAt = now
	p.state.EndReason = reason
	p.transition(PhaseEnded, nil, now, reason)
	return true
}

// Subscribe registers fn for every phase change. Callbacks run while the
// session lock is held and must not call back into the session.
func (p *PhaseController) Subscribe(fn func(PhaseChange)) func() {
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() { delete(p.subs, id) }
}

func (p *PhaseController) transition(to Phase, winner *ParticipantID, now time.Time, reason string) {
	from := p.state.Phase
	if to.rank() <= from.rank() {
		return
	}
	p.state.Phase = to
	var w *ParticipantID
	if winner != nil {
		c := *winner
		w = &c
	}
	change := PhaseChange{
		From:       from,
		To:         to,
		WinnerID:   w,
		Reason:     reason,
		SimRunning: to == PhasePlaying,
		AtTS:       now.UnixMilli(),
	}
	metricPhaseTransitions.Add(1)
	p.out.Broadcast("phase_changed", change)
	p.notify(change)
}

func (p *PhaseController) notify(change PhaseChange) {
	for i := 0; i < p.nextSub; i++ {
		if fn, ok := p.subs[i]; ok {
			fn(change)
		}
	}
}
