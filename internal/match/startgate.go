package match

import "time"

// StartGate holds every participant frozen until enough of them are ready
// or the wait deadline passes, whichever comes first.
type StartGate struct {
	required int
	timeout  time.Duration
	deadline time.Time
	opened   bool

	dir      *Directory
	identity *IdentitySync
	phase    *PhaseController
	out      Publisher
}

// Arm starts the wait clock. Only the first call sets the deadline.
func (g *StartGate) Arm(now time.Time) {
	if g.deadline.IsZero() {
		g.deadline = now.Add(g.timeout)
	}
}

func (g *StartGate) Deadline() time.Time {
	return g.deadline
}

func (g *StartGate) Opened() bool {
	return g.opened
}

// NotifyReady marks the participant ready and re-evaluates the gate. A
// participant that never submitted an identity gets the defaults.
func (g *StartGate) NotifyReady(id ParticipantID, now time.Time) (bool, error) {
	rec, ok := g.dir.Get(id)
	if !ok {
		return false, ErrUnknownParticipant
	}
	if g.phase.Phase() != PhaseWaiting {
		return false, nil
	}
	if !rec.IdentityReady {
		if _, err := g.identity.Submit(id, Identity{}); err != nil {
			return false, err
		}
	}
	rec.Ready = true
	g.out.Broadcast("waiting_status", g.Status())
	return g.Evaluate(now), nil
}

// Evaluate opens the gate when readyCount >= required or the deadline has
// passed. It returns true only on the call that opens it.
func (g *StartGate) Evaluate(now time.Time) bool {
	if g.opened || g.phase.Phase() != PhaseWaiting {
		return false
	}
	ready := g.dir.ReadyCount()
	reason := ""
	switch {
	case ready >= g.required:
		reason = "all_ready"
	case !g.deadline.IsZero() && !now.Before(g.deadline):
		reason = "wait_timeout"
	default:
		return false
	}
	g.opened = true
	g.out.Broadcast("unfreeze", map[string]any{
		"ready_count": ready,
		"required":    g.required,
		"reason":      reason,
	})
	if reason == "wait_timeout" {
		metricStartGateTimeouts.Add(1)
	}
	g.phase.Start(now)
	return true
}

func (g *StartGate) Status() WaitingStatus {
	return WaitingStatus{
		ReadyCount: g.dir.ReadyCount(),
		Required:   g.required,
		Connected:  g.dir.Len(),
		DeadlineTS: unixMilli(g.deadline),
	}
}
