package match

import "time"

// InactivityWatchdog finds participants that stopped reporting activity
// while the session is Playing.
type InactivityWatchdog struct {
	grace    time.Duration
	idleKick time.Duration

	dir   *Directory
	phase *PhaseController

	evicted         map[ParticipantID]struct{}
	rewardsDegraded bool
}

func (w *InactivityWatchdog) Touch(id ParticipantID, now time.Time) bool {
	return w.dir.Touch(id, now)
}

// IdleCandidates lists participants idle for at least idleKick. Nothing is
// returned outside Playing or before the grace period has elapsed.
func (w *InactivityWatchdog) IdleCandidates(now time.Time) []ParticipantID {
	if w.phase.Phase() != PhasePlaying {
		return nil
	}
	started := w.phase.State().StartedAt
	if now.Sub(started) < w.grace {
		return nil
	}
	var out []ParticipantID
	for _, id := range w.dir.IDs() {
		if _, gone := w.evicted[id]; gone {
			continue
		}
		rec, ok := w.dir.Get(id)
		if !ok {
			continue
		}
		since := rec.LastActiveAt
		if since.Before(started) {
			since = started
		}
		if now.Sub(since) >= w.idleKick {
			out = append(out, id)
		}
	}
	return out
}

// MarkEvicted records an eviction and degrades rewards for the session.
func (w *InactivityWatchdog) MarkEvicted(id ParticipantID) bool {
	if _, ok := w.evicted[id]; ok {
		return false
	}
	w.evicted[id] = struct{}{}
	w.rewardsDegraded = true
	metricEvictions.Add(1)
	return true
}

func (w *InactivityWatchdog) RewardsDegraded() bool {
	return w.rewardsDegraded
}
