package participant

import (
	"sync"
	"time"

	"duel-session/internal/match"
)

// PayoutView is what a results screen renders.
type PayoutView struct {
	MatchID         string              `json:"match_id,omitempty"`
	Pending         bool                `json:"pending"`
	PendingReason   string              `json:"pending_reason,omitempty"`
	Ready           bool                `json:"ready"`
	Result          *match.PayoutResult `json:"result,omitempty"`
	ContinueEnabled bool                `json:"continue_enabled"`
}

// PayoutState tracks this participant's own settlement result. A result is
// accepted once; continue unlocks on arrival or after continueTimeout from
// the end of the match, whichever is first.
type PayoutState struct {
	mu              sync.Mutex
	continueTimeout time.Duration
	ended           bool
	endedAt         time.Time
	matchID         string
	result          *match.PayoutResult
	pendingReason   string
	continueCh      chan struct{}
	continueOpen    bool
}

func NewPayoutState(continueTimeout time.Duration) *PayoutState {
	return &PayoutState{continueTimeout: continueTimeout, continueCh: make(chan struct{})}
}

// MarkEnded records when the match ended. Only the first call counts.
func (p *PayoutState) MarkEnded(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return
	}
	p.ended = true
	p.endedAt = now
}

// Deliver accepts the first result and reports whether this call was it.
func (p *PayoutState) Deliver(matchID string, res match.PayoutResult) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result != nil {
		return false
	}
	p.matchID = matchID
	p.result = &res
	p.pendingReason = ""
	p.enableLocked()
	return true
}

func (p *PayoutState) MarkPending(matchID, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result != nil {
		return
	}
	if p.matchID == "" {
		p.matchID = matchID
	}
	p.pendingReason = reason
}

// EnableContinue unlocks the continue action regardless of settlement.
func (p *PayoutState) EnableContinue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enableLocked()
}

func (p *PayoutState) enableLocked() {
	if p.continueOpen {
		return
	}
	p.continueOpen = true
	close(p.continueCh)
}

// ContinueReady is closed once continue is enabled.
func (p *PayoutState) ContinueReady() <-chan struct{} {
	return p.continueCh
}

func (p *PayoutState) ContinueEnabled(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.continueEnabledLocked(now)
}

func (p *PayoutState) continueEnabledLocked(now time.Time) bool {
	if p.continueOpen || p.result != nil {
		return true
	}
	return p.ended && !now.Before(p.endedAt.Add(p.continueTimeout))
}

func (p *PayoutState) View(now time.Time) PayoutView {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := PayoutView{
		MatchID:         p.matchID,
		Pending:         p.ended && p.result == nil,
		PendingReason:   p.pendingReason,
		Ready:           p.result != nil,
		ContinueEnabled: p.continueEnabledLocked(now),
	}
	if p.result != nil {
		r := *p.result
		v.Result = &r
	}
	return v
}
