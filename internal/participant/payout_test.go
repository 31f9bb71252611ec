package participant

import (
	"testing"
	"time"

	"duel-session/internal/match"
)

func TestPayoutDeliveredOnce(t *testing.T) {
	p := NewPayoutState(8 * time.Second)
	now := time.Unix(1_700_000_000, 0)
	p.MarkEnded(now)

	if !p.Deliver("match_1", match.PayoutResult{IsWin: true, XPDelta: 100}) {
		t.Fatalf("expected first delivery to be accepted")
	}
	if p.Deliver("match_1", match.PayoutResult{XPDelta: 5}) {
		t.Fatalf("expected duplicate delivery to be rejected")
	}
	v := p.View(now)
	if !v.Ready || v.Pending || v.Result == nil || v.Result.XPDelta != 100 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if !v.ContinueEnabled {
		t.Fatalf("expected continue enabled once payout arrived")
	}
	select {
	case <-p.ContinueReady():
	default:
		t.Fatalf("expected continue channel closed")
	}
}

func TestContinueUnlocksAfterTimeout(t *testing.T) {
	p := NewPayoutState(8 * time.Second)
	now := time.Unix(1_700_000_000, 0)
	if p.ContinueEnabled(now) {
		t.Fatalf("continue enabled before match ended")
	}
	p.MarkEnded(now)
	p.MarkPending("match_1", "settlement_unavailable")

	if p.ContinueEnabled(now.Add(7 * time.Second)) {
		t.Fatalf("continue enabled before timeout")
	}
	if !p.ContinueEnabled(now.Add(8 * time.Second)) {
		t.Fatalf("continue not enabled at timeout")
	}
	v := p.View(now)
	if !v.Pending || v.PendingReason != "settlement_unavailable" || v.MatchID != "match_1" {
		t.Fatalf("unexpected view: %+v", v)
	}
}

func TestLateResultClearsPending(t *testing.T) {
	p := NewPayoutState(time.Second)
	now := time.Unix(1_700_000_000, 0)
	p.MarkEnded(now)
	p.MarkPending("match_1", "no_result")
	p.Deliver("match_1", match.PayoutResult{XPDelta: 60})
	p.MarkPending("match_1", "no_result")

	v := p.View(now)
	if v.Pending || v.PendingReason != "" {
		t.Fatalf("expected pending cleared, got %+v", v)
	}
}
