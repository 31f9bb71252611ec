package match

import (
	"context"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// fakeSettler pays the winner 100xp/50 and everyone else 60xp/0 unless
// payouts is set.
type fakeSettler struct {
	mu      sync.Mutex
	calls   int
	reqs    []SettlementRequest
	err     error
	payouts func(SettlementRequest) []ParticipantPayout
}

func (f *fakeSettler) Settle(ctx context.Context, req SettlementRequest) ([]ParticipantPayout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.payouts != nil {
		return f.payouts(req), nil
	}
	out := make([]ParticipantPayout, 0, len(req.Participants))
	for _, p := range req.Participants {
		res := PayoutResult{XPDelta: 60}
		if p.WalletID == req.WinnerWallet {
			res = PayoutResult{IsWin: true, XPDelta: 100, CurrencyDelta: 50}
		}
		out = append(out, ParticipantPayout{ParticipantID: p.ParticipantID, Payout: res})
	}
	return out, nil
}

func (f *fakeSettler) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSettler) LastRequest() SettlementRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		return SettlementRequest{}
	}
	return f.reqs[len(f.reqs)-1]
}

func newTestSession(t *testing.T, cfg Config, settler Settler) (*Session, *testClock) {
	t.Helper()
	clock := newTestClock()
	s := NewSession("test", cfg, Deps{
		Settler:   settler,
		Publisher: NewFanout("test"),
		Now:       clock.Now,
	})
	t.Cleanup(func() { s.Close("test_done") })
	return s, clock
}

// joinAll joins every id and returns their streams. Streams stay readable
// after the session drops them.
func joinAll(t *testing.T, s *Session, ids ...ParticipantID) map[ParticipantID]*EventBuffer {
	t.Helper()
	out := map[ParticipantID]*EventBuffer{}
	for _, id := range ids {
		if err := s.Join(id); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
		out[id] = s.Stream(id)
		if out[id] == nil {
			t.Fatalf("expected stream for %s", id)
		}
	}
	return out
}

func startPlaying(t *testing.T, s *Session, ids ...ParticipantID) map[ParticipantID]*EventBuffer {
	t.Helper()
	streams := joinAll(t, s, ids...)
	for _, id := range ids {
		if err := s.NotifyReady(id); err != nil {
			t.Fatalf("ready %s: %v", id, err)
		}
	}
	if got := s.View().Phase; got != PhasePlaying {
		t.Fatalf("expected playing, got %s", got)
	}
	return streams
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func closedReason(buf *EventBuffer) string {
	evs := buf.Events("session_closed")
	if len(evs) == 0 {
		return ""
	}
	data, _ := evs[len(evs)-1].Data.(map[string]any)
	reason, _ := data["reason"].(string)
	return reason
}
