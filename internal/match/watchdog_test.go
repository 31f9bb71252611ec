package match

import (
	"testing"
	"time"
)

func watchdogConfig() Config {
	cfg := DefaultConfig()
	cfg.IdleGrace = 10 * time.Second
	cfg.IdleKick = 30 * time.Second
	return cfg
}

func TestWatchdogEvictsIdleParticipant(t *testing.T) {
	settler := &fakeSettler{}
	s, clock := newTestSession(t, watchdogConfig(), settler)
	streams := startPlaying(t, s, "a", "b")

	clock.Advance(20 * time.Second)
	s.ReportActivity("a")
	s.Tick(clock.Advance(9 * time.Second))
	if got := len(s.View().Participants); got != 2 {
		t.Fatalf("expected nobody evicted yet, got %d participants", got)
	}

	s.Tick(clock.Advance(2 * time.Second))
	view := s.View()
	if len(view.Participants) != 1 || view.Participants[0].ID != "a" {
		t.Fatalf("expected b evicted, got %+v", view.Participants)
	}
	if view.Phase != PhaseEnded || view.WinnerID == nil || *view.WinnerID != "a" {
		t.Fatalf("expected a to win, got %s/%v", view.Phase, view.WinnerID)
	}
	if !view.RewardsDegraded || !s.RewardsDegraded() {
		t.Fatal("expected rewards degraded after eviction")
	}
	if got := len(streams["b"].Events("evicted")); got != 1 {
		t.Fatalf("expected one evicted event for b, got %d", got)
	}

	waitFor(t, "settlement call", func() bool { return settler.Calls() == 1 })
	if !settler.LastRequest().DisableBonusCurrency {
		t.Fatal("expected bonus currency disabled")
	}
}

func TestWatchdogWaitsForGrace(t *testing.T) {
	cfg := watchdogConfig()
	cfg.IdleGrace = 40 * time.Second
	s, clock := newTestSession(t, cfg, nil)
	startPlaying(t, s, "a", "b")

	s.Tick(clock.Advance(35 * time.Second))
	if got := len(s.View().Participants); got != 2 {
		t.Fatalf("expected no eviction during grace, got %d participants", got)
	}

	// Both are idle past the grace; the first eviction ends the match and
	// the second participant wins instead of being evicted too.
	s.Tick(clock.Advance(6 * time.Second))
	view := s.View()
	if len(view.Participants) != 1 || view.Participants[0].ID != "b" {
		t.Fatalf("expected only a evicted, got %+v", view.Participants)
	}
	if view.WinnerID == nil || *view.WinnerID != "b" {
		t.Fatalf("expected b to win, got %v", view.WinnerID)
	}
}

func TestWatchdogIdleOutsidePlaying(t *testing.T) {
	cfg := watchdogConfig()
	cfg.StartTimeout = 30 * time.Minute
	s, clock := newTestSession(t, cfg, nil)
	joinAll(t, s, "a", "b")

	s.Tick(clock.Advance(5 * time.Minute))
	if view := s.View(); view.Phase != PhaseWaiting || len(view.Participants) != 2 {
		t.Fatalf("expected no eviction while waiting, got %s/%d", view.Phase, len(view.Participants))
	}

	s2, clock2 := newTestSession(t, cfg, nil)
	startPlaying(t, s2, "a", "b")
	if !s2.DeclareWinner("a", "win") {
		t.Fatal("expected winner accepted")
	}
	s2.Tick(clock2.Advance(5 * time.Minute))
	if view := s2.View(); len(view.Participants) != 2 || view.RewardsDegraded {
		t.Fatalf("expected no eviction after end, got %+v", view)
	}
}

func TestIdleClockStartsAtMatchStart(t *testing.T) {
	cfg := watchdogConfig()
	s, clock := newTestSession(t, cfg, nil)
	joinAll(t, s, "a", "b")
	s.ReportActivity("a")
	s.ReportActivity("b")
	clock.Advance(15 * time.Second)
	if err := s.NotifyReady("a"); err != nil {
		t.Fatalf("ready a: %v", err)
	}
	if err := s.NotifyReady("b"); err != nil {
		t.Fatalf("ready b: %v", err)
	}

	s.Tick(clock.Advance(29 * time.Second))
	if got := len(s.View().Participants); got != 2 {
		t.Fatalf("expected idle clock to start at match start, got %d participants", got)
	}
}
