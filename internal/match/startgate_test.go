package match

import (
	"errors"
	"testing"
	"time"
)

func TestStartGateOpensWhenAllReady(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig(), nil)
	streams := joinAll(t, s, "a", "b")

	if err := s.NotifyReady("a"); err != nil {
		t.Fatalf("ready a: %v", err)
	}
	if got := s.View(); got.Phase != PhaseWaiting || got.ReadyCount != 1 {
		t.Fatalf("expected waiting with one ready, got %s/%d", got.Phase, got.ReadyCount)
	}
	if err := s.NotifyReady("b"); err != nil {
		t.Fatalf("ready b: %v", err)
	}
	if got := s.View(); got.Phase != PhasePlaying || got.ReadyCount != 2 {
		t.Fatalf("expected playing with two ready, got %s/%d", got.Phase, got.ReadyCount)
	}

	unfreeze := streams["a"].Events("unfreeze")
	if len(unfreeze) != 1 {
		t.Fatalf("expected exactly one unfreeze, got %d", len(unfreeze))
	}
	data := unfreeze[0].Data.(map[string]any)
	if data["reason"] != "all_ready" {
		t.Fatalf("expected all_ready, got %v", data["reason"])
	}
}

func TestStartGateOpensOnTimeout(t *testing.T) {
	s, clock := newTestSession(t, DefaultConfig(), nil)
	streams := joinAll(t, s, "a", "b")
	if err := s.NotifyReady("a"); err != nil {
		t.Fatalf("ready a: %v", err)
	}

	s.Tick(clock.Advance(19 * time.Second))
	if got := s.View().Phase; got != PhaseWaiting {
		t.Fatalf("expected waiting before deadline, got %s", got)
	}
	s.Tick(clock.Advance(time.Second))
	if got := s.View().Phase; got != PhasePlaying {
		t.Fatalf("expected playing at deadline, got %s", got)
	}
	data := streams["b"].Events("unfreeze")[0].Data.(map[string]any)
	if data["reason"] != "wait_timeout" {
		t.Fatalf("expected wait_timeout, got %v", data["reason"])
	}
}

func TestStartGateDeadlineArmedByFirstJoin(t *testing.T) {
	s, clock := newTestSession(t, DefaultConfig(), nil)
	joinAll(t, s, "a")
	want := clock.Now().Add(20 * time.Second).UnixMilli()

	clock.Advance(15 * time.Second)
	joinAll(t, s, "b")
	if got := s.View().StartDeadlineTS; got != want {
		t.Fatalf("expected deadline %d, got %d", want, got)
	}
	s.Tick(clock.Advance(5 * time.Second))
	if got := s.View().Phase; got != PhasePlaying {
		t.Fatalf("expected playing, got %s", got)
	}
}

func TestNotifyReadySubmitsDefaultIdentity(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig(), nil)
	joinAll(t, s, "p-1234", "b")
	if err := s.NotifyReady("p-1234"); err != nil {
		t.Fatalf("ready: %v", err)
	}
	rec := s.View().Participants[0]
	if !rec.IdentityReady || !rec.Ready || rec.DisplayName != "Player-1234" {
		t.Fatalf("expected default identity applied, got %+v", rec)
	}
}

func TestJoinRejections(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig(), nil)
	joinAll(t, s, "a", "b")

	if err := s.Join("c"); !errors.Is(err, ErrSessionFull) {
		t.Fatalf("expected session full, got %v", err)
	}
	s.Leave("b", "left")
	if err := s.Join("b"); !errors.Is(err, ErrParticipantExists) {
		t.Fatalf("expected id reuse rejected, got %v", err)
	}
	if err := s.Join("c"); err != nil {
		t.Fatalf("expected free slot after leave: %v", err)
	}
	if err := s.NotifyReady("a"); err != nil {
		t.Fatalf("ready a: %v", err)
	}
	if err := s.NotifyReady("c"); err != nil {
		t.Fatalf("ready c: %v", err)
	}
	s.Leave("c", "left")
	if err := s.Join("d"); !errors.Is(err, ErrSessionStarted) {
		t.Fatalf("expected session started, got %v", err)
	}
}

func TestWalkoverWhenOpponentLeftBeforeStart(t *testing.T) {
	s, clock := newTestSession(t, DefaultConfig(), nil)
	joinAll(t, s, "a", "b")
	s.Leave("b", "disconnected")

	s.Tick(clock.Advance(20 * time.Second))
	view := s.View()
	if view.Phase != PhaseEnded {
		t.Fatalf("expected ended, got %s", view.Phase)
	}
	if view.WinnerID == nil || *view.WinnerID != "a" || view.EndReason != "last_standing" {
		t.Fatalf("expected walkover for a, got %v/%s", view.WinnerID, view.EndReason)
	}
}

func TestSessionClosesWhenEmpty(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig(), nil)
	streams := joinAll(t, s, "a")
	s.Leave("a", "disconnected")

	select {
	case <-s.Done():
	default:
		t.Fatal("expected session closed once empty")
	}
	if err := s.Join("b"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected closed session, got %v", err)
	}
	if got := closedReason(streams["a"]); got != "disconnected" {
		t.Fatalf("expected drop reason on stream, got %q", got)
	}
}
