package match

import (
	"errors"
	"testing"
	"time"
)

func isDone(s *Session) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

func TestReportWinnerRejections(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig(), nil)
	joinAll(t, s, "a", "b")

	if err := s.ReportWinner("a", "win"); !errors.Is(err, ErrMatchNotPlaying) {
		t.Fatalf("expected match_not_playing while waiting, got %v", err)
	}
	for _, id := range []ParticipantID{"a", "b"} {
		if err := s.NotifyReady(id); err != nil {
			t.Fatalf("ready %s: %v", id, err)
		}
	}
	if err := s.ReportWinner("zed", "win"); !errors.Is(err, ErrUnknownParticipant) {
		t.Fatalf("expected participant_not_found, got %v", err)
	}
	if err := s.ReportWinner("b", "finish_line"); err != nil {
		t.Fatalf("report winner: %v", err)
	}
	if err := s.ReportWinner("a", "finish_line"); !errors.Is(err, ErrMatchNotPlaying) {
		t.Fatalf("expected second winner rejected, got %v", err)
	}
	view := s.View()
	if view.Phase != PhaseEnded || view.WinnerID == nil || *view.WinnerID != "b" {
		t.Fatalf("expected ended with winner b, got %s/%v", view.Phase, view.WinnerID)
	}

	s.Close("done")
	if err := s.ReportWinner("a", "win"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected session_closed, got %v", err)
	}
}

func TestExpiryClosesWaitingSession(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionTTL = time.Minute
	s, clock := newTestSession(t, cfg, nil)
	streams := joinAll(t, s, "a")

	s.Tick(clock.Advance(59 * time.Second))
	if isDone(s) {
		t.Fatal("expected session alive before ttl")
	}
	s.Tick(clock.Advance(time.Second))
	if !isDone(s) {
		t.Fatal("expected session closed at ttl")
	}
	if got := closedReason(streams["a"]); got != "expired" {
		t.Fatalf("expected expired, got %q", got)
	}
}

func TestExpiryAbandonsPlayingMatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionTTL = time.Minute
	cfg.IdleKick = time.Hour
	cfg.IdleGrace = time.Hour
	settler := &fakeSettler{}
	s, clock := newTestSession(t, cfg, settler)
	streams := startPlaying(t, s, "a", "b")

	s.Tick(clock.Advance(time.Minute))
	if !isDone(s) {
		t.Fatal("expected playing session closed at ttl")
	}
	changes := streams["a"].Events("phase_changed")
	last, _ := changes[len(changes)-1].Data.(PhaseChange)
	if last.To != PhaseEnded || last.WinnerID != nil || last.Reason != "expired" {
		t.Fatalf("expected winnerless end before close, got %+v", last)
	}
	time.Sleep(20 * time.Millisecond)
	if got := settler.Calls(); got != 0 {
		t.Fatalf("expected no settlement for expired match, got %d", got)
	}
}

func TestExpirySparesEndedSessionUntilLobbyReturn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionTTL = time.Minute
	cfg.IdleKick = time.Hour
	cfg.IdleGrace = time.Hour
	s, clock := newTestSession(t, cfg, &fakeSettler{})
	streams := startPlaying(t, s, "a", "b")

	clock.Advance(50 * time.Second)
	if !s.DeclareWinner("a", "win") {
		t.Fatal("expected winner accepted")
	}
	waitFor(t, "payout", func() bool { return len(streams["a"].Events("payout_ready")) == 1 })

	s.Tick(clock.Advance(30 * time.Second))
	if isDone(s) {
		t.Fatal("expected ended session to outlive the creation ttl")
	}
	if got := s.View().Phase; got != PhaseEnded {
		t.Fatalf("expected ended, got %s", got)
	}

	s.Tick(clock.Advance(30 * time.Second))
	if !isDone(s) {
		t.Fatal("expected ended session closed one ttl after it ended")
	}
}
