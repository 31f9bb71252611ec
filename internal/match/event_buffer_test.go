package match

import (
	"testing"
	"time"
)

func TestEventBufferOrderAndReplay(t *testing.T) {
	buf := NewEventBuffer("s1", 10)
	ev1 := buf.Append("a", map[string]any{"n": 1})
	ev2 := buf.Append("b", map[string]any{"n": 2})
	ev3 := buf.Append("c", map[string]any{"n": 3})

	if ev1.EventID != "1" || ev2.EventID != "2" || ev3.EventID != "3" {
		t.Fatalf("unexpected event ids: %s %s %s", ev1.EventID, ev2.EventID, ev3.EventID)
	}
	if ev1.SessionCode != "s1" {
		t.Fatalf("expected session code s1, got %q", ev1.SessionCode)
	}

	replay := buf.ReplayAfter("1")
	if len(replay) != 2 {
		t.Fatalf("expected 2 replay events, got %d", len(replay))
	}
	if replay[0].EventID != "2" || replay[1].EventID != "3" {
		t.Fatalf("unexpected replay order: %+v", replay)
	}
	if all := buf.ReplayAfter(""); len(all) != 3 {
		t.Fatalf("expected full replay, got %d", len(all))
	}
}

func TestEventBufferTrimsToMax(t *testing.T) {
	buf := NewEventBuffer("s1", 2)
	buf.Append("a", nil)
	buf.Append("b", nil)
	buf.Append("c", nil)

	replay := buf.ReplayAfter("")
	if len(replay) != 2 || replay[0].Event != "b" || replay[1].Event != "c" {
		t.Fatalf("unexpected buffer contents: %+v", replay)
	}
	if buf.Dropped() != 1 {
		t.Fatalf("expected 1 dropped event, got %d", buf.Dropped())
	}
	if got := buf.ReplayAfter("1"); len(got) != 2 {
		t.Fatalf("expected cursor older than the window to replay what is held, got %d", len(got))
	}
	if got := buf.ReplayAfter("3"); len(got) != 0 {
		t.Fatalf("expected nothing after newest cursor, got %d", len(got))
	}
}

func TestEventBufferSubscribeAndClose(t *testing.T) {
	buf := NewEventBuffer("s1", 10)
	ch := buf.Subscribe()
	buf.Append("ping", nil)

	buf.Append("pong", nil)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected wake-up on append")
	}
	if got := buf.ReplayAfter(""); len(got) != 2 || got[1].Event != "pong" {
		t.Fatalf("expected both events after one wake-up, got %+v", got)
	}

	buf.Close()
	if _, ok := <-ch; ok {
		t.Fatal("expected subscriber channel closed")
	}
	if ev := buf.Append("late", nil); ev.EventID != "" {
		t.Fatalf("expected append after close ignored, got %+v", ev)
	}
	if !buf.Closed() {
		t.Fatal("expected buffer closed")
	}
}

func TestFanoutSendTargetsOneParticipant(t *testing.T) {
	f := NewFanout("s1")
	f.Open("a")
	f.Open("b")

	f.Send("a", "secret", map[string]any{"n": 1})
	f.Broadcast("hello", nil)

	if got := len(f.Stream("a").Events("secret")); got != 1 {
		t.Fatalf("expected a to get secret once, got %d", got)
	}
	if got := len(f.Stream("b").Events("secret")); got != 0 {
		t.Fatalf("expected b not to see secret, got %d", got)
	}
	if got := len(f.Stream("b").Events("hello")); got != 1 {
		t.Fatalf("expected broadcast to reach b, got %d", got)
	}

	bBuf := f.Stream("b")
	f.Drop("b", "left")
	if f.Stream("b") != nil {
		t.Fatal("expected dropped stream removed")
	}
	if !bBuf.Closed() || closedReason(bBuf) != "left" {
		t.Fatalf("expected dropped stream closed with reason, got %q", closedReason(bBuf))
	}
}
