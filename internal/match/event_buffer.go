package match

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

type StreamEvent struct {
	EventID     string `json:"event_id"`
	Event       string `json:"event"`
	SessionCode string `json:"session_code"`
	ServerTS    int64  `json:"server_ts"`
	Data        any    `json:"data"`
}

type bufferedEvent struct {
	seq int64
	ev  StreamEvent
}

// EventBuffer is one participant's ordered outbound stream. Readers keep
// their own cursor and pull with ReplayAfter; Subscribe only signals that
// something new is there. Once more than max events are held the oldest
// are discarded and counted in Dropped.
type EventBuffer struct {
	mu      sync.Mutex
	code    string
	seq     int64
	max     int
	dropped int64
	events  []bufferedEvent
	wakers  map[chan struct{}]struct{}
	closed  bool
}

func NewEventBuffer(code string, max int) *EventBuffer {
	if max <= 0 {
		max = 1024
	}
	return &EventBuffer{code: code, max: max, wakers: map[chan struct{}]struct{}{}}
}

// Append stamps and stores an event. It is a no-op after Close.
func (b *EventBuffer) Append(event string, data any) StreamEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return StreamEvent{}
	}
	b.seq++
	ev := StreamEvent{
		EventID:     strconv.FormatInt(b.seq, 10),
		Event:       event,
		SessionCode: b.code,
		ServerTS:    time.Now().UnixMilli(),
		Data:        data,
	}
	b.events = append(b.events, bufferedEvent{seq: b.seq, ev: ev})
	if over := len(b.events) - b.max; over > 0 {
		b.dropped += int64(over)
		b.events = append(b.events[:0:0], b.events[over:]...)
	}
	for ch := range b.wakers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return ev
}

// ReplayAfter returns events newer than lastEventID. An empty or unknown
// cursor replays everything still held.
func (b *EventBuffer) ReplayAfter(lastEventID string) []StreamEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	from := 0
	if last, err := strconv.ParseInt(lastEventID, 10, 64); err == nil {
		from = sort.Search(len(b.events), func(i int) bool { return b.events[i].seq > last })
	}
	if from >= len(b.events) {
		return nil
	}
	out := make([]StreamEvent, 0, len(b.events)-from)
	for _, be := range b.events[from:] {
		out = append(out, be.ev)
	}
	return out
}

// Events returns every held event with the given name, oldest first.
func (b *EventBuffer) Events(name string) []StreamEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []StreamEvent
	for _, be := range b.events {
		if be.ev.Event == name {
			out = append(out, be.ev)
		}
	}
	return out
}

func (b *EventBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Subscribe returns a wake-up channel with room for one pending signal. It
// is closed when the buffer closes.
func (b *EventBuffer) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.wakers[ch] = struct{}{}
	return ch
}

func (b *EventBuffer) Unsubscribe(ch chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.wakers[ch]; ok {
		delete(b.wakers, ch)
		close(ch)
	}
}

func (b *EventBuffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *EventBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.wakers {
		close(ch)
	}
	b.wakers = nil
}
