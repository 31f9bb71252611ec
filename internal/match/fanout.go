package match

import "sync"

// Publisher is the authority's outbound side of the transport: a broadcast
// to every participant and a targeted send to exactly one.
type Publisher interface {
	Open(id ParticipantID)
	Broadcast(event string, data any)
	Send(id ParticipantID, event string, data any)
	Drop(id ParticipantID, reason string)
	CloseAll(reason string)
}

// Fanout keeps one EventBuffer per participant. Transports read a
// participant's stream through Stream.
type Fanout struct {
	code    string
	max     int
	mu      sync.Mutex
	streams map[ParticipantID]*EventBuffer
}

func NewFanout(code string) *Fanout {
	return &Fanout{code: code, max: 1024, streams: map[ParticipantID]*EventBuffer{}}
}

func (f *Fanout) Open(id ParticipantID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.streams[id]; ok {
		return
	}
	f.streams[id] = NewEventBuffer(f.code, f.max)
}

func (f *Fanout) Stream(id ParticipantID) *EventBuffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[id]
}

func (f *Fanout) Broadcast(event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, buf := range f.streams {
		buf.Append(event, data)
	}
}

func (f *Fanout) Send(id ParticipantID, event string, data any) {
	f.mu.Lock()
	buf := f.streams[id]
	f.mu.Unlock()
	if buf != nil {
		buf.Append(event, data)
	}
}

func (f *Fanout) Drop(id ParticipantID, reason string) {
	f.mu.Lock()
	buf := f.streams[id]
	delete(f.streams, id)
	f.mu.Unlock()
	if buf == nil {
		return
	}
	buf.Append("session_closed", map[string]any{"reason": reason})
	buf.Close()
}

func (f *Fanout) CloseAll(reason string) {
	f.mu.Lock()
	streams := f.streams
	f.streams = map[ParticipantID]*EventBuffer{}
	f.mu.Unlock()
	for _, buf := range streams {
		buf.Append("session_closed", map[string]any{"reason": reason})
		buf.Close()
	}
}
