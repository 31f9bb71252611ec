package match

import "time"

// Directory holds one record per connected participant. Only the session
// authority writes to it.
type Directory struct {
	records map[ParticipantID]*ParticipantRecord
	order   []ParticipantID
	seen    map[ParticipantID]struct{}
}

func newDirectory() *Directory {
	return &Directory{
		records: map[ParticipantID]*ParticipantRecord{},
		seen:    map[ParticipantID]struct{}{},
	}
}

// Add admits a new participant. Ids are never reused within a session, so a
// participant that left cannot be re-added under the same id.
func (d *Directory) Add(id ParticipantID, now time.Time) (*ParticipantRecord, error) {
	if id == "" {
		return nil, errInvalidParticipant
	}
	if _, ok := d.seen[id]; ok {
		return nil, ErrParticipantExists
	}
	rec := &ParticipantRecord{ID: id, Level: 1, JoinedAt: now, LastActiveAt: now}
	d.seen[id] = struct{}{}
	d.records[id] = rec
	d.order = append(d.order, id)
	return rec, nil
}

func (d *Directory) Remove(id ParticipantID) bool {
	if _, ok := d.records[id]; !ok {
		return false
	}
	delete(d.records, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

func (d *Directory) Get(id ParticipantID) (*ParticipantRecord, bool) {
	rec, ok := d.records[id]
	return rec, ok
}

func (d *Directory) Len() int {
	return len(d.records)
}

func (d *Directory) ReadyCount() int {
	n := 0
	for _, rec := range d.records {
		if rec.Ready && rec.IdentityReady {
			n++
		}
	}
	return n
}

func (d *Directory) Touch(id ParticipantID, now time.Time) bool {
	rec, ok := d.records[id]
	if !ok {
		return false
	}
	if now.After(rec.LastActiveAt) {
		rec.LastActiveAt = now
	}
	return true
}

func (d *Directory) IDs() []ParticipantID {
	out := make([]ParticipantID, len(d.order))
	copy(out, d.order)
	return out
}

// Snapshot copies the records in join order.
func (d *Directory) Snapshot() []ParticipantRecord {
	out := make([]ParticipantRecord, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, *d.records[id])
	}
	return out
}
