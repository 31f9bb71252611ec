package match

import (
	"strings"
	"unicode/utf8"
)

const (
	maxDisplayNameRunes = 24
	defaultTitle        = "Challenger"
	defaultIconID       = "icon_default"
	defaultFrameID      = "frame_default"
)

// NormalizeIdentity applies the authority's defaults to a submission. It
// never fails: bad or missing fields are replaced, not rejected.
func NormalizeIdentity(id ParticipantID, in Identity) Identity {
	out := Identity{
		DisplayName: strings.TrimSpace(in.DisplayName),
		Title:       strings.TrimSpace(in.Title),
		Level:       in.Level,
		IconID:      strings.TrimSpace(in.IconID),
		FrameID:     strings.TrimSpace(in.FrameID),
		WalletID:    strings.TrimSpace(in.WalletID),
	}
	if out.DisplayName == "" {
		out.DisplayName = placeholderName(id)
	}
	if utf8.RuneCountInString(out.DisplayName) > maxDisplayNameRunes {
		out.DisplayName = string([]rune(out.DisplayName)[:maxDisplayNameRunes])
	}
	if out.Title == "" {
		out.Title = defaultTitle
	}
	if out.Level < 1 {
		out.Level = 1
	}
	if out.IconID == "" {
		out.IconID = defaultIconID
	}
	if out.FrameID == "" {
		out.FrameID = defaultFrameID
	}
	if out.WalletID == "" {
		out.WalletID = "local-" + strings.ToLower(string(id))
	}
	return out
}

func placeholderName(id ParticipantID) string {
	r := []rune(strings.ToUpper(string(id)))
	if len(r) > 4 {
		r = r[len(r)-4:]
	}
	if len(r) == 0 {
		return "Player-0000"
	}
	return "Player-" + string(r)
}

// IdentitySync validates identity submissions and republishes the stored
// record to every participant. Resubmission overwrites the previous record.
type IdentitySync struct {
	dir *Directory
	out Publisher
}

func (s *IdentitySync) Submit(id ParticipantID, in Identity) (ParticipantRecord, error) {
	rec, ok := s.dir.Get(id)
	if !ok {
		return ParticipantRecord{}, ErrUnknownParticipant
	}
	norm := NormalizeIdentity(id, in)
	rec.DisplayName = norm.DisplayName
	rec.Title = norm.Title
	rec.Level = norm.Level
	rec.IconID = norm.IconID
	rec.FrameID = norm.FrameID
	rec.WalletID = norm.WalletID
	rec.IdentityReady = true
	s.out.Broadcast("identity_published", *rec)
	return *rec, nil
}

func (s *IdentitySync) Ready(id ParticipantID) bool {
	rec, ok := s.dir.Get(id)
	return ok && rec.IdentityReady
}
