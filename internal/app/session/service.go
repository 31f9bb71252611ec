package session

import (
	"strings"

	"duel-session/internal/match"
)

// Registry is the subset of match.Registry the service reads from.
type Registry interface {
	Get(code string) (*match.Session, bool)
	Codes() []string
}

type Service struct {
	registry Registry
}

func NewService(registry Registry) *Service {
	return &Service{registry: registry}
}

type Summary struct {
	Code         string               `json:"session_code"`
	Phase        match.Phase          `json:"phase"`
	Participants int                  `json:"participants"`
	ReadyCount   int                  `json:"ready_count"`
	WinnerID     *match.ParticipantID `json:"winner_id"`
	Version      int64                `json:"version"`
}

func (s *Service) State(code string) (match.SessionView, error) {
	sess, err := s.lookup(code)
	if err != nil {
		return match.SessionView{}, err
	}
	return sess.View(), nil
}

// List summarises every live session, ordered by code.
func (s *Service) List() []Summary {
	codes := s.registry.Codes()
	out := make([]Summary, 0, len(codes))
	for _, code := range codes {
		sess, ok := s.registry.Get(code)
		if !ok {
			continue
		}
		v := sess.View()
		out = append(out, Summary{
			Code:         v.Code,
			Phase:        v.Phase,
			Participants: len(v.Participants),
			ReadyCount:   v.ReadyCount,
			WinnerID:     v.WinnerID,
			Version:      v.Version,
		})
	}
	return out
}

// Close ends a session from the operator side.
func (s *Service) Close(code, reason string) error {
	sess, err := s.lookup(code)
	if err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		reason = "closed_by_admin"
	}
	sess.Close(reason)
	return nil
}

// DeclareWinner ends a Playing session with participantID as winner on
// behalf of gameplay. Only the first declaration takes effect.
func (s *Service) DeclareWinner(code, participantID, reason string) (match.SessionView, error) {
	sess, err := s.lookup(code)
	if err != nil {
		return match.SessionView{}, err
	}
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return match.SessionView{}, ErrInvalidRequest
	}
	if strings.TrimSpace(reason) == "" {
		reason = "declared_winner"
	}
	if err := sess.ReportWinner(match.ParticipantID(participantID), reason); err != nil {
		return match.SessionView{}, err
	}
	return sess.View(), nil
}

func (s *Service) lookup(code string) (*match.Session, error) {
	code = strings.TrimSpace(code)
	if !match.ValidSessionCode(code) {
		return nil, ErrInvalidRequest
	}
	sess, ok := s.registry.Get(code)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}
