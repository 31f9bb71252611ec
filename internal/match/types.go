package match

import "time"

type ParticipantID string

type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

func (p Phase) rank() int {
	switch p {
	case PhaseWaiting:
		return 0
	case PhasePlaying:
		return 1
	case PhaseEnded:
		return 2
	default:
		return -1
	}
}

// Identity is what a participant submits about itself.
type Identity struct {
	DisplayName string `json:"display_name"`
	Title       string `json:"title"`
	Level       int    `json:"level"`
	IconID      string `json:"icon_id"`
	FrameID     string `json:"frame_id"`
	WalletID    string `json:"wallet_id"`
}

type ParticipantRecord struct {
	ID            ParticipantID `json:"participant_id"`
	WalletID      string        `json:"wallet_id"`
	DisplayName   string        `json:"display_name"`
	Title         string        `json:"title"`
	IconID        string        `json:"icon_id"`
	FrameID       string        `json:"frame_id"`
	Level         int           `json:"level"`
	IdentityReady bool          `json:"identity_ready"`
	Ready         bool          `json:"ready"`
	JoinedAt      time.Time     `json:"-"`
	LastActiveAt  time.Time     `json:"-"`
}

type SessionState struct {
	Phase     Phase
	WinnerID  *ParticipantID
	StartedAt time.Time
	EndedAt   time.Time
	EndReason string
}

type Totals struct {
	XP       int64 `json:"xp"`
	Currency int64 `json:"currency"`
	Wins     int   `json:"wins"`
	Losses   int   `json:"losses"`
	Level    int   `json:"level,omitempty"`
}

type PayoutResult struct {
	IsWin         bool   `json:"is_win"`
	XPDelta       int64  `json:"xp"`
	CurrencyDelta int64  `json:"currency"`
	NewTotals     Totals `json:"new_totals"`
}

// PayoutDelivery is the payload of a payout_ready event. It is only ever
// sent to the participant it belongs to.
type PayoutDelivery struct {
	MatchID string       `json:"match_id"`
	Payout  PayoutResult `json:"payout"`
}

type WaitingStatus struct {
	ReadyCount int   `json:"ready_count"`
	Required   int   `json:"required"`
	Connected  int   `json:"connected"`
	DeadlineTS int64 `json:"deadline_ts,omitempty"`
}

// SessionView is the read-only replicated mirror of authoritative state.
type SessionView struct {
	Code            string              `json:"session_code"`
	Version         int64               `json:"version"`
	Phase           Phase               `json:"phase"`
	WinnerID        *ParticipantID      `json:"winner_id"`
	StartedAtTS     int64               `json:"started_at_ts,omitempty"`
	EndedAtTS       int64               `json:"ended_at_ts,omitempty"`
	EndReason       string              `json:"end_reason,omitempty"`
	ReadyCount      int                 `json:"ready_count"`
	Required        int                 `json:"required"`
	StartDeadlineTS int64               `json:"start_deadline_ts,omitempty"`
	RewardsDegraded bool                `json:"rewards_degraded"`
	Participants    []ParticipantRecord `json:"participants"`
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
