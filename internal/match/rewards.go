package match

import (
	"context"

	"duel-session/internal/store"

	"github.com/rs/zerolog/log"
)

type SettlementParticipant struct {
	ParticipantID ParticipantID
	WalletID      string
}

type SettlementRequest struct {
	MatchID              string
	WinnerWallet         string
	DisableBonusCurrency bool
	Participants         []SettlementParticipant
}

type ParticipantPayout struct {
	ParticipantID ParticipantID
	Payout        PayoutResult
}

// Settler is the external settlement service. It may be retried by its own
// transport but the session calls it at most once.
type Settler interface {
	Settle(ctx context.Context, req SettlementRequest) ([]ParticipantPayout, error)
}

// RewardSettlement fires once when the session enters Ended and fans the
// service's results out to their owners only.
type RewardSettlement struct {
	code      string
	fired     bool
	matchID   string
	delivered map[ParticipantID]bool
	out       Publisher
}

func newMatchID() string {
	return store.NewMatchID()
}

// Trigger builds the one settlement request for this session. Later calls,
// and an Ended phase with no winner, return ok=false.
func (r *RewardSettlement) Trigger(change PhaseChange, participants []ParticipantRecord, degraded bool) (SettlementRequest, bool) {
	if change.To != PhaseEnded || r.fired {
		return SettlementRequest{}, false
	}
	r.fired = true
	if change.WinnerID == nil || len(participants) == 0 {
		log.Info().
			Str("session_code", r.code).
			Str("reason", change.Reason).
			Msg("session ended without winner; skipping settlement")
		return SettlementRequest{}, false
	}
	r.matchID = newMatchID()
	req := SettlementRequest{
		MatchID:              r.matchID,
		DisableBonusCurrency: degraded,
		Participants:         make([]SettlementParticipant, 0, len(participants)),
	}
	for _, p := range participants {
		if p.ID == *change.WinnerID {
			req.WinnerWallet = p.WalletID
		}
		req.Participants = append(req.Participants, SettlementParticipant{ParticipantID: p.ID, WalletID: p.WalletID})
	}
	metricSettlementCalls.Add(1)
	return req, true
}

func (r *RewardSettlement) MatchID() string {
	return r.matchID
}

// Deliver sends each payout to its owning participant at most once. On
// failure nothing is fabricated; connected participants are told rewards
// are pending.
func (r *RewardSettlement) Deliver(dir *Directory, payouts []ParticipantPayout, err error) int {
	if err != nil {
		metricSettlementErrors.Add(1)
		log.Warn().
			Err(err).
			Str("session_code", r.code).
			Str("match_id", r.matchID).
			Msg("settlement failed; rewards pending")
		for _, id := range dir.IDs() {
			r.out.Send(id, "rewards_pending", map[string]any{"match_id": r.matchID, "reason": "settlement_unavailable"})
		}
		return 0
	}
	sent := 0
	for _, p := range payouts {
		if _, ok := dir.Get(p.ParticipantID); !ok {
			continue
		}
		if r.delivered[p.ParticipantID] {
			continue
		}
		r.delivered[p.ParticipantID] = true
		r.out.Send(p.ParticipantID, "payout_ready", PayoutDelivery{MatchID: r.matchID, Payout: p.Payout})
		metricPayoutsDelivered.Add(1)
		sent++
	}
	for _, id := range dir.IDs() {
		if !r.delivered[id] {
			r.out.Send(id, "rewards_pending", map[string]any{"match_id": r.matchID, "reason": "no_result"})
		}
	}
	return sent
}
