package ledger

import (
	"context"
	"errors"
	"strings"

	"duel-session/internal/match"
	"duel-session/internal/store"
)

var ErrInvalidPayout = errors.New("invalid_payout")

// Ledger is the participant-side profile store: cosmetics for identity
// submission and cumulative totals updated by match payouts.
type Ledger struct {
	Store *store.Store
}

func New(s *store.Store) *Ledger {
	return &Ledger{Store: s}
}

func (l *Ledger) LoadIdentity(ctx context.Context, walletID string) (match.Identity, error) {
	p, err := l.Store.GetProfile(ctx, walletID)
	if err != nil {
		return match.Identity{}, err
	}
	return match.Identity{
		DisplayName: p.DisplayName,
		Title:       p.Title,
		Level:       p.Level,
		IconID:      p.IconID,
		FrameID:     p.FrameID,
		WalletID:    p.WalletID,
	}, nil
}

func (l *Ledger) SaveIdentity(ctx context.Context, id match.Identity) error {
	if strings.TrimSpace(id.WalletID) == "" {
		return ErrInvalidPayout
	}
	return l.Store.UpsertProfile(ctx, store.Profile{
		WalletID:    id.WalletID,
		DisplayName: id.DisplayName,
		Title:       id.Title,
		Level:       id.Level,
		IconID:      id.IconID,
		FrameID:     id.FrameID,
	})
}

// ApplyPayout records a payout against the wallet. Repeating it for the
// same match returns the current totals and applied=false.
func (l *Ledger) ApplyPayout(ctx context.Context, walletID, matchID string, p match.PayoutResult) (match.Totals, bool, error) {
	if strings.TrimSpace(walletID) == "" || strings.TrimSpace(matchID) == "" {
		return match.Totals{}, false, ErrInvalidPayout
	}
	prof, applied, err := l.Store.ApplyPayout(ctx, store.PayoutApplication{
		WalletID:      walletID,
		MatchID:       matchID,
		IsWin:         p.IsWin,
		XPDelta:       p.XPDelta,
		CurrencyDelta: p.CurrencyDelta,
	})
	if err != nil {
		return match.Totals{}, false, err
	}
	return match.Totals{
		XP:       prof.XP,
		Currency: prof.Currency,
		Wins:     prof.Wins,
		Losses:   prof.Losses,
		Level:    prof.Level,
	}, applied, nil
}
