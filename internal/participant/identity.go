package participant

import (
	"context"
	"errors"
	"strings"
	"time"

	"duel-session/internal/match"
	"duel-session/internal/store"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// IdentitySource loads a stored identity for a wallet.
type IdentitySource interface {
	LoadIdentity(ctx context.Context, walletID string) (match.Identity, error)
}

// ResolveIdentity retries the source until wait elapses and then falls
// back. A missing profile is not retried. Fields the stored profile leaves
// empty are taken from fallback.
func ResolveIdentity(ctx context.Context, src IdentitySource, fallback match.Identity, wait time.Duration) match.Identity {
	wallet := strings.TrimSpace(fallback.WalletID)
	if src == nil || wallet == "" {
		return fallback
	}
	if wait <= 0 {
		wait = defaultIdentityWait
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second

	attempts := 0
	got, err := backoff.Retry(ctx, func() (match.Identity, error) {
		attempts++
		id, err := src.LoadIdentity(ctx, wallet)
		if errors.Is(err, store.ErrNotFound) {
			return match.Identity{}, backoff.Permanent(err)
		}
		return id, err
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(wait))
	if err != nil {
		log.Warn().
			Err(err).
			Str("wallet_id", wallet).
			Int("attempts", attempts).
			Msg("identity unavailable; using defaults")
		return fallback
	}
	return mergeIdentity(got, fallback)
}

func mergeIdentity(stored, fallback match.Identity) match.Identity {
	out := stored
	if out.DisplayName == "" {
		out.DisplayName = fallback.DisplayName
	}
	if out.Title == "" {
		out.Title = fallback.Title
	}
	if out.Level < 1 {
		out.Level = fallback.Level
	}
	if out.IconID == "" {
		out.IconID = fallback.IconID
	}
	if out.FrameID == "" {
		out.FrameID = fallback.FrameID
	}
	out.WalletID = fallback.WalletID
	return out
}
