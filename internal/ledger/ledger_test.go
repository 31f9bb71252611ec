package ledger_test

import (
	"context"
	"errors"
	"testing"

	"duel-session/internal/ledger"
	"duel-session/internal/match"
	"duel-session/internal/store"
	"duel-session/internal/testutil"
)

func TestApplyPayoutOncePerMatch(t *testing.T) {
	led := ledger.New(testutil.OpenTestStore(t))
	ctx := context.Background()
	payout := match.PayoutResult{IsWin: true, XPDelta: 100, CurrencyDelta: 50}

	totals, applied, err := led.ApplyPayout(ctx, "w1", "match_1", payout)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !applied || totals.XP != 100 || totals.Currency != 50 || totals.Wins != 1 {
		t.Fatalf("unexpected first apply: applied=%v totals=%+v", applied, totals)
	}

	totals, applied, err = led.ApplyPayout(ctx, "w1", "match_1", payout)
	if err != nil {
		t.Fatalf("apply again: %v", err)
	}
	if applied || totals.XP != 100 || totals.Wins != 1 {
		t.Fatalf("expected duplicate ignored: applied=%v totals=%+v", applied, totals)
	}

	totals, _, err = led.ApplyPayout(ctx, "w1", "match_2", match.PayoutResult{XPDelta: 60})
	if err != nil {
		t.Fatalf("apply second match: %v", err)
	}
	if totals.XP != 160 || totals.Losses != 1 {
		t.Fatalf("unexpected totals after loss: %+v", totals)
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	led := ledger.New(testutil.OpenTestStore(t))
	ctx := context.Background()

	if _, err := led.LoadIdentity(ctx, "w9"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	in := match.Identity{DisplayName: "Ash", Title: "Duelist", Level: 4, IconID: "icon_7", FrameID: "frame_2", WalletID: "w9"}
	if err := led.SaveIdentity(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := led.LoadIdentity(ctx, "w9")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != in {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

func TestApplyPayoutRejectsMissingKeys(t *testing.T) {
	led := ledger.New(nil)
	if _, _, err := led.ApplyPayout(context.Background(), "", "m", match.PayoutResult{}); !errors.Is(err, ledger.ErrInvalidPayout) {
		t.Fatalf("expected invalid payout, got %v", err)
	}
}
