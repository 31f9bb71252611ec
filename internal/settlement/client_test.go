package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"duel-session/internal/config"
	"duel-session/internal/match"
)

func TestClientSettleWireFormat(t *testing.T) {
	var got map[string]any
	var auth, idem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		idem = r.Header.Get("Idempotency-Key")
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"participantId":"a","payout":{"isWin":true,"xp":100,"currency":50,"newTotals":{"xp":1100,"currency":250,"wins":3,"losses":1,"level":4}}},
			{"participantId":"b","payout":{"isWin":false,"xp":60,"currency":0,"newTotals":{"xp":60,"wins":0,"losses":1}}}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", time.Second)
	payouts, err := client.Settle(context.Background(), match.SettlementRequest{
		MatchID:              "match_1",
		WinnerWallet:         "w-a",
		DisableBonusCurrency: true,
		Participants: []match.SettlementParticipant{
			{ParticipantID: "a", WalletID: "w-a"},
			{ParticipantID: "b", WalletID: "w-b"},
		},
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if auth != "Bearer secret" || idem != "match_1" {
		t.Fatalf("unexpected headers: auth=%q idem=%q", auth, idem)
	}
	if got["matchId"] != "match_1" || got["winnerWallet"] != "w-a" || got["disableBonusCurrency"] != true {
		t.Fatalf("unexpected body: %v", got)
	}
	parts, _ := got["participants"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected 2 participants, got %v", got["participants"])
	}
	first, _ := parts[0].(map[string]any)
	if first["participantId"] != "a" || first["walletId"] != "w-a" {
		t.Fatalf("unexpected participant: %v", first)
	}

	if len(payouts) != 2 {
		t.Fatalf("expected 2 payouts, got %d", len(payouts))
	}
	a := payouts[0]
	if a.ParticipantID != "a" || !a.Payout.IsWin || a.Payout.XPDelta != 100 || a.Payout.CurrencyDelta != 50 {
		t.Fatalf("unexpected winner payout: %+v", a)
	}
	if a.Payout.NewTotals.Wins != 3 || a.Payout.NewTotals.Level != 4 {
		t.Fatalf("unexpected totals: %+v", a.Payout.NewTotals)
	}
	if payouts[1].Payout.IsWin || payouts[1].Payout.XPDelta != 60 {
		t.Fatalf("unexpected loser payout: %+v", payouts[1])
	}
}

func TestClientSettleNon2xx(t *testing.T) {
	client := newTestClient("http://settle.local/v1/settle", func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader(`{"error":"upstream"}`)),
			Header:     make(http.Header),
		}, nil
	})
	_, err := client.Settle(context.Background(), match.SettlementRequest{MatchID: "m"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadGateway {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestClientSettleTimeout(t *testing.T) {
	client := newTestClient("http://settle.local/v1/settle", func(r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.Settle(ctx, match.SettlementRequest{MatchID: "m"}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClientSettleBadJSON(t *testing.T) {
	client := newTestClient("http://settle.local/v1/settle", func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"not":"a list"}`)),
			Header:     make(http.Header),
		}, nil
	})
	if _, err := client.Settle(context.Background(), match.SettlementRequest{MatchID: "m"}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFromConfig(t *testing.T) {
	if c := FromConfig(config.ServerConfig{}); c != nil {
		t.Fatal("expected nil client without url")
	}
	c := FromConfig(config.ServerConfig{SettlementURL: " http://x/settle ", SettlementTimeoutMS: 100})
	if c == nil || c.endpoint != "http://x/settle" {
		t.Fatalf("unexpected client: %+v", c)
	}
	var nilClient *Client
	if _, err := nilClient.Settle(context.Background(), match.SettlementRequest{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}
