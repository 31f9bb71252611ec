package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"duel-session/internal/config"
	"duel-session/internal/match"

	"github.com/rs/zerolog/log"
)

var ErrNotConfigured = errors.New("settlement_not_configured")

type requestBody struct {
	MatchID              string            `json:"matchId"`
	WinnerWallet         string            `json:"winnerWallet"`
	DisableBonusCurrency bool              `json:"disableBonusCurrency"`
	Participants         []participantBody `json:"participants"`
}

type participantBody struct {
	ParticipantID string `json:"participantId"`
	WalletID      string `json:"walletId"`
}

type resultBody struct {
	ParticipantID string     `json:"participantId"`
	Payout        payoutBody `json:"payout"`
}

type payoutBody struct {
	IsWin     bool       `json:"isWin"`
	XP        int64      `json:"xp"`
	Currency  int64      `json:"currency"`
	NewTotals totalsBody `json:"newTotals"`
}

type totalsBody struct {
	XP       int64 `json:"xp"`
	Currency int64 `json:"currency"`
	Wins     int   `json:"wins"`
	Losses   int   `json:"losses"`
	Level    int   `json:"level"`
}

// Client calls the external settlement service. It never retries: the
// session calls it once and treats any failure as "no results".
type Client struct {
	http     *HTTPClient
	endpoint string
	apiKey   string
}

func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		http:     NewHTTPClient(timeout),
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
	}
}

// FromConfig returns nil when no settlement URL is configured, which leaves
// sessions running with rewards disabled.
func FromConfig(cfg config.ServerConfig) *Client {
	if strings.TrimSpace(cfg.SettlementURL) == "" {
		return nil
	}
	return NewClient(cfg.SettlementURL, cfg.SettlementAPIKey, time.Duration(cfg.SettlementTimeoutMS)*time.Millisecond)
}

func (c *Client) Settle(ctx context.Context, req match.SettlementRequest) ([]match.ParticipantPayout, error) {
	if c == nil || c.endpoint == "" {
		return nil, ErrNotConfigured
	}
	body := requestBody{
		MatchID:              req.MatchID,
		WinnerWallet:         req.WinnerWallet,
		DisableBonusCurrency: req.DisableBonusCurrency,
		Participants:         make([]participantBody, 0, len(req.Participants)),
	}
	for _, p := range req.Participants {
		body.Participants = append(body.Participants, participantBody{
			ParticipantID: string(p.ParticipantID),
			WalletID:      p.WalletID,
		})
	}
	headers := map[string]string{"Idempotency-Key": req.MatchID}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	started := time.Now()
	var results []resultBody
	if err := c.http.PostJSON(ctx, c.endpoint, headers, body, &results); err != nil {
		log.Warn().
			Err(err).
			Str("match_id", req.MatchID).
			Dur("elapsed", time.Since(started)).
			Msg("settlement call failed")
		return nil, fmt.Errorf("settle %s: %w", req.MatchID, err)
	}
	log.Info().
		Str("match_id", req.MatchID).
		Int("results", len(results)).
		Dur("elapsed", time.Since(started)).
		Msg("settlement call complete")

	out := make([]match.ParticipantPayout, 0, len(results))
	for _, r := range results {
		if r.ParticipantID == "" {
			continue
		}
		out = append(out, match.ParticipantPayout{
			ParticipantID: match.ParticipantID(r.ParticipantID),
			Payout: match.PayoutResult{
				IsWin:         r.Payout.IsWin,
				XPDelta:       r.Payout.XP,
				CurrencyDelta: r.Payout.Currency,
				NewTotals: match.Totals{
					XP:       r.Payout.NewTotals.XP,
					Currency: r.Payout.NewTotals.Currency,
					Wins:     r.Payout.NewTotals.Wins,
					Losses:   r.Payout.NewTotals.Losses,
					Level:    r.Payout.NewTotals.Level,
				},
			},
		})
	}
	return out, nil
}
