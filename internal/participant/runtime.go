package participant

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"duel-session/internal/config"
	"duel-session/internal/match"
	"duel-session/internal/ws"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	inputTick           = 100 * time.Millisecond
	writeWait           = 5 * time.Second
	defaultIdentityWait = 6 * time.Second
)

var ErrEvicted = errors.New("evicted by authority")

type Config struct {
	URL              string
	SessionCode      string
	Identity         match.Identity
	IdentityWait     time.Duration
	ActivityInterval time.Duration
	ContinueTimeout  time.Duration
	// IdleAfter stops activity reports this long after the match starts.
	// Zero keeps reporting for the whole match.
	IdleAfter time.Duration
	AutoVote  bool
}

func ConfigFromBot(cfg config.BotConfig) Config {
	return Config{
		URL:         cfg.WSURL,
		SessionCode: cfg.SessionCode,
		Identity: match.Identity{
			DisplayName: cfg.DisplayName,
			Title:       cfg.Title,
			Level:       cfg.Level,
			IconID:      cfg.IconID,
			FrameID:     cfg.FrameID,
			WalletID:    cfg.WalletID,
		},
		IdentityWait:     time.Duration(cfg.IdentityWaitMS) * time.Millisecond,
		ActivityInterval: time.Duration(cfg.ActivityIntervalMS) * time.Millisecond,
		ContinueTimeout:  time.Duration(cfg.ContinueTimeoutMS) * time.Millisecond,
		IdleAfter:        time.Duration(cfg.IdleAfterSeconds) * time.Second,
		AutoVote:         true,
	}
}

// streamMessage covers both stream events and error replies.
type streamMessage struct {
	EventID string          `json:"event_id"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
	Type    string          `json:"type"`
	Error   string          `json:"error"`
}

// Runtime is one participant's connection to an authority. It mirrors the
// replicated view, reports activity while playing, records its payout
// locally and votes to return once continue unlocks.
type Runtime struct {
	cfg      Config
	profiles ProfileStore
	dialer   *websocket.Dialer
	limiter  *rate.Limiter
	payout   *PayoutState
	out      chan any
	now      func() time.Time

	mu            sync.Mutex
	id            match.ParticipantID
	walletID      string
	view          match.SessionView
	phase         match.Phase
	playingSince  time.Time
	scene         string
	closeReason   string
	identitySaved bool
	totals        *match.Totals
	totalsDrift   bool
	continueTimer *time.Timer
}

func New(cfg Config, profiles ProfileStore) *Runtime {
	interval := cfg.ActivityInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Runtime{
		cfg:      cfg,
		profiles: profiles,
		dialer:   websocket.DefaultDialer,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		payout:   NewPayoutState(cfg.ContinueTimeout),
		out:      make(chan any, 16),
		now:      time.Now,
		phase:    match.PhaseWaiting,
		walletID: cfg.Identity.WalletID,
	}
}

func (r *Runtime) Payout() *PayoutState { return r.payout }

func (r *Runtime) ParticipantID() match.ParticipantID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func (r *Runtime) View() match.SessionView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

func (r *Runtime) Scene() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scene
}

func (r *Runtime) CloseReason() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeReason
}

// Totals returns the cumulative totals after the local payout was applied.
func (r *Runtime) Totals() (match.Totals, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.totals == nil {
		return match.Totals{}, false
	}
	return *r.totals, true
}

// TotalsDiverged reports whether the settlement service's new totals ever
// disagreed with the totals kept by the local profile store.
func (r *Runtime) TotalsDiverged() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalsDrift
}

func (r *Runtime) dialURL() (string, error) {
	u, err := url.Parse(r.cfg.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("session", r.cfg.SessionCode)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Run joins the session and returns once the authority closes it, ctx is
// cancelled, or the connection fails. IdentityWait bounds both reaching the
// authority and loading the stored profile; whatever the profile store has
// not produced by then is replaced by the configured defaults.
func (r *Runtime) Run(ctx context.Context) error {
	wait := r.cfg.IdentityWait
	if wait <= 0 {
		wait = defaultIdentityWait
	}
	identityCh := make(chan match.Identity, 1)
	go func() {
		identityCh <- ResolveIdentity(ctx, r.profiles, r.cfg.Identity, wait)
	}()

	conn, err := r.connect(ctx, wait)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info().Str("session_code", r.cfg.SessionCode).Msg("connected to authority")

	var identity match.Identity
	select {
	case identity = <-identityCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	r.send(ws.SubmitIdentityMessage{Type: ws.MsgSubmitIdentity, Identity: identity})
	r.send(map[string]string{"type": ws.MsgReady})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer r.stopContinueTimer()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return r.readLoop(gctx, conn)
	})
	g.Go(func() error {
		return r.writeLoop(gctx, conn)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-r.payout.ContinueReady():
		}
		if r.cfg.AutoVote {
			r.send(map[string]string{"type": ws.MsgVote})
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		_ = conn.SetReadDeadline(time.Now())
		return nil
	})
	err = g.Wait()
	if err == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// connect dials the authority, retrying with backoff until wait elapses. A
// join rejected by the authority is not retried.
func (r *Runtime) connect(ctx context.Context, wait time.Duration) (*websocket.Conn, error) {
	target, err := r.dialURL()
	if err != nil {
		return nil, err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second

	attempts := 0
	conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) {
		attempts++
		conn, resp, err := r.dialer.DialContext(ctx, target, nil)
		if err == nil {
			return conn, nil
		}
		if resp != nil {
			var body struct {
				Error string `json:"error"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&body)
			_ = resp.Body.Close()
			if body.Error != "" {
				return nil, backoff.Permanent(&JoinError{Status: resp.StatusCode, Code: body.Error})
			}
		}
		log.Debug().Err(err).Int("attempt", attempts).Msg("authority not reachable yet")
		return nil, err
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(wait))
	if err != nil {
		log.Warn().
			Err(err).
			Str("session_code", r.cfg.SessionCode).
			Int("attempts", attempts).
			Msg("could not reach authority")
		return nil, err
	}
	return conn, nil
}

type JoinError struct {
	Status int
	Code   string
}

func (e *JoinError) Error() string { return "join rejected: " + e.Code }

func (r *Runtime) send(msg any) {
	select {
	case r.out <- msg:
	default:
		log.Warn().Msg("dropping outbound message; queue full")
	}
}

func (r *Runtime) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || r.CloseReason() != "" {
				return nil
			}
			return err
		}
		var msg streamMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Warn().Err(err).Msg("undecodable message from authority")
			continue
		}
		done, err := r.handle(ctx, msg)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (r *Runtime) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(inputTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return nil
		case msg := <-r.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return err
			}
		case now := <-ticker.C:
			if !r.shouldReportActivity(now) || !r.limiter.AllowN(now, 1) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(map[string]string{"type": ws.MsgActivity}); err != nil {
				return err
			}
		}
	}
}

func (r *Runtime) shouldReportActivity(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != match.PhasePlaying {
		return false
	}
	return r.cfg.IdleAfter <= 0 || now.Sub(r.playingSince) < r.cfg.IdleAfter
}

// handle applies one authority message. It reports done once the stream
// has been closed for this participant.
func (r *Runtime) handle(ctx context.Context, msg streamMessage) (bool, error) {
	if msg.Type == "error" {
		log.Warn().Str("error", msg.Error).Msg("authority rejected message")
		return false, nil
	}
	switch msg.Event {
	case "welcome":
		var d struct {
			ParticipantID match.ParticipantID `json:"participant_id"`
		}
		if err := json.Unmarshal(msg.Data, &d); err == nil {
			r.mu.Lock()
			r.id = d.ParticipantID
			r.mu.Unlock()
		}
	case "identity_published":
		var rec match.ParticipantRecord
		if err := json.Unmarshal(msg.Data, &rec); err == nil {
			r.onIdentityPublished(ctx, rec)
		}
	case "state_snapshot":
		var v match.SessionView
		if err := json.Unmarshal(msg.Data, &v); err == nil {
			r.mu.Lock()
			if v.Version >= r.view.Version {
				r.view = v
			}
			r.mu.Unlock()
		}
	case "phase_changed":
		var change match.PhaseChange
		if err := json.Unmarshal(msg.Data, &change); err != nil {
			return false, nil
		}
		r.onPhase(change.To)
	case "payout_ready":
		var d match.PayoutDelivery
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return false, nil
		}
		r.applyPayout(ctx, d)
	case "rewards_pending":
		var d struct {
			MatchID string `json:"match_id"`
			Reason  string `json:"reason"`
		}
		_ = json.Unmarshal(msg.Data, &d)
		r.payout.MarkPending(d.MatchID, d.Reason)
		log.Warn().Str("match_id", d.MatchID).Str("reason", d.Reason).Msg("rewards pending")
	case "return_to_lobby":
		var d struct {
			Scene string `json:"scene"`
		}
		_ = json.Unmarshal(msg.Data, &d)
		r.mu.Lock()
		r.scene = d.Scene
		r.mu.Unlock()
		log.Info().Str("scene", d.Scene).Msg("returning to lobby")
	case "evicted":
		log.Warn().RawJSON("data", msg.Data).Msg("evicted by authority")
		r.mu.Lock()
		r.closeReason = "evicted"
		r.mu.Unlock()
		return true, ErrEvicted
	case "session_closed":
		var d struct {
			Reason string `json:"reason"`
		}
		_ = json.Unmarshal(msg.Data, &d)
		r.mu.Lock()
		if r.closeReason == "" {
			r.closeReason = d.Reason
		}
		r.mu.Unlock()
		log.Info().Str("reason", d.Reason).Msg("session closed")
		return true, nil
	}
	return false, nil
}

func (r *Runtime) onPhase(to match.Phase) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if phaseRank(to) <= phaseRank(r.phase) {
		return
	}
	r.phase = to
	switch to {
	case match.PhasePlaying:
		r.playingSince = now
	case match.PhaseEnded:
		r.payout.MarkEnded(now)
		if r.cfg.ContinueTimeout > 0 {
			r.continueTimer = time.AfterFunc(r.cfg.ContinueTimeout, r.payout.EnableContinue)
		} else {
			r.payout.EnableContinue()
		}
	}
}

// onIdentityPublished adopts the wallet the authority settled on and saves
// the normalized identity once.
func (r *Runtime) onIdentityPublished(ctx context.Context, rec match.ParticipantRecord) {
	r.mu.Lock()
	if rec.ID != r.id {
		r.mu.Unlock()
		return
	}
	r.walletID = rec.WalletID
	first := !r.identitySaved
	r.identitySaved = true
	r.mu.Unlock()

	saver, ok := r.profiles.(IdentitySaver)
	if !first || !ok {
		return
	}
	err := saver.SaveIdentity(ctx, match.Identity{
		DisplayName: rec.DisplayName,
		Title:       rec.Title,
		Level:       rec.Level,
		IconID:      rec.IconID,
		FrameID:     rec.FrameID,
		WalletID:    rec.WalletID,
	})
	if err != nil {
		log.Warn().Err(err).Str("wallet_id", rec.WalletID).Msg("save identity")
	}
}

func (r *Runtime) stopContinueTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.continueTimer != nil {
		r.continueTimer.Stop()
	}
}

func (r *Runtime) applyPayout(ctx context.Context, d match.PayoutDelivery) {
	if !r.payout.Deliver(d.MatchID, d.Payout) {
		log.Debug().Str("match_id", d.MatchID).Msg("duplicate payout ignored")
		return
	}
	r.mu.Lock()
	wallet := r.walletID
	r.mu.Unlock()
	if r.profiles == nil || wallet == "" {
		return
	}
	totals, applied, err := r.profiles.ApplyPayout(ctx, wallet, d.MatchID, d.Payout)
	if err != nil {
		log.Error().Err(err).Str("match_id", d.MatchID).Str("wallet_id", wallet).Msg("apply payout")
		return
	}
	// The local store is authoritative for totals; the settlement figures are
	// only compared against it.
	drift := d.Payout.NewTotals != (match.Totals{}) && !sameTotals(d.Payout.NewTotals, totals)
	r.mu.Lock()
	r.totals = &totals
	if drift {
		r.totalsDrift = true
	}
	r.mu.Unlock()
	if drift {
		log.Warn().
			Str("match_id", d.MatchID).
			Str("wallet_id", wallet).
			Int64("local_xp", totals.XP).
			Int64("settled_xp", d.Payout.NewTotals.XP).
			Int64("local_currency", totals.Currency).
			Int64("settled_currency", d.Payout.NewTotals.Currency).
			Msg("local totals differ from settlement totals")
	}
	log.Info().
		Str("match_id", d.MatchID).
		Str("wallet_id", wallet).
		Bool("applied", applied).
		Bool("is_win", d.Payout.IsWin).
		Int64("xp", totals.XP).
		Int64("currency", totals.Currency).
		Msg("payout recorded")
}

// sameTotals ignores Level, which the settlement service derives on its own.
func sameTotals(a, b match.Totals) bool {
	return a.XP == b.XP && a.Currency == b.Currency && a.Wins == b.Wins && a.Losses == b.Losses
}

func phaseRank(p match.Phase) int {
	switch p {
	case match.PhaseWaiting:
		return 0
	case match.PhasePlaying:
		return 1
	case match.PhaseEnded:
		return 2
	}
	return -1
}
