package match

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Deps struct {
	Settler   Settler
	Publisher Publisher
	// Now defaults to time.Now.
	Now func() time.Time
	// OnClosed runs once, on its own goroutine, after teardown.
	OnClosed func(code string)
}

// Session is the authority for one match. All authoritative state lives
// behind mu; remote participants only reach it through the methods below.
type Session struct {
	code    string
	cfg     Config
	settler Settler
	out     Publisher
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	dir       *Directory
	identity  *IdentitySync
	phase     *PhaseController
	gate      *StartGate
	watchdog  *InactivityWatchdog
	rewards   *RewardSettlement
	lobby     *ReturnToLobbyConsensus
	version   int64
	createdAt time.Time
	departed  int
	closed    bool
	teardown  []func()
	onClosed  func(code string)
}

func NewSession(code string, cfg Config, deps Deps) *Session {
	cfg = cfg.withDefaults()
	out := deps.Publisher
	if out == nil {
		out = NewFanout(code)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		code:      code,
		cfg:       cfg,
		settler:   deps.Settler,
		out:       out,
		now:       now,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		dir:       newDirectory(),
		createdAt: now(),
		onClosed:  deps.OnClosed,
	}
	s.identity = &IdentitySync{dir: s.dir, out: out}
	s.phase = newPhaseController(out)
	s.gate = &StartGate{
		required: cfg.RequiredParticipants,
		timeout:  cfg.StartTimeout,
		dir:      s.dir,
		identity: s.identity,
		phase:    s.phase,
		out:      out,
	}
	s.watchdog = &InactivityWatchdog{
		grace:    cfg.IdleGrace,
		idleKick: cfg.IdleKick,
		dir:      s.dir,
		phase:    s.phase,
		evicted:  map[ParticipantID]struct{}{},
	}
	s.rewards = &RewardSettlement{code: code, delivered: map[ParticipantID]bool{}, out: out}
	s.lobby = &ReturnToLobbyConsensus{requireAll: cfg.RequireAllVotes, votes: map[ParticipantID]struct{}{}}

	s.teardown = append(s.teardown, s.phase.Subscribe(s.onPhaseChange))
	s.teardown = append(s.teardown, s.lobby.Clear)
	metricSessionsCreated.Add(1)
	return s
}

func (s *Session) Code() string {
	return s.code
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) closedNow() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Stream returns the participant's outbound event stream when the
// publisher keeps per-participant buffers.
func (s *Session) Stream(id ParticipantID) *EventBuffer {
	src, ok := s.out.(interface{ Stream(ParticipantID) *EventBuffer })
	if !ok {
		return nil
	}
	return src.Stream(id)
}

// Start runs the session's tick loop until teardown or ctx is done.
func (s *Session) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.Close("shutdown")
				return
			case <-s.done:
				return
			case now := <-ticker.C:
				s.Tick(now)
			}
		}
	}()
}

func (s *Session) Join(id ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.phase.Phase() != PhaseWaiting || s.gate.Opened() {
		return ErrSessionStarted
	}
	if s.dir.Len() >= s.cfg.MaxParticipants {
		return ErrSessionFull
	}
	now := s.now()
	if _, err := s.dir.Add(id, now); err != nil {
		return err
	}
	s.out.Open(id)
	s.gate.Arm(now)
	s.out.Send(id, "welcome", map[string]any{
		"participant_id": id,
		"session_code":   s.code,
	})
	s.out.Broadcast("waiting_status", s.gate.Status())
	s.publishLocked()
	log.Info().
		Str("session_code", s.code).
		Str("participant_id", string(id)).
		Int("connected", s.dir.Len()).
		Msg("participant joined")
	return nil
}

// Leave handles any disconnect, voluntary or not. Unknown ids are ignored.
func (s *Session) Leave(id ParticipantID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveLocked(id, reason)
}

func (s *Session) SubmitIdentity(id ParticipantID, in Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if _, err := s.identity.Submit(id, in); err != nil {
		return err
	}
	if s.phase.Phase() == PhaseWaiting {
		s.out.Broadcast("waiting_status", s.gate.Status())
	}
	s.publishLocked()
	return nil
}

func (s *Session) NotifyReady(id ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if _, err := s.gate.NotifyReady(id, s.now()); err != nil {
		return err
	}
	s.afterStartLocked()
	s.publishLocked()
	return nil
}

func (s *Session) ReportActivity(id ParticipantID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.watchdog.Touch(id, s.now())
}

// DeclareWinner is the gameplay entry point for a normal win. Only the
// first declaration in a session takes effect.
func (s *Session) DeclareWinner(id ParticipantID, reason string) bool {
	return s.ReportWinner(id, reason) == nil
}

// ReportWinner is DeclareWinner with the rejection reason spelled out.
func (s *Session) ReportWinner(id ParticipantID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if _, ok := s.dir.Get(id); !ok {
		return ErrUnknownParticipant
	}
	if !s.phase.DeclareWinner(id, s.now(), reason) {
		return ErrMatchNotPlaying
	}
	s.publishLocked()
	return nil
}

func (s *Session) Vote(id ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if _, ok := s.dir.Get(id); !ok {
		return ErrUnknownParticipant
	}
	if !s.cfg.Networked {
		s.returnToLobbyLocked()
		return nil
	}
	if s.phase.Phase() != PhaseEnded {
		return nil
	}
	if !s.lobby.Vote(id) {
		return nil
	}
	connected := s.dir.IDs()
	s.out.Broadcast("vote_recorded", map[string]any{
		"participant_id": id,
		"votes":          s.lobby.Count(),
		"required":       s.lobby.Required(connected),
	})
	if s.lobby.QuorumReached(connected) {
		s.returnToLobbyLocked()
	}
	return nil
}

// Tick drives the timed paths: the start gate deadline, idle eviction and
// session expiry.
func (s *Session) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.expiredLocked(now) {
		log.Warn().
			Str("session_code", s.code).
			Str("phase", string(s.phase.Phase())).
			Msg("session expired")
		s.phase.Abandon(now, "expired")
		s.closeLocked("expired")
		return
	}
	if s.gate.Evaluate(now) {
		s.afterStartLocked()
		s.publishLocked()
	}
	for _, id := range s.watchdog.IdleCandidates(now) {
		if s.closed || s.phase.Phase() != PhasePlaying {
			break
		}
		if !s.watchdog.MarkEvicted(id) {
			continue
		}
		log.Info().
			Str("session_code", s.code).
			Str("participant_id", string(id)).
			Dur("idle_kick", s.cfg.IdleKick).
			Msg("evicting idle participant")
		s.out.Send(id, "evicted", map[string]any{"reason": "idle_timeout"})
		s.leaveLocked(id, "idle_timeout")
	}
}

func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) RewardsDegraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchdog.RewardsDegraded()
}

// Close tears the session down: pending timers stop, subscriptions are
// removed and every participant stream is closed.
func (s *Session) Close(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(reason)
}

func (s *Session) leaveLocked(id ParticipantID, reason string) {
	if s.closed || !s.dir.Remove(id) {
		return
	}
	s.departed++
	s.lobby.Forget(id)
	s.out.Drop(id, reason)
	s.out.Broadcast("participant_left", map[string]any{"participant_id": id, "reason": reason})
	log.Info().
		Str("session_code", s.code).
		Str("participant_id", string(id)).
		Str("reason", reason).
		Str("phase", string(s.phase.Phase())).
		Msg("participant left")

	now := s.now()
	switch s.phase.Phase() {
	case PhaseWaiting:
		s.out.Broadcast("waiting_status", s.gate.Status())
	case PhasePlaying:
		s.settleLastStandingLocked(now)
	case PhaseEnded:
		if s.lobby.QuorumReached(s.dir.IDs()) {
			s.publishLocked()
			s.returnToLobbyLocked()
			return
		}
	}
	if s.dir.Len() == 0 {
		s.closeLocked("empty")
		return
	}
	s.publishLocked()
}

// settleLastStandingLocked declares the only remaining participant winner,
// or ends the session with no winner when nobody remains.
func (s *Session) settleLastStandingLocked(now time.Time) {
	switch s.dir.Len() {
	case 0:
		s.phase.Abandon(now, "abandoned")
	case 1:
		s.phase.DeclareWinner(s.dir.IDs()[0], now, "last_standing")
	}
}

func (s *Session) afterStartLocked() {
	if s.phase.Phase() != PhasePlaying {
		return
	}
	if s.dir.Len() == 0 || s.departed > 0 {
		s.settleLastStandingLocked(s.now())
	}
}

func (s *Session) onPhaseChange(change PhaseChange) {
	log.Info().
		Str("session_code", s.code).
		Str("phase", string(change.To)).
		Str("reason", change.Reason).
		Msg("phase changed")
	req, ok := s.rewards.Trigger(change, s.dir.Snapshot(), s.watchdog.RewardsDegraded())
	if !ok {
		return
	}
	s.settleAsync(req)
}

func (s *Session) settleAsync(req SettlementRequest) {
	settler := s.settler
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SettlementTimeout)
	go func() {
		defer cancel()
		var (
			payouts []ParticipantPayout
			err     error
		)
		if settler == nil {
			err = ErrSettlementDisabled
		} else {
			payouts, err = settler.Settle(ctx, req)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		s.rewards.Deliver(s.dir, payouts, err)
	}()
}

func (s *Session) returnToLobbyLocked() {
	scene, err := ResolveDestination(s.cfg.Destination)
	if err != nil {
		log.Error().
			Err(err).
			Str("session_code", s.code).
			Msg("return to lobby failed: no valid destination")
		s.closeLocked("destination_unresolved")
		return
	}
	s.out.Broadcast("unpause", map[string]any{})
	s.out.Broadcast("return_to_lobby", map[string]any{"scene": scene})
	metricLobbyReturns.Add(1)
	log.Info().
		Str("session_code", s.code).
		Str("scene", scene).
		Msg("returning to lobby")
	s.closeLocked("returned_to_lobby")
}

func (s *Session) closeLocked(reason string) {
	if s.closed {
		return
	}
	s.closed = true
	for i := len(s.teardown) - 1; i >= 0; i-- {
		s.teardown[i]()
	}
	s.teardown = nil
	s.out.CloseAll(reason)
	s.cancel()
	close(s.done)
	metricSessionsClosed.Add(1)
	log.Info().Str("session_code", s.code).Str("reason", reason).Msg("session closed")
	if s.onClosed != nil {
		go s.onClosed(s.code)
	}
}

// expiredLocked measures Waiting and Playing sessions from creation. An
// Ended session is measured from its end so settlement and the lobby vote
// are never cut short by the creation TTL.
func (s *Session) expiredLocked(now time.Time) bool {
	st := s.phase.State()
	if st.Phase == PhaseEnded {
		return now.Sub(st.EndedAt) >= s.cfg.SessionTTL
	}
	return now.Sub(s.createdAt) >= s.cfg.SessionTTL
}

func (s *Session) publishLocked() {
	s.version++
	s.out.Broadcast("state_snapshot", s.viewLocked())
}

func (s *Session) viewLocked() SessionView {
	st := s.phase.State()
	return SessionView{
		Code:            s.code,
		Version:         s.version,
		Phase:           st.Phase,
		WinnerID:        st.WinnerID,
		StartedAtTS:     unixMilli(st.StartedAt),
		EndedAtTS:       unixMilli(st.EndedAt),
		EndReason:       st.EndReason,
		ReadyCount:      s.dir.ReadyCount(),
		Required:        s.cfg.RequiredParticipants,
		StartDeadlineTS: unixMilli(s.gate.Deadline()),
		RewardsDegraded: s.watchdog.RewardsDegraded(),
		Participants:    s.dir.Snapshot(),
	}
}
