package match

import (
	"context"
	"regexp"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

var sessionCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

func ValidSessionCode(code string) bool {
	return sessionCodePattern.MatchString(code)
}

// Registry owns every live session on this server, keyed by session code.
// Sessions remove themselves once closed.
type Registry struct {
	ctx     context.Context
	cfg     Config
	settler Settler

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(ctx context.Context, cfg Config, settler Settler) *Registry {
	return &Registry{
		ctx:      ctx,
		cfg:      cfg,
		settler:  settler,
		sessions: map[string]*Session{},
	}
}

// Ensure returns the live session for code, creating and starting one when
// none exists.
func (r *Registry) Ensure(code string) (*Session, error) {
	if !ValidSessionCode(code) {
		return nil, ErrInvalidSessionCode
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.sessions[code]; s != nil && !s.closedNow() {
		return s, nil
	}
	s := NewSession(code, r.cfg, Deps{
		Settler:  r.settler,
		OnClosed: r.remove,
	})
	r.sessions[code] = s
	s.Start(r.ctx)
	log.Info().Str("session_code", code).Msg("session created")
	return s, nil
}

func (r *Registry) Get(code string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[code]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) Codes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions))
	for code := range r.sessions {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Shutdown closes every live session.
func (r *Registry) Shutdown(reason string) {
	r.mu.Lock()
	live := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.mu.Unlock()
	for _, s := range live {
		s.Close(reason)
	}
}

func (r *Registry) remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.sessions[code]; s != nil && s.closedNow() {
		delete(r.sessions, code)
	}
}
