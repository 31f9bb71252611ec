package participant

import (
	"context"
	"sync"

	"duel-session/internal/match"
	"duel-session/internal/store"
)

// ProfileStore is the local profile collaborator: it seeds identity and
// keeps cumulative totals. ApplyPayout must be idempotent per match.
type ProfileStore interface {
	LoadIdentity(ctx context.Context, walletID string) (match.Identity, error)
	ApplyPayout(ctx context.Context, walletID, matchID string, p match.PayoutResult) (match.Totals, bool, error)
}

// IdentitySaver is implemented by profile stores that keep the identity the
// authority published.
type IdentitySaver interface {
	SaveIdentity(ctx context.Context, id match.Identity) error
}

// MemoryProfiles is a process-local ProfileStore for bots without a
// database.
type MemoryProfiles struct {
	mu         sync.Mutex
	identities map[string]match.Identity
	totals     map[string]match.Totals
	applied    map[string]struct{}
}

func NewMemoryProfiles() *MemoryProfiles {
	return &MemoryProfiles{
		identities: map[string]match.Identity{},
		totals:     map[string]match.Totals{},
		applied:    map[string]struct{}{},
	}
}

func (m *MemoryProfiles) Put(id match.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[id.WalletID] = id
}

func (m *MemoryProfiles) SaveIdentity(_ context.Context, id match.Identity) error {
	m.Put(id)
	return nil
}

func (m *MemoryProfiles) LoadIdentity(_ context.Context, walletID string) (match.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.identities[walletID]
	if !ok {
		return match.Identity{}, store.ErrNotFound
	}
	return id, nil
}

func (m *MemoryProfiles) ApplyPayout(_ context.Context, walletID, matchID string, p match.PayoutResult) (match.Totals, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := walletID + "/" + matchID
	t := m.totals[walletID]
	if _, ok := m.applied[key]; ok {
		return t, false, nil
	}
	m.applied[key] = struct{}{}
	t.XP += p.XPDelta
	t.Currency += p.CurrencyDelta
	if p.IsWin {
		t.Wins++
	} else {
		t.Losses++
	}
	if t.Level == 0 {
		t.Level = 1
	}
	m.totals[walletID] = t
	return t, true, nil
}

func (m *MemoryProfiles) Totals(walletID string) match.Totals {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals[walletID]
}
