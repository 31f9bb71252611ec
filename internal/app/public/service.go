package public

import (
	"context"
	"errors"
	"strings"

	"duel-session/internal/store"
)

// ProfileReader is the read side of the profile store.
type ProfileReader interface {
	GetProfile(ctx context.Context, walletID string) (*store.Profile, error)
	ListProfiles(ctx context.Context, sort string, limit, offset int) ([]store.Profile, error)
}

type Service struct {
	profiles ProfileReader
}

const leaderboardMaxRows = 100

func NewService(profiles ProfileReader) *Service {
	return &Service{profiles: profiles}
}

func (s *Service) Profile(ctx context.Context, walletID string) (*ProfileItem, error) {
	walletID = strings.TrimSpace(walletID)
	if walletID == "" {
		return nil, ErrInvalidRequest
	}
	p, err := s.profiles.GetProfile(ctx, walletID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	item := toProfileItem(*p)
	return &item, nil
}

// Leaderboard pages through the top 100 profiles ordered by sort.
func (s *Service) Leaderboard(ctx context.Context, sort string, limit, offset int) (*LeaderboardResponse, error) {
	if sort == "" {
		sort = "wins"
	}
	if !store.IsProfileSort(sort) {
		return nil, ErrInvalidRequest
	}
	limit, ok := clampLeaderboardPage(limit, offset)
	if !ok {
		return &LeaderboardResponse{Items: []LeaderboardItem{}, Sort: sort, Limit: limit, Offset: offset}, nil
	}
	rows, err := s.profiles.ListProfiles(ctx, sort, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardItem, 0, len(rows))
	for i, p := range rows {
		out = append(out, LeaderboardItem{Rank: offset + i + 1, ProfileItem: toProfileItem(p)})
	}
	return &LeaderboardResponse{Items: out, Sort: sort, Limit: limit, Offset: offset}, nil
}

func toProfileItem(p store.Profile) ProfileItem {
	item := ProfileItem{
		WalletID:    p.WalletID,
		DisplayName: p.DisplayName,
		Title:       p.Title,
		Level:       p.Level,
		IconID:      p.IconID,
		FrameID:     p.FrameID,
		XP:          p.XP,
		Currency:    p.Currency,
		Wins:        p.Wins,
		Losses:      p.Losses,
		UpdatedAt:   p.UpdatedAt,
	}
	if played := p.Wins + p.Losses; played > 0 {
		item.WinRate = float64(p.Wins) / float64(played)
	}
	return item
}

func clampLeaderboardPage(limit, offset int) (int, bool) {
	if offset >= leaderboardMaxRows {
		return 0, false
	}
	if limit <= 0 {
		limit = 50
	}
	remaining := leaderboardMaxRows - offset
	if limit > remaining {
		limit = remaining
	}
	return limit, true
}
