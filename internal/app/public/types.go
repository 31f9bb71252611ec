package public

import "time"

type ProfileItem struct {
	WalletID    string    `json:"wallet_id"`
	DisplayName string    `json:"display_name"`
	Title       string    `json:"title"`
	Level       int       `json:"level"`
	IconID      string    `json:"icon_id"`
	FrameID     string    `json:"frame_id"`
	XP          int64     `json:"xp"`
	Currency    int64     `json:"currency"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	WinRate     float64   `json:"win_rate"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type LeaderboardResponse struct {
	Items  []LeaderboardItem `json:"items"`
	Sort   string            `json:"sort"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type LeaderboardItem struct {
	Rank int `json:"rank"`
	ProfileItem
}
