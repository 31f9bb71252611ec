package store

import "time"

type Profile struct {
	WalletID    string
	DisplayName string
	Title       string
	Level       int
	IconID      string
	FrameID     string
	XP          int64
	Currency    int64
	Wins        int
	Losses      int
	UpdatedAt   time.Time
}

type PayoutApplication struct {
	WalletID      string
	MatchID       string
	IsWin         bool
	XPDelta       int64
	CurrencyDelta int64
}
