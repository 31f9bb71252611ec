package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	WSURL       string `env:"WS_URL" envDefault:"ws://localhost:8080/ws"`
	SessionCode string `env:"SESSION_CODE" envDefault:"local"`

	DisplayName string `env:"DISPLAY_NAME"`
	Title       string `env:"TITLE"`
	Level       int    `env:"LEVEL" envDefault:"1"`
	IconID      string `env:"ICON_ID"`
	FrameID     string `env:"FRAME_ID"`
	WalletID    string `env:"WALLET_ID"`

	ProfileDSN string `env:"PROFILE_DSN"`

	IdentityWaitMS     int `env:"IDENTITY_WAIT_MS" envDefault:"6000"`
	ActivityIntervalMS int `env:"ACTIVITY_INTERVAL_MS" envDefault:"500"`
	ContinueTimeoutMS  int `env:"CONTINUE_TIMEOUT_MS" envDefault:"8000"`
	IdleAfterSeconds   int `env:"IDLE_AFTER_SECONDS" envDefault:"0"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
