package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	// PostgresDSN is optional; without it profile endpoints are disabled.
	PostgresDSN string `env:"POSTGRES_DSN"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	SettlementURL       string `env:"SETTLEMENT_URL"`
	SettlementAPIKey    string `env:"SETTLEMENT_API_KEY"`
	SettlementTimeoutMS int    `env:"SETTLEMENT_TIMEOUT_MS" envDefault:"5000"`

	RequiredParticipants int  `env:"REQUIRED_PARTICIPANTS" envDefault:"2"`
	MaxParticipants      int  `env:"MAX_PARTICIPANTS" envDefault:"2"`
	StartWaitSeconds     int  `env:"START_WAIT_SECONDS" envDefault:"20"`
	IdleGraceSeconds     int  `env:"IDLE_GRACE_SECONDS" envDefault:"10"`
	IdleKickSeconds      int  `env:"IDLE_KICK_SECONDS" envDefault:"30"`
	WatchdogTickMS       int  `env:"WATCHDOG_TICK_MS" envDefault:"1000"`
	RequireAllVotes      bool `env:"REQUIRE_ALL_VOTES" envDefault:"true"`
	SessionTTLMinutes    int  `env:"SESSION_TTL_MINUTES" envDefault:"60"`

	LobbySceneIndex    int      `env:"LOBBY_SCENE_INDEX" envDefault:"-1"`
	LobbySceneName     string   `env:"LOBBY_SCENE_NAME" envDefault:"Lobby"`
	LobbyFallbackScene string   `env:"LOBBY_FALLBACK_SCENE" envDefault:"MainMenu"`
	SceneCatalog       []string `env:"SCENE_CATALOG" envSeparator:"," envDefault:"MainMenu,Lobby,Arena"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
