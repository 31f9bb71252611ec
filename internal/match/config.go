package match

import (
	"time"

	"duel-session/internal/config"
)

type Config struct {
	RequiredParticipants int
	MaxParticipants      int
	StartTimeout         time.Duration
	IdleGrace            time.Duration
	IdleKick             time.Duration
	TickInterval         time.Duration
	RequireAllVotes      bool
	// Networked is false for solo/local sessions, where a vote returns to
	// the lobby immediately.
	Networked         bool
	SettlementTimeout time.Duration
	SessionTTL        time.Duration
	Destination       DestinationConfig
}

func DefaultConfig() Config {
	return Config{
		RequiredParticipants: 2,
		MaxParticipants:      2,
		StartTimeout:         20 * time.Second,
		IdleGrace:            10 * time.Second,
		IdleKick:             30 * time.Second,
		TickInterval:         time.Second,
		RequireAllVotes:      true,
		Networked:            true,
		SettlementTimeout:    5 * time.Second,
		SessionTTL:           time.Hour,
		Destination: DestinationConfig{
			Index:    -1,
			Name:     "Lobby",
			Fallback: "MainMenu",
			Catalog:  []string{"MainMenu", "Lobby", "Arena"},
		},
	}
}

func ConfigFromServer(cfg config.ServerConfig) Config {
	out := Config{
		RequiredParticipants: cfg.RequiredParticipants,
		MaxParticipants:      cfg.MaxParticipants,
		StartTimeout:         time.Duration(cfg.StartWaitSeconds) * time.Second,
		IdleGrace:            time.Duration(cfg.IdleGraceSeconds) * time.Second,
		IdleKick:             time.Duration(cfg.IdleKickSeconds) * time.Second,
		TickInterval:         time.Duration(cfg.WatchdogTickMS) * time.Millisecond,
		RequireAllVotes:      cfg.RequireAllVotes,
		Networked:            true,
		SettlementTimeout:    time.Duration(cfg.SettlementTimeoutMS) * time.Millisecond,
		SessionTTL:           time.Duration(cfg.SessionTTLMinutes) * time.Minute,
		Destination: DestinationConfig{
			Index:    cfg.LobbySceneIndex,
			Name:     cfg.LobbySceneName,
			Fallback: cfg.LobbyFallbackScene,
			Catalog:  append([]string(nil), cfg.SceneCatalog...),
		},
	}
	return out.withDefaults()
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RequiredParticipants <= 0 {
		c.RequiredParticipants = def.RequiredParticipants
	}
	if c.MaxParticipants < c.RequiredParticipants {
		c.MaxParticipants = c.RequiredParticipants
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = def.StartTimeout
	}
	if c.IdleGrace < 0 {
		c.IdleGrace = 0
	}
	if c.IdleKick <= 0 {
		c.IdleKick = def.IdleKick
	}
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.SettlementTimeout <= 0 {
		c.SettlementTimeout = def.SettlementTimeout
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = def.SessionTTL
	}
	return c
}
