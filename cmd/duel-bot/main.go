package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duel-session/internal/config"
	"duel-session/internal/ledger"
	"duel-session/internal/logging"
	"duel-session/internal/participant"
	"duel-session/internal/store"

	"github.com/rs/zerolog/log"
)

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	defer logging.Close()

	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var profiles participant.ProfileStore = participant.NewMemoryProfiles()
	if cfg.ProfileDSN != "" {
		st, err := store.New(cfg.ProfileDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("profile store init failed")
		}
		defer st.Close()
		profiles = ledger.New(st)
	}

	rt := participant.New(participant.ConfigFromBot(cfg), profiles)
	if err := rt.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Str("session_code", cfg.SessionCode).Msg("bot stopped")
		os.Exit(1)
	}
	v := rt.Payout().View(time.Now())
	log.Info().
		Str("session_code", cfg.SessionCode).
		Str("close_reason", rt.CloseReason()).
		Str("scene", rt.Scene()).
		Bool("payout_ready", v.Ready).
		Msg("bot finished")
}
