package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duel-session/internal/config"
	"duel-session/internal/logging"
	"duel-session/internal/match"
	"duel-session/internal/settlement"
	"duel-session/internal/store"
	httptransport "duel-session/internal/transport/http"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if cfg.Server.PostgresDSN != "" {
		st, err = store.New(cfg.Server.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("store init failed")
		}
		defer st.Close()
		if err := st.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("db ping failed")
		}
	} else {
		log.Warn().Msg("POSTGRES_DSN not set; profile endpoints disabled")
	}

	settler := settlement.FromConfig(cfg.Server)
	if settler == nil {
		log.Warn().Msg("SETTLEMENT_URL not set; matches will end with rewards pending")
	}
	reg := match.NewRegistry(ctx, match.ConfigFromServer(cfg.Server), settler)

	r := httptransport.NewRouter(cfg.Server, reg, st)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		reg.Shutdown("shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}
