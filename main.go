package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"spectrum/internal/config"
	"spectrum/internal/database"
	"spectrum/internal/game"
	"spectrum/internal/server"
)

func main() {
	cfg := config.Load()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	store, err := database.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open durable store")
	}
	defer store.Close()

	registry := game.NewRegistry(store, cfg.GracePeriod)
	if err := registry.Load(); err != nil {
		log.Fatal().Err(err).Msg("load rooms from durable store")
	}

	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := registry.CleanupInactive(cfg.Retention); err != nil {
				log.Error().Err(err).Msg("cleanup inactive rooms")
			}
		}
	}()

	handler := server.NewHandler(registry, store, cfg.StrictTeamCheck)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler.Routes(),
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
