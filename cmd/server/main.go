package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pedidos-app/internal/config"
	"pedidos-app/internal/db"
	"pedidos-app/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.SetupLogger(cfg)

	database, err := db.ConnectAndMigrate(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("database init failed")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.NewRouter(database, logger, cfg.AllowOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr()).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
