// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/virus/internal/auth"
	"github.com/jason-s-yu/virus/internal/cache"
	"github.com/jason-s-yu/virus/internal/config"
	"github.com/jason-s-yu/virus/internal/database"
	"github.com/jason-s-yu/virus/internal/game"
	"github.com/jason-s-yu/virus/internal/handlers"
	"github.com/jason-s-yu/virus/internal/room"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := room.Options{
		MaxPlayers:     cfg.MaxPlayers,
		MinPlayers:     cfg.MinPlayers,
		EmptyRoomGrace: cfg.EmptyRoomGrace,
		Rules: game.HouseRules{
			TurnTimerSec:   cfg.TurnTimerSec,
			HandSize:       cfg.HandSize,
			HandVisibility: game.Visibility(cfg.HandVisibility),
		},
		Deck: game.DefaultDeckConfig(),
	}

	// action log
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		publisher := cache.NewPublisher(rdb, cfg.QueueName)
		defer publisher.Close()
		opts.Publisher = publisher
		logger.Infof("publishing game actions to redis queue %s", publisher.Queue())
	}

	// archive
	archive, err := database.Open(ctx, cfg.ArchiveDriver, cfg.ArchiveDSN)
	if err != nil {
		logger.Fatalf("archive: %v", err)
	}
	if archive != nil {
		defer archive.Close()
		opts.Archive = archive
		logger.Infof("archiving finished games with %s", cfg.ArchiveDriver)
	}

	ttl, _ := cfg.TokenTTL()
	var tokens *auth.TokenIssuer
	if cfg.TokenPrivateKeyPath != "" {
		tokens, err = auth.NewTokenIssuerFromPath(cfg.TokenPrivateKeyPath, cfg.TokenPublicKeyPath, ttl)
	} else {
		tokens, err = auth.NewTokenIssuer(ttl)
	}
	if err != nil {
		logger.Fatalf("token issuer: %v", err)
	}

	registry := room.NewRegistry(opts, logger)
	srv := handlers.NewServer(registry, tokens, archive, logger)
	srv.AllowedOrigins = cfg.AllowedOrigins

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Running on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	registry.Close()
	logger.Info("server shutdown complete")
}
