// cmd/historian is an asynchronous service that pops game action records from
// a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/virus/internal/cache"
	"github.com/jason-s-yu/virus/internal/config"
	"github.com/jason-s-yu/virus/internal/database"
	"github.com/jason-s-yu/virus/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required")
	}
	if cfg.ArchiveDriver != "postgres" {
		logger.Fatal("the historian requires ARCHIVE_DRIVER=postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	pg, err := database.ConnectPostgres(ctx, cfg.ArchiveDSN)
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer pg.Close()

	svc := historian.New(rdb, pg, historian.Options{
		Queue:      cfg.QueueName,
		BatchSize:  cfg.BatchSize,
		FlushDelay: cfg.FlushDelay(),
		Inactivity: cfg.Inactivity,
	}, logger)

	logger.Infof("historian draining %s", cfg.QueueName)
	svc.Run(ctx)
	logger.Info("Historian shutdown complete.")
}
