// Package config loads server and historian settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config holds every environment-driven setting. Defaults match a local
// single-process deployment with Redis and archiving disabled.
type Config struct {
	Port     string `env:"VIRUS_PORT" envDefault:"8080"`
	LogLevel string `env:"VIRUS_LOG_LEVEL" envDefault:"info"`

	TurnTimerSec    int           `env:"VIRUS_TURN_TIMER_SEC" envDefault:"0"`
	HandSize        int           `env:"VIRUS_HAND_SIZE" envDefault:"3"`
	MaxPlayers      int           `env:"VIRUS_MAX_PLAYERS" envDefault:"4"`
	MinPlayers      int           `env:"VIRUS_MIN_PLAYERS" envDefault:"2"`
	EmptyRoomGrace  time.Duration `env:"VIRUS_EMPTY_ROOM_GRACE" envDefault:"5m"`
	HandVisibility  string        `env:"VIRUS_HAND_VISIBILITY" envDefault:"public"`
	AllowedOrigins  []string      `env:"VIRUS_ALLOWED_ORIGINS" envSeparator:","`
	TokenExpireTime string        `env:"TOKEN_EXPIRE_TIME" envDefault:"never"`

	// Raw ed25519 keys. When unset, a key pair is generated at startup.
	TokenPrivateKeyPath string `env:"TOKEN_PRIVATE_KEY_PATH"`
	TokenPublicKeyPath  string `env:"TOKEN_PUBLIC_KEY_PATH"`

	RedisAddr  string        `env:"REDIS_ADDR"` // empty disables the action log
	RedisDB    int           `env:"REDIS_DB" envDefault:"0"`
	QueueName  string        `env:"HISTORIAN_QUEUE_NAME" envDefault:"virus_actions"`
	BatchSize  int           `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	FlushMs    int           `env:"HISTORIAN_FLUSH_MS" envDefault:"500"`
	Inactivity time.Duration `env:"GAME_INACTIVITY_TIMEOUT" envDefault:"10m"`

	ArchiveDriver string `env:"ARCHIVE_DRIVER" envDefault:"none"` // none, sqlite or postgres
	ArchiveDSN    string `env:"ARCHIVE_DSN"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates a Config.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.HandSize < 1 {
		return fmt.Errorf("VIRUS_HAND_SIZE must be at least 1")
	}
	if c.MinPlayers < 2 {
		return fmt.Errorf("VIRUS_MIN_PLAYERS must be at least 2")
	}
	if c.MaxPlayers < c.MinPlayers {
		return fmt.Errorf("VIRUS_MAX_PLAYERS must be at least VIRUS_MIN_PLAYERS")
	}
	if c.TurnTimerSec < 0 {
		return fmt.Errorf("VIRUS_TURN_TIMER_SEC must be non-negative")
	}
	switch c.HandVisibility {
	case "public", "own-hand":
	default:
		return fmt.Errorf("VIRUS_HAND_VISIBILITY must be public or own-hand, got %q", c.HandVisibility)
	}
	switch c.ArchiveDriver {
	case "", "none":
	case "sqlite", "postgres":
		if c.ArchiveDSN == "" {
			return fmt.Errorf("ARCHIVE_DSN is required for ARCHIVE_DRIVER=%s", c.ArchiveDriver)
		}
	default:
		return fmt.Errorf("unknown ARCHIVE_DRIVER %q", c.ArchiveDriver)
	}
	if _, err := c.TokenTTL(); err != nil {
		return err
	}
	if (c.TokenPrivateKeyPath == "") != (c.TokenPublicKeyPath == "") {
		return fmt.Errorf("TOKEN_PRIVATE_KEY_PATH and TOKEN_PUBLIC_KEY_PATH must be set together")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("VIRUS_LOG_LEVEL: %w", err)
	}
	return nil
}

// TokenTTL converts TOKEN_EXPIRE_TIME to a duration; "never", "0" or empty mean no expiry.
func (c Config) TokenTTL() (time.Duration, error) {
	switch c.TokenExpireTime {
	case "", "0", "never":
		return 0, nil
	}
	d, err := time.ParseDuration(c.TokenExpireTime)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// NewLogger returns a logrus logger at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

// FlushDelay is HISTORIAN_FLUSH_MS as a duration.
func (c Config) FlushDelay() time.Duration {
	return time.Duration(c.FlushMs) * time.Millisecond
}
