// Package database archives finished games and the historian's action log.
// Live rooms are never persisted.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownDriver is returned by Open for an unsupported ARCHIVE_DRIVER.
var ErrUnknownDriver = errors.New("unknown archive driver")

// PlayerResult summarizes one player's body at the end of a game.
type PlayerResult struct {
	PlayerID     string `json:"playerId"`
	Name         string `json:"name"`
	Seat         int    `json:"seat"`
	Organs       int    `json:"organs"`       // slots holding an organ
	HealthyCount int    `json:"healthyCount"` // slots counting toward victory
	Won          bool   `json:"won"`
}

// GameResult is the archived outcome of one finished game.
type GameResult struct {
	GameID  uuid.UUID      `json:"gameId"`
	RoomID  string         `json:"roomId"`
	Winner  string         `json:"winner"` // player id
	Turns   int            `json:"turns"`
	EndedAt time.Time      `json:"endedAt"`
	Players []PlayerResult `json:"players"`
}

// Archive stores finished games.
type Archive interface {
	RecordGameResult(ctx context.Context, result GameResult) error
	// RecentResults returns up to limit results for a room, newest first.
	RecentResults(ctx context.Context, roomID string, limit int) ([]GameResult, error)
	Close() error
}

// Open returns the archive for driver. "none" (or empty) returns a nil Archive
// and no error; callers treat that as archiving disabled.
func Open(ctx context.Context, driver, dsn string) (Archive, error) {
	switch driver {
	case "", "none":
		return nil, nil
	case "postgres":
		pg, err := ConnectPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case "sqlite":
		db, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

func validateResult(result GameResult) error {
	if result.GameID == uuid.Nil {
		return fmt.Errorf("game id is required")
	}
	if result.RoomID == "" {
		return fmt.Errorf("room id is required")
	}
	return nil
}
