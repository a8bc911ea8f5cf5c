package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL,
	winner_id TEXT NOT NULL DEFAULT '',
	turns INTEGER NOT NULL DEFAULT 0,
	ended_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS games_room_ended ON games (room_id, ended_at);
CREATE TABLE IF NOT EXISTS game_results (
	game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	player_id TEXT NOT NULL,
	name TEXT NOT NULL,
	seat INTEGER NOT NULL,
	organs INTEGER NOT NULL,
	healthy INTEGER NOT NULL,
	did_win INTEGER NOT NULL,
	PRIMARY KEY (game_id, player_id)
);
`

// SQLite is a single-file archive for deployments without Postgres.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:" is
// accepted for tests.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the SQLite handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordGameResult replaces any earlier record of the same game.
func (s *SQLite) RecordGameResult(ctx context.Context, result GameResult) error {
	if err := validateResult(result); err != nil {
		return err
	}
	endedAt := result.EndedAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	gameID := result.GameID.String()
	if _, err := tx.ExecContext(ctx, `DELETE FROM game_results WHERE game_id = ?`, gameID); err != nil {
		return fmt.Errorf("clear game_results: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO games (id, room_id, winner_id, turns, ended_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET room_id = excluded.room_id, winner_id = excluded.winner_id,
			turns = excluded.turns, ended_at = excluded.ended_at`,
		gameID, result.RoomID, result.Winner, result.Turns, endedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert game: %w", err)
	}
	for _, pl := range result.Players {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO game_results (game_id, player_id, name, seat, organs, healthy, did_win)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			gameID, pl.PlayerID, pl.Name, pl.Seat, pl.Organs, pl.HealthyCount, pl.Won,
		)
		if err != nil {
			return fmt.Errorf("insert game_result: %w", err)
		}
	}
	return tx.Commit()
}

// RecentResults returns up to limit games for roomID, newest first.
func (s *SQLite) RecentResults(ctx context.Context, roomID string, limit int) ([]GameResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, winner_id, turns, ended_at
		FROM games WHERE room_id = ?
		ORDER BY ended_at DESC LIMIT ?`, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	var results []GameResult
	for rows.Next() {
		var (
			r       GameResult
			id      string
			endedAt int64
		)
		if err := rows.Scan(&id, &r.RoomID, &r.Winner, &r.Turns, &endedAt); err != nil {
			rows.Close()
			return nil, err
		}
		if r.GameID, err = uuid.Parse(id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("parse game id %q: %w", id, err)
		}
		r.EndedAt = time.UnixMilli(endedAt).UTC()
		results = append(results, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		if results[i].Players, err = s.playerResults(ctx, results[i].GameID); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (s *SQLite) playerResults(ctx context.Context, gameID uuid.UUID) ([]PlayerResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, name, seat, organs, healthy, did_win
		FROM game_results WHERE game_id = ? ORDER BY seat`, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("query game_results: %w", err)
	}
	defer rows.Close()

	var players []PlayerResult
	for rows.Next() {
		var pl PlayerResult
		if err := rows.Scan(&pl.PlayerID, &pl.Name, &pl.Seat, &pl.Organs, &pl.HealthyCount, &pl.Won); err != nil {
			return nil, err
		}
		players = append(players, pl)
	}
	return players, rows.Err()
}
