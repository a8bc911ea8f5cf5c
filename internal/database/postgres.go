package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/virus/internal/cache"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS games (
	id UUID PRIMARY KEY,
	room_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'in_progress',
	winner_id TEXT,
	turns INT NOT NULL DEFAULT 0,
	start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS game_results (
	game_id UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	player_id TEXT NOT NULL,
	name TEXT NOT NULL,
	seat INT NOT NULL,
	organs INT NOT NULL,
	healthy INT NOT NULL,
	did_win BOOLEAN NOT NULL,
	PRIMARY KEY (game_id, player_id)
);
CREATE TABLE IF NOT EXISTS game_actions (
	game_id UUID NOT NULL,
	action_index INT NOT NULL,
	actor_id TEXT,
	action_type TEXT NOT NULL,
	action_payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, action_index)
);
`

// Postgres is the pgx-backed archive. It also receives the historian's action batches.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool for dsn, pings it and creates missing tables.
func ConnectPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// RecordGameResult upserts the game row and one result row per player.
func (p *Postgres) RecordGameResult(ctx context.Context, result GameResult) error {
	if err := validateResult(result); err != nil {
		return err
	}
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, room_id, status, winner_id, turns, end_time)
			VALUES ($1, $2, 'completed', $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET room_id = $2, status = 'completed', winner_id = $3, turns = $4, end_time = $5
		`
		if _, err := tx.Exec(ctx, upsertGame, result.GameID, result.RoomID, result.Winner, result.Turns, result.EndedAt); err != nil {
			return err
		}
		for _, pl := range result.Players {
			q := `
				INSERT INTO game_results (game_id, player_id, name, seat, organs, healthy, did_win)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (game_id, player_id)
				DO UPDATE SET name = $3, seat = $4, organs = $5, healthy = $6, did_win = $7
			`
			if _, err := tx.Exec(ctx, q, result.GameID, pl.PlayerID, pl.Name, pl.Seat, pl.Organs, pl.HealthyCount, pl.Won); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert game or results: %w", err)
	}
	return nil
}

// RecentResults returns up to limit completed games for roomID, newest first.
func (p *Postgres) RecentResults(ctx context.Context, roomID string, limit int) ([]GameResult, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, room_id, COALESCE(winner_id, ''), turns, end_time
		FROM games
		WHERE room_id = $1 AND status = 'completed'
		ORDER BY end_time DESC
		LIMIT $2
	`, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	var results []GameResult
	for rows.Next() {
		var r GameResult
		if err := rows.Scan(&r.GameID, &r.RoomID, &r.Winner, &r.Turns, &r.EndedAt); err != nil {
			rows.Close()
			return nil, err
		}
		results = append(results, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		players, err := p.playerResults(ctx, results[i])
		if err != nil {
			return nil, err
		}
		results[i].Players = players
	}
	return results, nil
}

func (p *Postgres) playerResults(ctx context.Context, r GameResult) ([]PlayerResult, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT player_id, name, seat, organs, healthy, did_win
		FROM game_results WHERE game_id = $1 ORDER BY seat
	`, r.GameID)
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

// InsertGameActions writes one historian batch in a single transaction. Games
// seen for the first time get an in_progress row; a game_end action completes it.
func (p *Postgres) InsertGameActions(ctx context.Context, records []cache.GameActionRecord) error {
	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertGameActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertGameActionTx: %w", err)
			}
		}
		return nil
	})
}

func insertGameActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	upsertGameQ := `
		INSERT INTO games (id, room_id, status, start_time)
		VALUES ($1, $2, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID, rec.RoomID); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO game_actions (game_id, action_index, actor_id, action_type, action_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.GameID, rec.ActionIndex, rec.ActorID, rec.ActionType, jsonPayload, time.UnixMilli(rec.Timestamp).UTC(),
	)
	if err != nil {
		return err
	}

	if rec.ActionType == "game_end" {
		finalizeQ := `
			UPDATE games
			SET status = 'completed', end_time = COALESCE(end_time, NOW())
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err = tx.Exec(ctx, finalizeQ, rec.GameID); err != nil {
			return err
		}
	}
	return nil
}

// MarkGameAbandoned flags a game that stopped producing actions while in progress.
func (p *Postgres) MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`, gameID)
	return err
}
