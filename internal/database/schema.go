// internal/database/schema.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS game_rules (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		category    TEXT NOT NULL DEFAULT '',
		config_json JSONB NOT NULL,
		logic_file  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS tables (
		id           UUID PRIMARY KEY,
		name         TEXT NOT NULL DEFAULT '',
		rule_id      UUID REFERENCES game_rules(id),
		owner        TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'waiting',
		players      TEXT[] NOT NULL DEFAULT '{}',
		current_game UUID,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS game_states (
		id              UUID PRIMARY KEY,
		table_id        UUID NOT NULL REFERENCES tables(id) ON DELETE CASCADE,
		round_number    INT NOT NULL,
		state           JSONB NOT NULL,
		sequence_number INT NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS game_actions (
		id              BIGSERIAL PRIMARY KEY,
		table_id        UUID NOT NULL,
		game_state_id   UUID NOT NULL REFERENCES game_states(id) ON DELETE CASCADE,
		player_id       TEXT NOT NULL,
		sequence_number INT NOT NULL,
		action_type     TEXT NOT NULL,
		action_data     JSONB NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		UNIQUE (game_state_id, sequence_number)
	)`,
}

// EnsureSchema creates any missing tables.
func EnsureSchema(ctx context.Context) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
