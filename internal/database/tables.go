// internal/database/tables.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/fourcolor/internal/models"
)

// nullableUUID maps uuid.Nil to SQL NULL.
func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// upsertTableSQL never moves a finished game back to playing. A new game (a different
// current_game) may reopen the table.
const upsertTableSQL = `
		INSERT INTO tables (id, name, rule_id, owner, status, players, current_game, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    owner = EXCLUDED.owner,
		    status = CASE
		        WHEN tables.status = 'finished' AND tables.current_game IS NOT DISTINCT FROM EXCLUDED.current_game
		        THEN tables.status
		        ELSE EXCLUDED.status
		    END,
		    players = EXCLUDED.players,
		    current_game = EXCLUDED.current_game
	`

// UpsertTable inserts or updates a tables row.
func UpsertTable(ctx context.Context, t models.Table) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, upsertTableSQL, t.ID, t.Name, nullableUUID(t.RuleID), t.Owner, t.Status, t.Players, nullableUUID(t.CurrentGame), t.CreatedAt)
		return e
	})
	if err != nil {
		return fmt.Errorf("upsert table %v: %w", t.ID, err)
	}
	return nil
}

// GetTable loads a tables row.
func GetTable(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	var t models.Table
	var ruleID, currentGame *uuid.UUID
	q := `
	SELECT id, name, rule_id, owner, status, players, current_game, created_at
	FROM tables
	WHERE id = $1
	`
	err := DB.QueryRow(ctx, q, id).Scan(&t.ID, &t.Name, &ruleID, &t.Owner, &t.Status, &t.Players, &currentGame, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if ruleID != nil {
		t.RuleID = *ruleID
	}
	if currentGame != nil {
		t.CurrentGame = *currentGame
	}
	return &t, nil
}

// UpsertGameState stores the latest state of a game together with the sequence number it reached.
func UpsertGameState(ctx context.Context, tableID, gameStateID uuid.UUID, round, sequence int, state *models.GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}
	q := `
		INSERT INTO game_states (id, table_id, round_number, state, sequence_number, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state,
		    sequence_number = EXCLUDED.sequence_number,
		    updated_at = NOW()
	`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, gameStateID, tableID, round, data, sequence)
		return e
	})
	if err != nil {
		return fmt.Errorf("storing game state %v: %w", gameStateID, err)
	}
	return nil
}

// GetGameState loads a stored state and the sequence number it reflects.
func GetGameState(ctx context.Context, gameStateID uuid.UUID) (*models.GameState, int, error) {
	var data []byte
	var seq int
	q := `SELECT state, sequence_number FROM game_states WHERE id = $1`
	if err := DB.QueryRow(ctx, q, gameStateID).Scan(&data, &seq); err != nil {
		return nil, 0, err
	}
	var state models.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, 0, fmt.Errorf("failed to decode game state %v: %w", gameStateID, err)
	}
	return &state, seq, nil
}

// InsertActionTx appends one record to game_actions. Replays of a sequence number are ignored.
func InsertActionTx(ctx context.Context, tx pgx.Tx, rec models.ActionRecord) error {
	data, err := json.Marshal(rec.ActionData)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO game_actions (
			table_id, game_state_id, player_id, sequence_number, action_type, action_data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_state_id, sequence_number) DO NOTHING
	`
	_, err = tx.Exec(ctx, q,
		rec.TableID, rec.GameStateID, rec.PlayerID, rec.SequenceNumber, rec.ActionType, data,
		time.UnixMilli(rec.Timestamp),
	)
	return err
}

// InsertActions appends a batch of records in one transaction.
func InsertActions(ctx context.Context, recs []models.ActionRecord) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := InsertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %d of %v: %w", rec.SequenceNumber, rec.GameStateID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert actions: %w", err)
	}
	return nil
}

// ListActions returns the action log of one game in sequence order.
func ListActions(ctx context.Context, gameStateID uuid.UUID) ([]models.ActionRecord, error) {
	q := `
		SELECT table_id, game_state_id, player_id, sequence_number, action_type, action_data, created_at
		FROM game_actions
		WHERE game_state_id = $1
		ORDER BY sequence_number
	`
	rows, err := DB.Query(ctx, q, gameStateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ActionRecord
	for rows.Next() {
		var rec models.ActionRecord
		var data []byte
		var created time.Time
		if err := rows.Scan(&rec.TableID, &rec.GameStateID, &rec.PlayerID, &rec.SequenceNumber, &rec.ActionType, &data, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &rec.ActionData); err != nil {
			return nil, fmt.Errorf("failed to decode action data: %w", err)
		}
		rec.Timestamp = created.UnixMilli()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkAbandoned flips playing tables with no activity since cutoff to finished and returns their ids.
func MarkAbandoned(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	q := `
		UPDATE tables t
		SET status = 'finished'
		FROM game_states s
		WHERE s.id = t.current_game AND t.status = 'playing' AND s.updated_at < $1
		RETURNING t.id
	`
	var ids []uuid.UUID
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		rows, e := tx.Query(ctx, q, cutoff)
		if e != nil {
			return e
		}
		ids, e = pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("mark abandoned tables: %w", err)
	}
	return ids, nil
}
