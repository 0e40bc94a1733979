// internal/database/store.go
package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/fourcolor/internal/models"
	"github.com/jason-s-yu/fourcolor/internal/table"
)

var _ table.Store = Store{}

// Store persists table runtime data through the global pool.
type Store struct{}

func (Store) SaveTable(ctx context.Context, t models.Table) error {
	return UpsertTable(ctx, t)
}

func (Store) SaveGameState(ctx context.Context, tableID, gameStateID uuid.UUID, round, sequence int, state *models.GameState) error {
	return UpsertGameState(ctx, tableID, gameStateID, round, sequence, state)
}

func (Store) AppendAction(ctx context.Context, rec models.ActionRecord) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return InsertActionTx(ctx, tx, rec)
	})
}
