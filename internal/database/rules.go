// internal/database/rules.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/fourcolor/internal/game"
	"github.com/jason-s-yu/fourcolor/internal/models"
)

// FourColorRuleName is the game_rules.name of the built-in rule.
const FourColorRuleName = "four_color_card"

// GetRuleByName loads a rule row. A missing row is reported as pgx.ErrNoRows.
func GetRuleByName(ctx context.Context, name string) (*models.GameRule, error) {
	var r models.GameRule
	q := `
	SELECT id, name, description, category, config_json, logic_file
	FROM game_rules
	WHERE name = $1
	`
	err := DB.QueryRow(ctx, q, name).Scan(&r.ID, &r.Name, &r.Description, &r.Category, &r.ConfigJSON, &r.LogicFile)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// InsertRule stores a new rule row, assigning an id when missing.
func InsertRule(ctx context.Context, r *models.GameRule) error {
	if r.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate rule id: %w", err)
		}
		r.ID = id
	}

	q := `INSERT INTO game_rules (id, name, description, category, config_json, logic_file)
	      VALUES ($1, $2, $3, $4, $5, $6)`

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, r.ID, r.Name, r.Description, r.Category, r.ConfigJSON, r.LogicFile)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

// SeedFourColorRule inserts the Four Color Card rule with cfg unless a rule of that name exists.
// It returns the stored row either way.
func SeedFourColorRule(ctx context.Context, cfg game.GameConfig) (*models.GameRule, error) {
	existing, err := GetRuleByName(ctx, FourColorRuleName)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up rule: %w", err)
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rule config: %w", err)
	}
	r := &models.GameRule{
		Name:        FourColorRuleName,
		Description: "四色牌 - Four Color Cards",
		Category:    "card",
		ConfigJSON:  data,
		LogicFile:   FourColorRuleName,
	}
	if err := InsertRule(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadRuleConfig decodes and validates the config of a stored rule.
func LoadRuleConfig(r *models.GameRule) (game.GameConfig, error) {
	cfg, err := game.ParseConfig(r.ConfigJSON)
	if err != nil {
		return game.GameConfig{}, fmt.Errorf("rule %s: %w", r.Name, err)
	}
	return cfg, nil
}
