// internal/models/table.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Table statuses.
const (
	TableWaiting  = "waiting"
	TablePlaying  = "playing"
	TableFinished = "finished"
)

// Table represents a row in the tables table: a named seat list bound to a game rule.
type Table struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	RuleID  uuid.UUID `json:"rule_id"`
	Owner   string    `json:"owner"`
	Status  string    `json:"status"` // 'waiting', 'playing' or 'finished'
	Players []string  `json:"players"`

	// CurrentGame references the game_states row of the running game, uuid.Nil before start.
	CurrentGame uuid.UUID `json:"current_game"`
	CreatedAt   time.Time `json:"created_at"`
}

// GameRule represents a row in game_rules.
type GameRule struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	ConfigJSON  []byte    `json:"config_json"`
	LogicFile   string    `json:"logic_file"`
}

// ActionRecord is an accepted, sequence-numbered action as appended to the action log.
type ActionRecord struct {
	TableID        uuid.UUID  `json:"table_id"`
	GameStateID    uuid.UUID  `json:"game_state_id"`
	SequenceNumber int        `json:"sequence_number"`
	PlayerID       string     `json:"player_id"`
	ActionType     string     `json:"action_type"`
	ActionData     ActionData `json:"action_data"`
	Timestamp      int64      `json:"timestamp"`
}
