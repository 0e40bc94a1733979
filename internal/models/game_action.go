// internal/models/game_action.go
package models

// GameAction captures a player's in-game move as it arrives from a client.
type GameAction struct {
	ActionType string     `json:"action_type"`
	ActionData ActionData `json:"action_data"`
}

// ActionData is the payload of an action. play_cards and chi carry Cards; chi additionally threads
// the Pattern produced by validation into apply. Everything else sends an empty object.
type ActionData struct {
	Cards   []Card      `json:"cards,omitempty"`
	Pattern *ChiPattern `json:"pattern,omitempty"`
}

// ChiPattern is the result of a successful chi pattern match.
type ChiPattern struct {
	Type   string `json:"type"`
	Points int    `json:"points"`
}
